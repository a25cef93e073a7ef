// Package searchstore persists per-user search state: the last search of each
// itemtype and named bookmarks.
package searchstore

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	goslug "github.com/gosimple/slug"
)

var (
	// ErrNotFound is returned when no last search or bookmark exists.
	ErrNotFound = errors.New("not found")
	// ErrInvalidName is returned for names that do not produce a usable key.
	ErrInvalidName = errors.New("invalid name")
)

// Query is a stored search request. Criteria keeps the JSON form the
// criteria parser reads, so stored searches survive catalog changes and
// are re-validated when run.
type Query struct {
	Itemtype string          `json:"itemtype"`
	Criteria json.RawMessage `json:"criteria,omitempty"`
	Sort     []string        `json:"sort,omitempty"`
	Start    int             `json:"start,omitempty"`
	Limit    int             `json:"limit,omitempty"`
	Deleted  string          `json:"deleted,omitempty"`
}

// LastSearch is the most recent search of a user on one itemtype.
type LastSearch struct {
	Query     Query     `json:"query"`
	Timestamp time.Time `json:"timestamp"`
}

// Bookmark is a named saved search.
type Bookmark struct {
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Query     Query     `json:"query"`
	CreatedAt time.Time `json:"created_at"`
}

// Slug derives the storage key of a user, itemtype or bookmark name.
func Slug(s string) (string, error) {
	slugged := goslug.Make(strings.TrimSpace(s))
	if slugged == "" {
		return "", ErrInvalidName
	}
	return slugged, nil
}
