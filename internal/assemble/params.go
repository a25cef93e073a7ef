package assemble

import (
	"fmt"
	"strconv"
	"strings"
)

// Deleted is the is_deleted tri-state filter.
type Deleted int

const (
	DeletedNo Deleted = iota
	DeletedYes
	DeletedAny
)

// ParseDeleted accepts 0, 1 and any (or -1). Empty means 0.
func ParseDeleted(s string) (Deleted, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "no", "false":
		return DeletedNo, nil
	case "1", "yes", "true":
		return DeletedYes, nil
	case "any", "-1", "all":
		return DeletedAny, nil
	default:
		return DeletedNo, fmt.Errorf("invalid deleted filter %q (use 0, 1 or any)", s)
	}
}

func (d Deleted) String() string {
	switch d {
	case DeletedYes:
		return "1"
	case DeletedAny:
		return "any"
	default:
		return "0"
	}
}

// NameFormat is the session preference for ordering person names.
type NameFormat int

const (
	RealnameFirst NameFormat = iota
	FirstnameFirst
)

// ParseNameFormat accepts "realname" or "firstname". Empty means realname.
func ParseNameFormat(s string) (NameFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "realname":
		return RealnameFirst, nil
	case "firstname":
		return FirstnameFirst, nil
	default:
		return RealnameFirst, fmt.Errorf("invalid name format %q (use realname or firstname)", s)
	}
}

// SortSpec is one requested ORDER BY key. Direction is the raw token.
type SortSpec struct {
	Field     int
	Direction string
}

// ParseSortSpec parses "id" or "id:direction".
func ParseSortSpec(s string) (SortSpec, error) {
	field, dir, _ := strings.Cut(strings.TrimSpace(s), ":")
	id, err := strconv.Atoi(strings.TrimSpace(field))
	if err != nil || id <= 0 {
		return SortSpec{}, fmt.Errorf("invalid sort field %q", field)
	}
	return SortSpec{Field: id, Direction: strings.TrimSpace(dir)}, nil
}

func (s SortSpec) String() string {
	if s.Direction == "" {
		return strconv.Itoa(s.Field)
	}
	return strconv.Itoa(s.Field) + ":" + s.Direction
}

// Direction normalizes a sort direction token: omitted means ASC, ASC and
// DESC are kept, anything else becomes DESC.
func Direction(token string) string {
	switch strings.ToUpper(strings.TrimSpace(token)) {
	case "", "ASC":
		return "ASC"
	default:
		return "DESC"
	}
}
