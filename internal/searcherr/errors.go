// Package searcherr defines the error taxonomy shared by the search pipeline.
//
// Lower layers (registry, normalizer, join planner, predicate builder) return
// these typed errors; the engine decides whether they abort a request or are
// collected for reporting.
package searcherr

import (
	"errors"
	"fmt"
)

// Sentinels usable with errors.Is.
var (
	ErrConfiguration    = errors.New("search configuration error")
	ErrInvalidCriterion = errors.New("invalid search criterion")
	ErrJoinPlanning     = errors.New("search cannot be executed")
	ErrDatabase         = errors.New("search failed")
)

// ConfigurationError reports broken search metadata: duplicate field ids or
// join parameters that reference a relation the catalog does not know.
// It indicates a deployment or plugin bug, never bad user input.
type ConfigurationError struct {
	Itemtype string
	FieldID  int
	Message  string
}

func (e *ConfigurationError) Error() string {
	switch {
	case e.Itemtype != "" && e.FieldID != 0:
		return fmt.Sprintf("configuration error: %s option %d: %s", e.Itemtype, e.FieldID, e.Message)
	case e.Itemtype != "":
		return fmt.Sprintf("configuration error: %s: %s", e.Itemtype, e.Message)
	default:
		return "configuration error: " + e.Message
	}
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// InvalidCriterionError reports a single malformed leaf criterion. The
// criterion is skipped; the rest of the search still runs.
type InvalidCriterionError struct {
	Itemtype   string
	Field      string
	SearchType string
	Value      string
	Reason     string
}

func (e *InvalidCriterionError) Error() string {
	return fmt.Sprintf("invalid criterion %s[%s] %s %q: %s", e.Itemtype, e.Field, e.SearchType, e.Value, e.Reason)
}

func (e *InvalidCriterionError) Is(target error) bool { return target == ErrInvalidCriterion }

// JoinPlanningError reports that joins could not be ordered, e.g. a circular
// beforejoin chain or two structural keys competing for the same alias.
type JoinPlanningError struct {
	Table   string
	Message string
}

func (e *JoinPlanningError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("join planning failed for %s: %s", e.Table, e.Message)
	}
	return "join planning failed: " + e.Message
}

func (e *JoinPlanningError) Is(target error) bool { return target == ErrJoinPlanning }

// DatabaseError wraps a failed statement execution. Reference is an opaque id
// for correlating the user-facing message with the server log. SQL and the
// driver message are only shown when Debug is set.
type DatabaseError struct {
	Reference string
	SQL       string
	Debug     bool
	Err       error
}

func (e *DatabaseError) Error() string {
	if e.Debug {
		return fmt.Sprintf("search failed (ref %s): %v [SQL: %s]", e.Reference, e.Err, e.SQL)
	}
	return fmt.Sprintf("search failed (ref %s)", e.Reference)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

func (e *DatabaseError) Is(target error) bool { return target == ErrDatabase }

// IsFatal reports whether err must abort the whole search request.
// Invalid criteria are the only recoverable kind.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrInvalidCriterion)
}
