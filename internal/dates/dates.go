// Package dates parses the date values accepted by search criteria:
// absolute dates and datetimes as stored in the inventory database, and the
// relative tokens (NOW, TODAY, -3DAY, LASTMONDAY, BEGINMONTH...) resolved
// against the session clock.
package dates

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Layouts used by the inventory database.
const (
	DateLayout     = "2006-01-02"
	DatetimeLayout = "2006-01-02 15:04:05"
)

var (
	dateRegex = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// IsValidDate checks if a string is a valid YYYY-MM-DD date.
func IsValidDate(s string) bool {
	if !dateRegex.MatchString(s) {
		return false
	}
	_, err := time.Parse(DateLayout, s)
	return err == nil
}

// ParseDate parses a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if !IsValidDate(s) {
		return time.Time{}, fmt.Errorf("invalid date: %q", s)
	}
	return time.Parse(DateLayout, s)
}

// IsValidDatetime checks if a string is a valid datetime.
func IsValidDatetime(s string) bool {
	_, err := ParseDatetime(s)
	return err == nil
}

// ParseDatetime parses a datetime. Accepted formats:
// - YYYY-MM-DD HH:MM:SS (database form)
// - YYYY-MM-DD HH:MM
// - RFC3339
// - YYYY-MM-DDTHH:MM[:SS]
func ParseDatetime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("invalid datetime: empty")
	}

	formats := []string{
		DatetimeLayout,
		"2006-01-02 15:04",
		time.RFC3339,
		"2006-01-02T15:04",
		"2006-01-02T15:04:05",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid datetime: %q", s)
}

// Value is a resolved search date. HasTime is false for plain dates and for
// day-granular tokens such as TODAY.
type Value struct {
	Time    time.Time
	HasTime bool
}

// Format renders the value the way the database stores it. Dates render as
// YYYY-MM-DD unless asDatetime is set.
func (v Value) Format(asDatetime bool) string {
	if asDatetime {
		return v.Time.Format(DatetimeLayout)
	}
	return v.Time.Format(DateLayout)
}

// ParseSearchValue resolves a criterion value: a relative token first, then
// an absolute datetime, then an absolute date.
func ParseSearchValue(s string, now time.Time) (Value, error) {
	s = strings.TrimSpace(s)
	if v, ok := ResolveRelative(s, now); ok {
		return v, nil
	}
	if t, err := ParseDatetime(s); err == nil {
		return Value{Time: t, HasTime: true}, nil
	}
	if t, err := ParseDate(s); err == nil {
		return Value{Time: t}, nil
	}
	return Value{}, fmt.Errorf("invalid date value %q, use YYYY-MM-DD[ HH:MM:SS] or a relative token", s)
}
