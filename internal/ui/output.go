package ui

import "fmt"

// Status lines carry a symbol instead of a colour.
const (
	symbolSuccess = "✓"
	symbolError   = "✗"
	symbolWarning = "⚠"
)

func status(symbol, format string, args []any) string {
	return symbol + " " + fmt.Sprintf(format, args...)
}

func Successf(format string, args ...any) string { return status(symbolSuccess, format, args) }

func Errorf(format string, args ...any) string { return status(symbolError, format, args) }

func Warningf(format string, args ...any) string { return status(symbolWarning, format, args) }

// Header renders an itemtype or section title.
func Header(msg string) string { return AccentBold.Render(msg) }

// Hint renders secondary text: paging, restored searches, SQL.
func Hint(msg string) string { return Muted.Render(msg) }

// Count pairs n with its noun, e.g. "1 match" or "3 matches".
func Count(n int, singular, plural string) string {
	noun := plural
	if n == 1 {
		noun = singular
	}
	return fmt.Sprintf("%d %s", n, noun)
}

// PageSummary describes a result window, e.g. "rows 1-20 of 134".
func PageSummary(begin, end, total int) string {
	if total == 0 || end <= begin {
		return "no rows (" + Count(total, "match", "matches") + ")"
	}
	return fmt.Sprintf("rows %d-%d of %d", begin+1, end, total)
}
