package ui

import (
	"os"

	"github.com/charmbracelet/x/term"
)

// DefaultTermWidth is the fallback terminal width when detection fails or
// output is piped.
const DefaultTermWidth = 120

// Display holds the output width and whether stdout is a terminal.
type Display struct {
	Width int
	IsTTY bool
}

// NewDisplay detects the terminal attached to stdout.
func NewDisplay() *Display {
	fd := os.Stdout.Fd()
	isTTY := term.IsTerminal(fd)

	width := DefaultTermWidth
	if isTTY {
		if w, _, err := term.GetSize(fd); err == nil && w > 0 {
			width = w
		}
	}
	return &Display{Width: width, IsTTY: isTTY}
}

// FixedDisplay returns a display with a fixed width, for tests and --width.
func FixedDisplay(width int) *Display {
	if width <= 0 {
		width = DefaultTermWidth
	}
	return &Display{Width: width, IsTTY: false}
}
