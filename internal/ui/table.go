package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Alignment represents column text alignment.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignRight
)

// ColumnDef defines a column in a Table.
type ColumnDef struct {
	Header   string
	MinWidth int       // Minimum width when shrinking to fit (default 3)
	MaxWidth int       // Maximum width (0 = no limit)
	Align    Alignment // Text alignment
	Muted    bool      // Render body cells in the muted style
}

const columnPadding = 2

// Table renders rows under a header, shrinking the widest columns until
// the table fits the display width.
type Table struct {
	display *Display
	columns []ColumnDef
	rows    [][]string
}

// NewTable creates a table with the given columns.
func NewTable(display *Display, columns ...ColumnDef) *Table {
	if display == nil {
		display = FixedDisplay(DefaultTermWidth)
	}
	return &Table{display: display, columns: columns}
}

// AddRow adds a row. Missing cells render empty, extra cells are dropped.
func (t *Table) AddRow(cells ...string) {
	row := make([]string, len(t.columns))
	copy(row, cells)
	for i := range row {
		row[i] = strings.ReplaceAll(row[i], "\n", " ")
	}
	t.rows = append(t.rows, row)
}

// Len returns the number of body rows.
func (t *Table) Len() int { return len(t.rows) }

// widths computes column widths from content, capped by MaxWidth and the
// display width.
func (t *Table) widths() []int {
	widths := make([]int, len(t.columns))
	for i, col := range t.columns {
		widths[i] = lipgloss.Width(col.Header)
		for _, row := range t.rows {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
		if col.MaxWidth > 0 && widths[i] > col.MaxWidth {
			widths[i] = col.MaxWidth
		}
	}

	available := t.display.Width - (len(t.columns)-1)*columnPadding
	total := 0
	for _, w := range widths {
		total += w
	}
	for total > available {
		widest := -1
		for i, w := range widths {
			if w > t.minWidth(i) && (widest < 0 || w > widths[widest]) {
				widest = i
			}
		}
		if widest < 0 {
			break
		}
		widths[widest]--
		total--
	}
	return widths
}

func (t *Table) minWidth(i int) int {
	if m := t.columns[i].MinWidth; m > 0 {
		return m
	}
	return 3
}

// Render generates the table output as a string.
func (t *Table) Render() string {
	if len(t.columns) == 0 {
		return ""
	}
	widths := t.widths()

	headers := make([]string, len(t.columns))
	for i, col := range t.columns {
		headers[i] = TruncateWithEllipsis(col.Header, widths[i])
	}
	body := make([][]string, len(t.rows))
	for r, row := range t.rows {
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = TruncateWithEllipsis(cell, widths[i])
		}
		body[r] = cells
	}

	tbl := table.New().
		Border(lipgloss.Border{Top: "─", Bottom: "─", Middle: "─"}).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderHeader(true).
		BorderRow(false).
		BorderColumn(false).
		BorderStyle(Muted).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if col >= len(t.columns) {
				return lipgloss.NewStyle()
			}
			def := t.columns[col]
			style := lipgloss.NewStyle()
			switch {
			case row == table.HeaderRow:
				style = AccentBold
			case def.Muted:
				style = Muted
			}
			if def.Align == AlignRight {
				style = style.Align(lipgloss.Right)
			} else {
				style = style.Align(lipgloss.Left)
			}
			// Width includes padding.
			if col < len(t.columns)-1 {
				return style.PaddingRight(columnPadding).Width(widths[col] + columnPadding)
			}
			return style.Width(widths[col])
		}).
		Rows(body...)

	return tbl.Render()
}

// TruncateWithEllipsis shortens s to maxLen display cells, ending with
// "..." when something was cut. It breaks at a space when one is near.
func TruncateWithEllipsis(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if lipgloss.Width(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	if maxLen <= 3 {
		return string(runes[:min(maxLen, len(runes))])
	}
	cut := maxLen - 3
	if cut > len(runes) {
		cut = len(runes)
	}
	truncated := string(runes[:cut])
	if lastSpace := strings.LastIndex(truncated, " "); lastSpace > cut/2 {
		truncated = truncated[:lastSpace]
	}
	return truncated + "..."
}
