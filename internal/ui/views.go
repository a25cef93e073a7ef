package ui

import (
	"strconv"
	"strings"

	"github.com/aidanlsb/assetsearch/internal/results"
	"github.com/aidanlsb/assetsearch/internal/searchopt"
	"github.com/aidanlsb/assetsearch/internal/searchstore"
)

// ResultTable lays out a result set: row number, id, then one column per
// result column. Aggregated values are joined with commas.
func ResultTable(d *Display, rs *results.ResultSet) *Table {
	cols := []ColumnDef{
		{Header: "#", MinWidth: 2, Align: AlignRight, Muted: true},
		{Header: "ID", MinWidth: 2, Align: AlignRight, Muted: true},
	}
	for _, c := range rs.Cols {
		header := c.Name
		if c.Meta {
			header = c.Itemtype + " - " + c.Name
		}
		cols = append(cols, ColumnDef{Header: header, MinWidth: 6, MaxWidth: 60})
	}

	t := NewTable(d, cols...)
	for i, row := range rs.Rows {
		cells := []string{strconv.Itoa(rs.Begin + i + 1), strconv.FormatInt(row.ID, 10)}
		for _, c := range rs.Cols {
			cells = append(cells, row.Display(c.Key))
		}
		t.AddRow(cells...)
	}
	return t
}

// OptionsTable lists the search options of an itemtype.
func OptionsTable(d *Display, set *searchopt.OptionSet) *Table {
	t := NewTable(d,
		ColumnDef{Header: "ID", Align: AlignRight},
		ColumnDef{Header: "Name", MinWidth: 8},
		ColumnDef{Header: "Column", MinWidth: 10, Muted: true},
		ColumnDef{Header: "Type", MinWidth: 4},
		ColumnDef{Header: "Flags", MinWidth: 5, Muted: true},
	)
	view := make(map[int]bool)
	for _, id := range set.ViewFields() {
		view[id] = true
	}
	for _, o := range set.All() {
		t.AddRow(
			strconv.Itoa(o.ID),
			o.Name,
			o.Table+"."+o.Field,
			string(o.Datatype),
			optionFlags(o, view[o.ID]),
		)
	}
	return t
}

func optionFlags(o *searchopt.Option, inView bool) string {
	var flags []string
	if inView {
		flags = append(flags, "view")
	}
	if o.Flags.NoSearch {
		flags = append(flags, "nosearch")
	}
	if o.Flags.NoMeta {
		flags = append(flags, "nometa")
	}
	if o.OneToMany() {
		flags = append(flags, "aggregated")
	}
	if o.Tree {
		flags = append(flags, "tree")
	}
	return strings.Join(flags, ",")
}

// BookmarksTable lists saved searches.
func BookmarksTable(d *Display, list []*searchstore.Bookmark) *Table {
	t := NewTable(d,
		ColumnDef{Header: "Name", MinWidth: 8},
		ColumnDef{Header: "Itemtype", MinWidth: 6},
		ColumnDef{Header: "Saved", Muted: true},
	)
	for _, b := range list {
		t.AddRow(b.Name, b.Query.Itemtype, b.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return t
}
