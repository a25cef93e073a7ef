package assemble

import (
	"math"

	sq "github.com/Masterminds/squirrel"

	"github.com/aidanlsb/assetsearch/internal/criteria"
	"github.com/aidanlsb/assetsearch/internal/joins"
	"github.com/aidanlsb/assetsearch/internal/predicate"
	"github.com/aidanlsb/assetsearch/internal/searcherr"
)

// Plan is the assembled query of one search. It is built per request and
// never cached.
type Plan struct {
	Itemtype string
	Columns  []Column
	Joins    []*joins.Node
	Where    predicate.Fragment
	Having   predicate.Fragment
	Grouped  bool
	OrderBy  []string
	Start    int
	Limit    int
	// NameFormat is carried to the result mapper for person names.
	NameFormat NameFormat
	// Skipped lists criteria and sort keys dropped while building.
	Skipped []*searcherr.InvalidCriterionError
	// Regrouped lists criteria whose OR link was split between WHERE and
	// HAVING.
	Regrouped []*criteria.Resolved

	base sq.SelectBuilder
}

// SQL returns the paged statement.
func (p *Plan) SQL() (string, []any, error) {
	return p.page(p.Start, p.Limit).ToSql()
}

// PageSQL returns the statement for another window over the same query.
func (p *Plan) PageSQL(start, limit int) (string, []any, error) {
	return p.page(start, limit).ToSql()
}

// CountSQL returns a statement counting every row the un-paged query yields.
func (p *Plan) CountSQL() (string, []any, error) {
	return sq.Select("COUNT(*)").FromSelect(p.base, "counted").ToSql()
}

// Debug renders the paged statement with arguments inlined. The result is
// for display only and must never be executed.
func (p *Plan) Debug() string {
	return sq.DebugSqlizer(p.page(p.Start, p.Limit))
}

// Column returns the column with the given key.
func (p *Plan) Column(key string) (Column, bool) {
	for _, c := range p.Columns {
		if c.Key == key {
			return c, true
		}
	}
	return Column{}, false
}

func (p *Plan) page(start, limit int) sq.SelectBuilder {
	b := p.base
	if len(p.OrderBy) > 0 {
		b = b.OrderBy(p.OrderBy...)
	}
	switch {
	case limit > 0:
		b = b.Limit(uint64(limit))
	case start > 0:
		// SQLite only accepts OFFSET after a LIMIT.
		b = b.Limit(math.MaxInt64)
	}
	if start > 0 {
		b = b.Offset(uint64(start))
	}
	return b
}
