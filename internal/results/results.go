// Package results executes assembled plans and reshapes rows into a
// display-ready result set.
package results

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rs/xid"
	"github.com/rs/zerolog"

	"github.com/aidanlsb/assetsearch/internal/assemble"
	"github.com/aidanlsb/assetsearch/internal/searcherr"
	"github.com/aidanlsb/assetsearch/internal/searchopt"
	"github.com/aidanlsb/assetsearch/internal/sqlutil"
)

// Col is the display metadata of one result column.
type Col struct {
	Key       string   `json:"key"`
	Itemtype  string   `json:"itemtype"`
	ID        int      `json:"id"`
	Name      string   `json:"name"`
	Datatype  string   `json:"datatype"`
	Meta      bool     `json:"meta,omitempty"`
	Subfields []string `json:"subfields,omitempty"`
}

// Row is one result row. Raw holds every selected value keyed by
// ITEM_<Itemtype>_<id>[_<subfield>]; Values holds the display values of
// each column, one entry per related row for aggregated columns.
type Row struct {
	ID     int64               `json:"id"`
	Raw    map[string]any      `json:"raw"`
	Values map[string][]string `json:"values"`
}

// Display joins a column's values for single-line output.
func (r Row) Display(key string) string {
	return strings.Join(r.Values[key], ", ")
}

// ResultSet is the outcome of one search. TotalCount ignores the paging
// window; Begin and End bound the returned rows as [Begin, End).
type ResultSet struct {
	TotalCount int   `json:"totalcount"`
	Count      int   `json:"count"`
	Begin      int   `json:"begin"`
	End        int   `json:"end"`
	Cols       []Col `json:"cols"`
	Rows       []Row `json:"rows"`
}

// Mapper runs plans against a database.
type Mapper struct {
	db     *sql.DB
	logger zerolog.Logger
	debug  bool
}

// Option configures a Mapper.
type Option func(*Mapper)

// WithLogger sets the logger that records failed statements.
func WithLogger(l zerolog.Logger) Option {
	return func(m *Mapper) { m.logger = l }
}

// WithDebug exposes SQL and driver messages in returned errors.
func WithDebug(debug bool) Option {
	return func(m *Mapper) { m.debug = debug }
}

// NewMapper creates a Mapper over db.
func NewMapper(db *sql.DB, opts ...Option) *Mapper {
	m := &Mapper{db: db, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Map counts the plan's rows, then fetches its page. A start at or past the
// total restarts at the first page. Zero rows is a valid result.
func (m *Mapper) Map(ctx context.Context, plan *assemble.Plan) (*ResultSet, error) {
	countSQL, countArgs, err := plan.CountSQL()
	if err != nil {
		return nil, fmt.Errorf("failed to build count statement: %w", err)
	}
	var total int
	if err := m.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, m.dbError(countSQL, err)
	}

	start := plan.Start
	if start < 0 || (start > 0 && start >= total) {
		start = 0
	}

	pageSQL, pageArgs, err := plan.PageSQL(start, plan.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to build page statement: %w", err)
	}
	rows, err := m.db.QueryContext(ctx, pageSQL, pageArgs...)
	if err != nil {
		return nil, m.dbError(pageSQL, err)
	}
	scan, err := sqlutil.MapScanner(rows)
	if err != nil {
		rows.Close()
		return nil, m.dbError(pageSQL, err)
	}
	raws, err := sqlutil.ScanRows(rows, scan)
	if err != nil {
		return nil, m.dbError(pageSQL, err)
	}

	rs := &ResultSet{
		TotalCount: total,
		Count:      len(raws),
		Begin:      start,
		End:        start + len(raws),
		Cols:       columns(plan),
		Rows:       make([]Row, 0, len(raws)),
	}
	for _, raw := range raws {
		rs.Rows = append(rs.Rows, mapRow(plan, raw))
	}
	return rs, nil
}

func (m *Mapper) dbError(stmt string, err error) error {
	ref := xid.New().String()
	m.logger.Error().Err(err).Str("ref", ref).Str("sql", stmt).Msg("search query failed")
	return &searcherr.DatabaseError{Reference: ref, SQL: stmt, Debug: m.debug, Err: err}
}

func columns(plan *assemble.Plan) []Col {
	out := make([]Col, len(plan.Columns))
	for i, c := range plan.Columns {
		out[i] = Col{
			Key:       c.Key,
			Itemtype:  c.Itemtype,
			ID:        c.ID,
			Name:      c.Name,
			Datatype:  string(c.Datatype),
			Meta:      c.Meta,
			Subfields: c.Subfields,
		}
	}
	return out
}

func mapRow(plan *assemble.Plan, raw map[string]any) Row {
	row := Row{Raw: make(map[string]any, len(raw)), Values: make(map[string][]string, len(plan.Columns))}
	if id, ok := toInt64(raw["id"]); ok {
		row.ID = id
	}
	for k, v := range raw {
		if k != "id" {
			row.Raw[k] = v
		}
	}
	for _, c := range plan.Columns {
		row.Values[c.Key] = displayValues(c, raw, plan.NameFormat)
	}
	return row
}

func displayValues(c assemble.Column, raw map[string]any, nameFormat assemble.NameFormat) []string {
	if c.Aggregated && c.Datatype != searchopt.TypeCount {
		values := splitValues(raw[c.Key+"_"+assemble.SubValues])
		for i, v := range values {
			values[i] = formatValue(c.Datatype, v)
		}
		return values
	}

	v := raw[c.Key]
	if c.Option != nil && c.Option.Order == searchopt.OrderUserName {
		if name := personName(raw, c.Key, nameFormat); name != "" {
			return []string{name}
		}
	}
	if v == nil {
		return nil
	}
	return []string{formatValue(c.Datatype, v)}
}

// splitValues decodes a json_group_array result, dropping NULL entries.
func splitValues(v any) []string {
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var items []any
	if err := dec.Decode(&items); err != nil {
		return []string{s}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch x := item.(type) {
		case nil:
			continue
		case string:
			out = append(out, x)
		case json.Number:
			out = append(out, x.String())
		default:
			out = append(out, fmt.Sprint(x))
		}
	}
	return out
}

func personName(raw map[string]any, key string, nameFormat assemble.NameFormat) string {
	surname, _ := raw[key+"_"+assemble.SubRealname].(string)
	first, _ := raw[key+"_"+assemble.SubFirstname].(string)
	parts := []string{surname, first}
	if nameFormat == assemble.FirstnameFirst {
		parts = []string{first, surname}
	}
	var nonEmpty []string
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	return strings.Join(nonEmpty, " ")
}

func formatValue(dt searchopt.Datatype, v any) string {
	if dt == searchopt.TypeBool {
		switch fmt.Sprint(v) {
		case "1":
			return "Yes"
		case "0":
			return "No"
		}
	}
	switch x := v.(type) {
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case int64:
		return x, true
	case float64:
		return int64(x), true
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
