// Package assemble combines planned joins and composed predicates into one
// executable SELECT statement, plus the matching count statement.
package assemble

import (
	"fmt"
	"strconv"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/aidanlsb/assetsearch/internal/criteria"
	"github.com/aidanlsb/assetsearch/internal/joins"
	"github.com/aidanlsb/assetsearch/internal/predicate"
	"github.com/aidanlsb/assetsearch/internal/searcherr"
	"github.com/aidanlsb/assetsearch/internal/searchopt"
	"github.com/aidanlsb/assetsearch/internal/sqlutil"
)

// Subfield names selected next to a column, as <Key>_<subfield>.
const (
	SubID        = "id"
	SubValues    = "values"
	SubRealname  = "realname"
	SubFirstname = "firstname"
)

// Column is one displayed field of the result.
type Column struct {
	Key      string
	Itemtype string
	ID       int
	Name     string
	Datatype searchopt.Datatype
	Meta     bool
	// Aggregated columns hold one value per related row, collapsed by
	// GROUP BY. Their values are also selected as a JSON array.
	Aggregated bool
	Subfields  []string
	Option     *searchopt.Option

	tableAlias string
}

// Request is everything the assembler needs for one search.
type Request struct {
	Itemtype   string
	Criteria   *criteria.Result
	Sort       []SortSpec
	Start      int
	Limit      int
	Deleted    Deleted
	Entities   []int
	NameFormat NameFormat
	Now        time.Time
}

// Assembler builds query plans from registry metadata.
type Assembler struct {
	registry *searchopt.Registry
}

// New creates an Assembler.
func New(registry *searchopt.Registry) *Assembler {
	return &Assembler{registry: registry}
}

// Assemble plans joins, composes predicates and builds the statement.
func (a *Assembler) Assemble(req Request) (*Plan, error) {
	planner, err := joins.NewPlanner(a.registry, req.Itemtype)
	if err != nil {
		return nil, err
	}
	set, err := a.registry.Options(req.Itemtype)
	if err != nil {
		return nil, err
	}
	entity := planner.Root()
	root := planner.RootAlias()
	rootID := root + "." + entity.PK()

	plan := &Plan{Itemtype: req.Itemtype, Start: req.Start, Limit: req.Limit, NameFormat: req.NameFormat}
	cols := &columnSet{byKey: map[string]int{}}

	for _, id := range set.ViewFields() {
		opt, _ := set.Get(id)
		cols.add(opt, false)
	}
	if req.Criteria != nil {
		for _, leaf := range req.Criteria.Leaves() {
			if leaf.NoOp {
				continue
			}
			if leaf.Expanded && predicate.TargetOf(leaf) == predicate.Where {
				continue
			}
			cols.add(leaf.Option, leaf.Meta)
		}
	}

	sorts := req.Sort
	if len(sorts) == 0 {
		if _, ok := set.Get(1); ok {
			sorts = []SortSpec{{Field: 1}}
		}
	}
	type sortKey struct {
		key       string
		direction string
	}
	var orderKeys []sortKey
	for _, s := range sorts {
		opt, ok := set.Get(s.Field)
		if !ok {
			plan.Skipped = append(plan.Skipped, &searcherr.InvalidCriterionError{
				Itemtype: req.Itemtype,
				Field:    strconv.Itoa(s.Field),
				Value:    s.Direction,
				Reason:   "unknown sort field",
			})
			continue
		}
		col := cols.add(opt, false)
		orderKeys = append(orderKeys, sortKey{key: col.Key, direction: Direction(s.Direction)})
	}

	for i := range cols.list {
		alias, err := planner.Option(cols.list[i].Option, cols.list[i].Meta)
		if err != nil {
			return nil, err
		}
		cols.list[i].tableAlias = alias
	}

	var preds *predicate.Predicates
	if req.Criteria != nil {
		preds, err = predicate.NewBuilder(req.Now).Compose(req.Criteria.Root, func(leaf *criteria.Resolved) (string, error) {
			return planner.Option(leaf.Option, leaf.Meta)
		})
		if err != nil {
			return nil, err
		}
		plan.Skipped = append(plan.Skipped, preds.Skipped...)
		plan.Regrouped = preds.Regrouped
	} else {
		preds = &predicate.Predicates{}
	}
	if err := planner.Validate(); err != nil {
		return nil, err
	}

	b := sq.Select(rootID + " AS id").From(root)
	for i := range cols.list {
		c := &cols.list[i]
		c.Subfields = subfields(c)
		b = b.Columns(selectExprs(c)...)
	}
	for _, n := range planner.Nodes() {
		b = b.LeftJoin(joinClause(n))
	}

	if entity.HasDeleted {
		switch req.Deleted {
		case DeletedNo:
			b = b.Where(root + ".is_deleted = 0")
		case DeletedYes:
			b = b.Where(root + ".is_deleted = 1")
		}
	}
	if entity.HasTemplate {
		b = b.Where(root + ".is_template = 0")
	}
	if entity.EntityColumn != "" && len(req.Entities) > 0 {
		ph, args := sqlutil.InClauseArgs(req.Entities)
		b = b.Where(fmt.Sprintf("%s.%s IN (%s)", root, entity.EntityColumn, ph), args...)
	}
	if !preds.Where.IsEmpty() {
		b = b.Where("("+preds.Where.SQL+")", preds.Where.Args...)
	}

	grouped := !preds.Having.IsEmpty()
	for _, c := range cols.list {
		if c.Aggregated {
			grouped = true
		}
	}
	if grouped {
		b = b.GroupBy(rootID)
	}
	if !preds.Having.IsEmpty() {
		b = b.Having("("+preds.Having.SQL+")", preds.Having.Args...)
	}

	for _, k := range orderKeys {
		c := cols.list[cols.byKey[k.key]]
		plan.OrderBy = append(plan.OrderBy, orderTerms(orderTarget{
			column:     c,
			tableAlias: c.tableAlias,
			direction:  k.direction,
			nameFormat: req.NameFormat,
		})...)
	}
	// Ties keep a stable order across pages.
	plan.OrderBy = append(plan.OrderBy, rootID+" ASC")

	plan.Columns = cols.list
	plan.Joins = planner.Nodes()
	plan.Where = preds.Where
	plan.Having = preds.Having
	plan.Grouped = grouped
	plan.base = b
	return plan, nil
}

type columnSet struct {
	list  []Column
	byKey map[string]int
}

func (s *columnSet) add(opt *searchopt.Option, meta bool) Column {
	key := searchopt.ColumnKey(opt.Itemtype, opt.ID)
	if i, ok := s.byKey[key]; ok {
		return s.list[i]
	}
	c := Column{
		Key:        key,
		Itemtype:   opt.Itemtype,
		ID:         opt.ID,
		Name:       opt.Name,
		Datatype:   opt.Datatype,
		Meta:       meta,
		Aggregated: meta || opt.OneToMany(),
		Option:     opt,
	}
	s.byKey[key] = len(s.list)
	s.list = append(s.list, c)
	return c
}

func selectExprs(c *Column) []string {
	opt := c.Option
	expr := predicate.ColumnExpr(opt, c.tableAlias)
	switch {
	case opt.Datatype == searchopt.TypeCount:
		return []string{fmt.Sprintf("COUNT(DISTINCT %s.%s) AS %s", c.tableAlias, opt.Field, c.Key)}
	case c.Aggregated:
		return []string{
			fmt.Sprintf("GROUP_CONCAT(DISTINCT %s) AS %s", expr, c.Key),
			fmt.Sprintf("json_group_array(DISTINCT %s) AS %s_%s", expr, c.Key, SubValues),
		}
	}
	out := []string{expr + " AS " + c.Key}
	if opt.Datatype == searchopt.TypeDropdown {
		out = append(out, fmt.Sprintf("%s.id AS %s_%s", c.tableAlias, c.Key, SubID))
	}
	if opt.Order == searchopt.OrderUserName {
		out = append(out,
			fmt.Sprintf("%s.realname AS %s_%s", c.tableAlias, c.Key, SubRealname),
			fmt.Sprintf("%s.firstname AS %s_%s", c.tableAlias, c.Key, SubFirstname))
	}
	return out
}

func subfields(c *Column) []string {
	opt := c.Option
	switch {
	case opt.Datatype == searchopt.TypeCount:
		return nil
	case c.Aggregated:
		return []string{SubValues}
	}
	var out []string
	if opt.Datatype == searchopt.TypeDropdown {
		out = append(out, SubID)
	}
	if opt.Order == searchopt.OrderUserName {
		out = append(out, SubRealname, SubFirstname)
	}
	return out
}

func joinClause(n *joins.Node) string {
	if n.Alias == n.Table {
		return fmt.Sprintf("%s ON %s", n.Table, n.On)
	}
	return fmt.Sprintf("%s AS %s ON %s", n.Table, n.Alias, n.On)
}
