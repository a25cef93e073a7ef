// Package joins plans the LEFT JOIN chain needed to reach every search
// option's table from the searched itemtype's base table.
package joins

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/aidanlsb/assetsearch/internal/searcherr"
	"github.com/aidanlsb/assetsearch/internal/searchopt"
)

// MaxChainDepth bounds nested beforejoin chains.
const MaxChainDepth = 8

var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Node is one planned LEFT JOIN.
type Node struct {
	Table       string
	Alias       string
	ParentAlias string
	On          string
	// Key is the structural identity of the join; equal keys share an alias.
	Key string
}

// Planner accumulates joins for one search. It is not safe for concurrent
// use; create one per request.
type Planner struct {
	registry *searchopt.Registry
	root     *searchopt.Entity

	nodes   []*Node
	byKey   map[string]*Node
	byAlias map[string]*Node
	tables  map[string]string // alias -> table, root included
	meta    map[string]string // meta itemtype -> alias of its base table
	// metaPath maps a meta itemtype to the aliases of the tables on its
	// meta link, keyed by table.
	metaPath map[string]map[string]string
}

// NewPlanner creates a planner rooted at itemtype's base table.
func NewPlanner(registry *searchopt.Registry, itemtype string) (*Planner, error) {
	root, ok := registry.Entity(itemtype)
	if !ok {
		return nil, &searcherr.ConfigurationError{Itemtype: itemtype, Message: "unknown itemtype"}
	}
	return &Planner{
		registry: registry,
		root:     root,
		byKey:    make(map[string]*Node),
		byAlias:  make(map[string]*Node),
		tables:   map[string]string{root.Table: root.Table},
		meta:     make(map[string]string),
		metaPath: make(map[string]map[string]string),
	}, nil
}

// RootAlias is the alias of the searched itemtype's base table.
func (p *Planner) RootAlias() string { return p.root.Table }

// Root returns the searched entity.
func (p *Planner) Root() *searchopt.Entity { return p.root }

// Nodes returns the planned joins in emission order.
func (p *Planner) Nodes() []*Node {
	out := make([]*Node, len(p.nodes))
	copy(out, p.nodes)
	return out
}

// TableOf returns the table behind an alias.
func (p *Planner) TableOf(alias string) (string, bool) {
	t, ok := p.tables[alias]
	return t, ok
}

// scope is where a chain of joins starts: the root table, or the base table
// of a meta itemtype reached through its meta link.
type scope struct {
	itemtype  string // owner of the chain, used for polymorphic literals
	alias     string
	table     string
	metaLabel string // suffix for meta aliases, empty at root
}

func (p *Planner) rootScope() scope {
	return scope{itemtype: p.root.Itemtype, alias: p.root.Table, table: p.root.Table}
}

// Option ensures every join needed by opt is planned and returns the alias
// under which opt.Table is reachable. Meta options are joined from the meta
// itemtype's base table, except that a table already on the meta link is
// reused: it holds the rows related to the searched item only.
func (p *Planner) Option(opt *searchopt.Option, meta bool) (string, error) {
	sc := p.rootScope()
	if meta {
		alias, err := p.Meta(opt.Itemtype)
		if err != nil {
			return "", err
		}
		metaEntity, _ := p.registry.Entity(opt.Itemtype)
		sc = scope{itemtype: opt.Itemtype, alias: alias, table: metaEntity.Table, metaLabel: opt.Itemtype}
	} else if opt.Itemtype != "" && opt.Itemtype != p.root.Itemtype {
		return "", &searcherr.JoinPlanningError{
			Table:   opt.Table,
			Message: fmt.Sprintf("option of %s used on %s without a meta link", opt.Itemtype, p.root.Itemtype),
		}
	}

	if opt.Table == sc.table && opt.LinkField == "" && opt.JoinParams.IsZero() {
		return sc.alias, nil
	}

	step := searchopt.JoinStep{Table: opt.Table, LinkField: opt.LinkField, Params: opt.JoinParams}
	return p.chain(sc, sc.alias, sc.table, step, nil, false)
}

// Meta plans the meta-link path from the root to itemtype's base table and
// returns the alias of that table.
func (p *Planner) Meta(itemtype string) (string, error) {
	if alias, ok := p.meta[itemtype]; ok {
		return alias, nil
	}
	path, ok := p.root.MetaPath(itemtype)
	if !ok || len(path) == 0 {
		return "", &searcherr.ConfigurationError{
			Itemtype: p.root.Itemtype,
			Message:  fmt.Sprintf("no meta link to %s", itemtype),
		}
	}
	target, ok := p.registry.Entity(itemtype)
	if !ok {
		return "", &searcherr.ConfigurationError{Itemtype: itemtype, Message: "unknown itemtype"}
	}
	if last := path[len(path)-1].Table; last != target.Table {
		return "", &searcherr.ConfigurationError{
			Itemtype: p.root.Itemtype,
			Message:  fmt.Sprintf("meta link to %s ends at %s instead of %s", itemtype, last, target.Table),
		}
	}

	sc := p.rootScope()
	sc.metaLabel = itemtype
	alias, table := sc.alias, sc.table
	onPath := make(map[string]string, len(path))
	for _, step := range path {
		var err error
		alias, err = p.chain(sc, alias, table, step, nil, true)
		if err != nil {
			return "", err
		}
		table = step.Table
		onPath[table] = alias
	}
	p.meta[itemtype] = alias
	p.metaPath[itemtype] = onPath
	return alias, nil
}

// chain plans step's beforejoin steps depth-first, then step itself, and
// returns step's alias. seen holds the steps of the enclosing chain.
func (p *Planner) chain(sc scope, parentAlias, parentTable string, step searchopt.JoinStep, seen []string, metaPath bool) (string, error) {
	if len(seen) >= MaxChainDepth {
		return "", &searcherr.JoinPlanningError{Table: step.Table, Message: "beforejoin chain too deep"}
	}
	id := step.Table + "|" + step.LinkField + "|" + step.Params.Signature()
	for _, s := range seen {
		if s == id {
			return "", &searcherr.JoinPlanningError{Table: step.Table, Message: "circular beforejoin chain"}
		}
	}
	seen = append(seen, id)

	if sc.metaLabel != "" && !metaPath {
		if alias, ok := p.metaPath[sc.metaLabel][step.Table]; ok {
			return alias, nil
		}
	}

	for _, before := range step.Params.BeforeJoin {
		alias, err := p.chain(sc, parentAlias, parentTable, before, seen, false)
		if err != nil {
			return "", err
		}
		parentAlias, parentTable = alias, before.Table
	}
	return p.join(sc, parentAlias, parentTable, step, metaPath)
}

func (p *Planner) join(sc scope, parentAlias, parentTable string, step searchopt.JoinStep, metaPath bool) (string, error) {
	params := step.Params
	linkField := step.LinkField
	if linkField == "" {
		linkField = params.DefaultLinkField(step.Table, parentTable)
	}
	itemtype := sc.itemtype
	if params.Polymorphic != nil && params.Polymorphic.Itemtype != "" {
		itemtype = params.Polymorphic.Itemtype
	}

	for _, ident := range []string{step.Table, linkField} {
		if !identRegex.MatchString(ident) {
			return "", &searcherr.JoinPlanningError{Table: step.Table, Message: fmt.Sprintf("invalid identifier %q", ident)}
		}
	}

	key := structuralKey(parentAlias, step.Table, linkField, params, itemtype)
	if n, ok := p.byKey[key]; ok {
		return n.Alias, nil
	}

	alias := p.alias(sc, parentAlias, step.Table, linkField, params, key, metaPath)
	if other, taken := p.byAlias[alias]; taken {
		return "", &searcherr.JoinPlanningError{
			Table:   step.Table,
			Message: fmt.Sprintf("alias %s already used by a different join (%s)", alias, other.Key),
		}
	}

	on, err := onClause(parentAlias, alias, linkField, params, itemtype)
	if err != nil {
		return "", &searcherr.JoinPlanningError{Table: step.Table, Message: err.Error()}
	}

	n := &Node{Table: step.Table, Alias: alias, ParentAlias: parentAlias, On: on, Key: key}
	p.nodes = append(p.nodes, n)
	p.byKey[key] = n
	p.byAlias[alias] = n
	p.tables[alias] = step.Table
	return alias, nil
}

// alias names a join. Plain joins from the scope's base table keep the table
// name (plus the link field when it is not the conventional FK); meta path
// steps carry the meta itemtype; everything else gets a content hash.
func (p *Planner) alias(sc scope, parentAlias, table, linkField string, params searchopt.JoinParams, key string, metaPath bool) string {
	suffix := ""
	if sc.metaLabel != "" {
		suffix = "_" + sc.metaLabel
	}
	if metaPath {
		return table + suffix
	}
	plain := parentAlias == sc.alias &&
		params.Kind == searchopt.JoinStandard &&
		params.Polymorphic == nil &&
		len(params.Conditions) == 0 &&
		table != sc.table &&
		table != p.root.Table
	if plain {
		if linkField != searchopt.ForeignKeyForTable(table) {
			return table + "_" + linkField + suffix
		}
		return table + suffix
	}
	return fmt.Sprintf("%s_%016x", table, xxhash.Sum64String(key))
}

func structuralKey(parentAlias, table, linkField string, params searchopt.JoinParams, itemtype string) string {
	var b strings.Builder
	b.WriteString(parentAlias)
	b.WriteString("|")
	b.WriteString(table)
	b.WriteString("|")
	b.WriteString(linkField)
	b.WriteString("|")
	b.WriteString(params.Signature())
	if params.Kind == searchopt.JoinPolymorphic || params.Kind == searchopt.JoinPolymorphicRevert {
		b.WriteString("|on=")
		b.WriteString(itemtype)
	}
	return b.String()
}

func onClause(parent, alias, linkField string, params searchopt.JoinParams, itemtype string) (string, error) {
	var parts []string
	switch params.Kind {
	case searchopt.JoinStandard:
		parts = append(parts, fmt.Sprintf("%s.%s = %s.id", parent, linkField, alias))
	case searchopt.JoinChild:
		parts = append(parts, fmt.Sprintf("%s.id = %s.%s", parent, alias, linkField))
	case searchopt.JoinPolymorphic:
		parts = append(parts,
			fmt.Sprintf("%s.id = %s.%s", parent, alias, linkField),
			fmt.Sprintf("%s.itemtype = %s", alias, quote(itemtype)))
	case searchopt.JoinPolymorphicRevert:
		parts = append(parts,
			fmt.Sprintf("%s.id = %s.%s", alias, parent, linkField),
			fmt.Sprintf("%s.itemtype = %s", parent, quote(itemtype)))
	default:
		return "", fmt.Errorf("unsupported join kind %s", params.Kind)
	}

	for _, c := range params.Conditions {
		if !identRegex.MatchString(c.Column) {
			return "", fmt.Errorf("invalid condition column %q", c.Column)
		}
		lit, err := literal(c.Value)
		if err != nil {
			return "", fmt.Errorf("condition on %s: %w", c.Column, err)
		}
		if lit == "NULL" {
			parts = append(parts, fmt.Sprintf("%s.%s IS NULL", alias, c.Column))
			continue
		}
		parts = append(parts, fmt.Sprintf("%s.%s = %s", alias, c.Column, lit))
	}
	return strings.Join(parts, " AND "), nil
}

// literal renders trusted metadata values inline.
func literal(v any) (string, error) {
	switch x := v.(type) {
	case nil:
		return "NULL", nil
	case string:
		return quote(x), nil
	case bool:
		if x {
			return "1", nil
		}
		return "0", nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("unsupported literal %T", v)
	}
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Validate checks that every join's parent is the root or an earlier join.
func (p *Planner) Validate() error {
	known := map[string]bool{p.root.Table: true}
	for _, n := range p.nodes {
		if !known[n.ParentAlias] {
			return &searcherr.JoinPlanningError{
				Table:   n.Table,
				Message: fmt.Sprintf("parent alias %s is not joined before %s", n.ParentAlias, n.Alias),
			}
		}
		known[n.Alias] = true
	}
	return nil
}
