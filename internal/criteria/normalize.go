package criteria

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/aidanlsb/assetsearch/internal/searcherr"
	"github.com/aidanlsb/assetsearch/internal/searchopt"
)

// DefaultMaxDepth bounds group nesting.
const DefaultMaxDepth = 10

// ErrTooDeep is returned when criteria nest deeper than the configured cap.
var ErrTooDeep = errors.New("criteria too deeply nested")

// Node is a normalized criterion: *Resolved or *Branch.
type Node interface {
	node()
	LinkOf() Link
}

// Resolved is a validated leaf bound to its search option.
type Resolved struct {
	Link       Link
	Option     *searchopt.Option
	Meta       bool
	SearchType SearchType
	Value      string
	// NoOp leaves have an empty value and match everything.
	NoOp bool
	// Expanded marks leaves produced by a view/all expansion.
	Expanded bool
}

func (*Resolved) node()          {}
func (r *Resolved) LinkOf() Link { return r.Link }

// Itemtype returns the itemtype owning the option.
func (r *Resolved) Itemtype() string { return r.Option.Itemtype }

// Negated reports whether the leaf must be built as a negation: the link and
// the search type each contribute one NOT.
func (r *Resolved) Negated() bool {
	return r.Link.Negated() != r.SearchType.Negated()
}

// Branch groups normalized nodes.
type Branch struct {
	Link     Link
	Children []Node
}

func (*Branch) node()          {}
func (b *Branch) LinkOf() Link { return b.Link }

// Result is the normalized criteria tree of one search.
type Result struct {
	Itemtype string
	Root     *Branch
	Skipped  []*searcherr.InvalidCriterionError
}

// Leaves returns every resolved leaf in tree order, no-ops included.
func (r *Result) Leaves() []*Resolved {
	var out []*Resolved
	var walk func(nodes []Node)
	walk = func(nodes []Node) {
		for _, n := range nodes {
			switch x := n.(type) {
			case *Resolved:
				out = append(out, x)
			case *Branch:
				walk(x.Children)
			}
		}
	}
	if r.Root != nil {
		walk(r.Root.Children)
	}
	return out
}

// MetaItemtypes lists the distinct foreign itemtypes referenced by meta
// leaves, in first-use order.
func (r *Result) MetaItemtypes() []string {
	seen := map[string]bool{}
	var out []string
	for _, l := range r.Leaves() {
		if l.Meta && !seen[l.Itemtype()] {
			seen[l.Itemtype()] = true
			out = append(out, l.Itemtype())
		}
	}
	return out
}

// Normalizer validates criteria against the registry.
type Normalizer struct {
	registry *searchopt.Registry
	maxDepth int
	logger   zerolog.Logger
}

// NormalizerOption configures a Normalizer.
type NormalizerOption func(*Normalizer)

// WithMaxDepth overrides DefaultMaxDepth. Non-positive values are ignored.
func WithMaxDepth(depth int) NormalizerOption {
	return func(n *Normalizer) {
		if depth > 0 {
			n.maxDepth = depth
		}
	}
}

// WithLogger sets the logger skipped criteria are reported to.
func WithLogger(logger zerolog.Logger) NormalizerOption {
	return func(n *Normalizer) { n.logger = logger }
}

// NewNormalizer creates a Normalizer.
func NewNormalizer(registry *searchopt.Registry, opts ...NormalizerOption) *Normalizer {
	n := &Normalizer{registry: registry, maxDepth: DefaultMaxDepth, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Normalize resolves field references, expands view/all, drops invalid leaves
// and returns the canonical tree. Only an unknown itemtype or excessive
// nesting fail the whole call.
func (n *Normalizer) Normalize(itemtype string, list []Criterion) (*Result, error) {
	entity, ok := n.registry.Entity(itemtype)
	if !ok {
		return nil, &searcherr.ConfigurationError{Itemtype: itemtype, Message: "unknown itemtype"}
	}
	if _, err := n.registry.Options(itemtype); err != nil {
		return nil, err
	}
	if d := Depth(list); d > n.maxDepth {
		return nil, fmt.Errorf("%w: depth %d exceeds %d", ErrTooDeep, d, n.maxDepth)
	}

	res := &Result{Itemtype: itemtype}
	res.Root = &Branch{Link: LinkAnd, Children: n.normalizeList(entity, list, res)}
	return res, nil
}

func (n *Normalizer) normalizeList(entity *searchopt.Entity, list []Criterion, res *Result) []Node {
	var out []Node
	for _, c := range list {
		switch x := c.(type) {
		case *Group:
			children := n.normalizeList(entity, x.Criteria, res)
			if len(children) == 0 {
				continue
			}
			out = append(out, &Branch{Link: x.Link, Children: children})
		case *Leaf:
			node, err := n.resolveLeaf(entity, x)
			if err != nil {
				n.logger.Warn().
					Str("itemtype", err.Itemtype).
					Str("field", err.Field).
					Str("searchtype", err.SearchType).
					Str("reason", err.Reason).
					Msg("skipping invalid criterion")
				res.Skipped = append(res.Skipped, err)
				continue
			}
			out = append(out, node)
		}
	}
	return out
}

func (n *Normalizer) resolveLeaf(root *searchopt.Entity, leaf *Leaf) (Node, *searcherr.InvalidCriterionError) {
	target := root.Itemtype
	meta := false
	if leaf.Itemtype != "" && leaf.Itemtype != root.Itemtype {
		target = leaf.Itemtype
		meta = true
	}
	invalid := func(format string, args ...any) *searcherr.InvalidCriterionError {
		return &searcherr.InvalidCriterionError{
			Itemtype:   target,
			Field:      leaf.Field.String(),
			SearchType: string(leaf.SearchType),
			Value:      leaf.Value,
			Reason:     fmt.Sprintf(format, args...),
		}
	}

	if leaf.Meta && leaf.Itemtype == "" {
		return nil, invalid("meta criterion requires an itemtype")
	}
	if meta {
		if _, ok := root.MetaPath(target); !ok {
			return nil, invalid("no link from %s to %s", root.Itemtype, target)
		}
	}
	if !KnownSearchType(leaf.SearchType) {
		return nil, invalid("unknown searchtype")
	}
	set, err := n.registry.Options(target)
	if err != nil {
		return nil, invalid("%v", err)
	}

	noop := strings.TrimSpace(leaf.Value) == ""

	if leaf.Field.IsSynthetic() {
		ids := set.ViewFields()
		if leaf.Field.Special == searchopt.FieldAll {
			ids = set.SearchableFields()
		}
		// A negated expansion becomes a conjunction of negated leaves so
		// every member keeps its NULL-safe form.
		branch := &Branch{Link: leaf.Link}
		if leaf.Link.Negated() {
			branch.Link = Link(leaf.Link.Keyword())
		}
		for _, id := range ids {
			opt, _ := set.Get(id)
			if opt.Flags.NoSearch || (meta && opt.Flags.NoMeta) || !Accepts(opt, leaf.SearchType) {
				continue
			}
			link := LinkOr
			switch {
			case leaf.Link.Negated():
				link = LinkAndNot
			case len(branch.Children) == 0:
				link = LinkAnd
			}
			branch.Children = append(branch.Children, &Resolved{
				Link:       link,
				Option:     opt,
				Meta:       meta,
				SearchType: leaf.SearchType,
				Value:      leaf.Value,
				NoOp:       noop,
				Expanded:   true,
			})
		}
		if len(branch.Children) == 0 {
			return nil, invalid("no %s field supports %s", leaf.Field.Special, leaf.SearchType)
		}
		return branch, nil
	}

	opt, ok := set.Get(leaf.Field.ID)
	if !ok {
		return nil, invalid("unknown field")
	}
	if opt.Flags.NoSearch {
		return nil, invalid("field is not searchable")
	}
	if meta && opt.Flags.NoMeta {
		return nil, invalid("field cannot be used in a meta criterion")
	}
	if !Accepts(opt, leaf.SearchType) {
		return nil, invalid("searchtype not supported for %s fields", opt.Datatype)
	}
	return &Resolved{
		Link:       leaf.Link,
		Option:     opt,
		Meta:       meta,
		SearchType: leaf.SearchType,
		Value:      leaf.Value,
		NoOp:       noop,
	}, nil
}

// KnownSearchType reports whether st is one of the supported search types.
func KnownSearchType(st SearchType) bool {
	switch st {
	case Contains, NotContains, Equals, NotEquals, LessThan, MoreThan, Under, NotUnder:
		return true
	}
	return false
}

// Accepts reports whether an option supports a search type.
func Accepts(opt *searchopt.Option, st SearchType) bool {
	switch st.Positive() {
	case Contains, Equals:
		return true
	case LessThan, MoreThan:
		return opt.Datatype.IsNumeric() || opt.Datatype.IsTemporal()
	case Under:
		return opt.Datatype == searchopt.TypeDropdown && opt.Tree
	}
	return false
}
