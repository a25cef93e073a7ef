package predicate

import (
	"errors"
	"slices"
	"strings"

	"github.com/aidanlsb/assetsearch/internal/criteria"
	"github.com/aidanlsb/assetsearch/internal/searcherr"
)

// AliasResolver returns the table alias a leaf's option is joined under.
type AliasResolver func(leaf *criteria.Resolved) (string, error)

// Predicates is the composed WHERE and HAVING of one search.
type Predicates struct {
	Where   Fragment
	Having  Fragment
	Skipped []*searcherr.InvalidCriterionError
	// Regrouped lists HAVING leaves that shared a group with WHERE
	// conditions under an OR. The two clauses are ANDed, so that OR
	// does not hold across them.
	Regrouped []*criteria.Resolved
}

// Compose renders the criteria tree twice, once per target, keeping the
// original link order and nesting. Each pass only emits the leaves that
// belong to its clause. Leaves with invalid values are skipped and
// reported; any other error aborts.
func (b *Builder) Compose(root *criteria.Branch, resolve AliasResolver) (*Predicates, error) {
	out := &Predicates{}
	if root == nil {
		return out, nil
	}
	for _, target := range []Target{Where, Having} {
		sql, args, err := b.render(root.Children, target, resolve, out)
		if err != nil {
			return nil, err
		}
		frag := Fragment{SQL: sql, Args: args, Target: target}
		if target == Where {
			out.Where = frag
		} else {
			out.Having = frag
		}
	}
	regrouped(root, out)
	return out, nil
}

// regrouped walks b and records the HAVING leaves of every group that mixes
// both targets with an OR link. It returns the targets found under b.
func regrouped(b *criteria.Branch, out *Predicates) (where, having []*criteria.Resolved) {
	orLinked, seen := false, 0
	for _, n := range b.Children {
		var w, h []*criteria.Resolved
		switch x := n.(type) {
		case *criteria.Resolved:
			if x.NoOp {
				continue
			}
			if TargetOf(x) == Having {
				h = []*criteria.Resolved{x}
			} else {
				w = []*criteria.Resolved{x}
			}
		case *criteria.Branch:
			w, h = regrouped(x, out)
		}
		if len(w)+len(h) == 0 {
			continue
		}
		if seen > 0 && n.LinkOf().Keyword() == "OR" {
			orLinked = true
		}
		seen++
		where = append(where, w...)
		having = append(having, h...)
	}
	if orLinked && len(where) > 0 && len(having) > 0 {
		for _, h := range having {
			if !slices.Contains(out.Regrouped, h) {
				out.Regrouped = append(out.Regrouped, h)
			}
		}
	}
	return where, having
}

func (b *Builder) render(nodes []criteria.Node, target Target, resolve AliasResolver, out *Predicates) (string, []any, error) {
	var (
		sb   strings.Builder
		args []any
	)
	for _, n := range nodes {
		var (
			frag     string
			fragArgs []any
		)
		switch x := n.(type) {
		case *criteria.Resolved:
			if x.NoOp || TargetOf(x) != target {
				continue
			}
			alias, err := resolve(x)
			if err != nil {
				return "", nil, err
			}
			f, err := b.Leaf(x, alias)
			if err != nil {
				var invalid *searcherr.InvalidCriterionError
				if errors.As(err, &invalid) {
					out.Skipped = append(out.Skipped, invalid)
					continue
				}
				return "", nil, err
			}
			frag, fragArgs = f.SQL, f.Args

		case *criteria.Branch:
			inner, innerArgs, err := b.render(x.Children, target, resolve, out)
			if err != nil {
				return "", nil, err
			}
			if inner == "" {
				continue
			}
			frag, fragArgs = "("+inner+")", innerArgs
			if x.Link.Negated() {
				// Unknown counts as not matching, so absent rows pass the NOT.
				frag = "NOT COALESCE(" + frag + ", 0)"
			}
		}

		if sb.Len() > 0 {
			sb.WriteString(" ")
			sb.WriteString(n.LinkOf().Keyword())
			sb.WriteString(" ")
		}
		sb.WriteString(frag)
		args = append(args, fragArgs...)
	}
	return sb.String(), args, nil
}
