// Package criteria models user-supplied search criteria and normalizes them
// against the search-option registry.
package criteria

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/aidanlsb/assetsearch/internal/searchopt"
)

// Link joins a criterion to its previous sibling.
type Link string

const (
	LinkAnd    Link = "AND"
	LinkOr     Link = "OR"
	LinkAndNot Link = "AND NOT"
	LinkOrNot  Link = "OR NOT"
)

// ParseLink parses a link keyword. Empty means AND.
func ParseLink(s string) (Link, error) {
	norm := strings.Join(strings.Fields(strings.ToUpper(s)), " ")
	switch norm {
	case "", "AND":
		return LinkAnd, nil
	case "OR":
		return LinkOr, nil
	case "AND NOT", "NOT":
		return LinkAndNot, nil
	case "OR NOT":
		return LinkOrNot, nil
	default:
		return "", fmt.Errorf("unknown link %q", s)
	}
}

// Negated reports whether the link carries NOT.
func (l Link) Negated() bool { return l == LinkAndNot || l == LinkOrNot }

// Keyword returns the boolean connective without the negation.
func (l Link) Keyword() string {
	if l == LinkOr || l == LinkOrNot {
		return "OR"
	}
	return "AND"
}

// SearchType is the comparison requested by a leaf criterion.
type SearchType string

const (
	Contains    SearchType = "contains"
	NotContains SearchType = "notcontains"
	Equals      SearchType = "equals"
	NotEquals   SearchType = "notequals"
	LessThan    SearchType = "lessthan"
	MoreThan    SearchType = "morethan"
	Under       SearchType = "under"
	NotUnder    SearchType = "notunder"
)

// Negated reports whether the search type is the negative form of another.
func (s SearchType) Negated() bool {
	return s == NotContains || s == NotEquals || s == NotUnder
}

// Positive returns the non-negated form.
func (s SearchType) Positive() SearchType {
	switch s {
	case NotContains:
		return Contains
	case NotEquals:
		return Equals
	case NotUnder:
		return Under
	default:
		return s
	}
}

// FieldRef points at a search option id or a synthetic field.
type FieldRef struct {
	ID      int
	Special string // searchopt.FieldView or searchopt.FieldAll
}

func (f FieldRef) String() string {
	if f.Special != "" {
		return f.Special
	}
	return strconv.Itoa(f.ID)
}

// IsSynthetic reports whether the reference expands to several fields.
func (f FieldRef) IsSynthetic() bool { return f.Special != "" }

// ParseFieldRef accepts an int id, a numeric string, "view" or "all".
func ParseFieldRef(v any) (FieldRef, error) {
	switch x := v.(type) {
	case int:
		return FieldRef{ID: x}, nil
	case float64:
		if x != float64(int(x)) {
			return FieldRef{}, fmt.Errorf("field id %v is not an integer", x)
		}
		return FieldRef{ID: int(x)}, nil
	case json.Number:
		n, err := strconv.Atoi(x.String())
		if err != nil {
			return FieldRef{}, fmt.Errorf("field id %q is not an integer", x)
		}
		return FieldRef{ID: n}, nil
	case string:
		s := strings.ToLower(strings.TrimSpace(x))
		switch s {
		case searchopt.FieldView, searchopt.FieldAll:
			return FieldRef{Special: s}, nil
		}
		n, err := strconv.Atoi(s)
		if err != nil {
			return FieldRef{}, fmt.Errorf("unknown field %q", x)
		}
		return FieldRef{ID: n}, nil
	case nil:
		return FieldRef{}, fmt.Errorf("missing field")
	default:
		return FieldRef{}, fmt.Errorf("unsupported field value %v", v)
	}
}

// Criterion is either a *Leaf or a *Group.
type Criterion interface {
	criterionNode()
	LinkOf() Link
}

// Leaf is a single condition.
type Leaf struct {
	Link       Link
	Field      FieldRef
	SearchType SearchType
	Value      string
	// Itemtype targets a related itemtype; different from the searched one
	// means a meta criterion.
	Itemtype string
	Meta     bool
}

func (*Leaf) criterionNode() {}
func (l *Leaf) LinkOf() Link { return l.Link }

// Group nests criteria under one link.
type Group struct {
	Link     Link
	Criteria []Criterion
}

func (*Group) criterionNode() {}
func (g *Group) LinkOf() Link { return g.Link }

// Depth returns the nesting depth of a criteria list; a flat list is 1.
func Depth(list []Criterion) int {
	max := 0
	for _, c := range list {
		d := 1
		if g, ok := c.(*Group); ok {
			d = 1 + Depth(g.Criteria)
		}
		if d > max {
			max = d
		}
	}
	return max
}
