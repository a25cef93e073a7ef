package searchopt

import (
	"fmt"
	"sort"
	"strings"
)

// JoinKind is the topology used to reach a table from its parent.
type JoinKind int

const (
	// JoinStandard: parent.<linkfield> = table.id. Covers both the generic
	// <table>_id column and special FKs such as users_id_tech.
	JoinStandard JoinKind = iota
	// JoinChild: parent.id = table.<linkfield>, linkfield defaulting to the
	// parent's FK name.
	JoinChild
	// JoinPolymorphic (itemtype_item): parent.id = table.items_id and
	// table.itemtype = '<Itemtype>'.
	JoinPolymorphic
	// JoinPolymorphicRevert (itemtype_item_revert): table.id =
	// parent.items_id and parent.itemtype = '<Itemtype>'.
	JoinPolymorphicRevert
)

var joinKindNames = map[JoinKind]string{
	JoinStandard:          "standard",
	JoinChild:             "child",
	JoinPolymorphic:       "itemtype_item",
	JoinPolymorphicRevert: "itemtype_item_revert",
}

func (k JoinKind) String() string {
	if s, ok := joinKindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("JoinKind(%d)", int(k))
}

// ParseJoinKind accepts the catalog spelling of a join type. Empty and
// "direct" mean standard.
func ParseJoinKind(s string) (JoinKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "standard", "direct":
		return JoinStandard, nil
	case "child":
		return JoinChild, nil
	case "itemtype_item":
		return JoinPolymorphic, nil
	case "itemtype_item_revert":
		return JoinPolymorphicRevert, nil
	default:
		return 0, fmt.Errorf("unknown jointype %q", s)
	}
}

// PolymorphicRelation pins the itemtype literal written into an
// itemtype/items_id join. When nil the itemtype being searched is used.
type PolymorphicRelation struct {
	Itemtype string
}

// JoinCondition is an extra equality on the joined table, e.g.
// is_deleted = 0 or type = 2. Values come from trusted metadata.
type JoinCondition struct {
	Column string
	Value  any
}

// JoinParams describes how to reach a table from its parent table.
type JoinParams struct {
	Kind        JoinKind
	Polymorphic *PolymorphicRelation
	Conditions  []JoinCondition
	BeforeJoin  []JoinStep
}

// JoinStep is an intermediate table that must be joined before the target.
type JoinStep struct {
	Table     string
	LinkField string
	Params    JoinParams
}

// IsZero reports whether the params describe a plain standard join.
func (p JoinParams) IsZero() bool {
	return p.Kind == JoinStandard && p.Polymorphic == nil && len(p.Conditions) == 0 && len(p.BeforeJoin) == 0
}

// Signature is a canonical text form of the params, stable across runs.
// Conditions are sorted so declaration order does not change aliases.
// BeforeJoin is excluded: the planner accounts for it through parent aliases.
func (p JoinParams) Signature() string {
	var b strings.Builder
	b.WriteString(p.Kind.String())
	if p.Polymorphic != nil {
		b.WriteString("|itemtype=")
		b.WriteString(p.Polymorphic.Itemtype)
	}
	if len(p.Conditions) > 0 {
		conds := make([]string, len(p.Conditions))
		for i, c := range p.Conditions {
			conds[i] = fmt.Sprintf("%s=%v", c.Column, c.Value)
		}
		sort.Strings(conds)
		b.WriteString("|cond=")
		b.WriteString(strings.Join(conds, ","))
	}
	return b.String()
}

// DefaultLinkField returns the FK column for a step given its parent table.
func (p JoinParams) DefaultLinkField(table, parentTable string) string {
	switch p.Kind {
	case JoinChild:
		return ForeignKeyForTable(parentTable)
	case JoinPolymorphic, JoinPolymorphicRevert:
		return "items_id"
	default:
		return ForeignKeyForTable(table)
	}
}

// Tables lists every table referenced by the params, beforejoin first.
func (p JoinParams) Tables() []string {
	var out []string
	for _, step := range p.BeforeJoin {
		out = append(out, step.Params.Tables()...)
		out = append(out, step.Table)
	}
	return out
}
