// Package searchopt holds the search-option metadata: which fields of each
// itemtype can be searched, displayed and sorted, and how to join their tables
// from the itemtype's base table.
package searchopt

import (
	"fmt"
	"strings"
)

// Datatype drives value encoding in the predicate builder and aggregation in
// the assembler.
type Datatype string

const (
	TypeString    Datatype = "string"
	TypeText      Datatype = "text"
	TypeNumber    Datatype = "number"
	TypeInteger   Datatype = "integer"
	TypeCount     Datatype = "count"
	TypeBool      Datatype = "bool"
	TypeDate      Datatype = "date"
	TypeDatetime  Datatype = "datetime"
	TypeDateDelay Datatype = "date_delay"
	TypeDropdown  Datatype = "dropdown"
	TypeRight     Datatype = "right"
	TypeIP        Datatype = "ip"
)

var knownDatatypes = map[Datatype]struct{}{
	TypeString: {}, TypeText: {}, TypeNumber: {}, TypeInteger: {}, TypeCount: {},
	TypeBool: {}, TypeDate: {}, TypeDatetime: {}, TypeDateDelay: {},
	TypeDropdown: {}, TypeRight: {}, TypeIP: {},
}

// ParseDatatype validates a datatype name. Empty means string.
func ParseDatatype(s string) (Datatype, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return TypeString, nil
	}
	dt := Datatype(s)
	if _, ok := knownDatatypes[dt]; !ok {
		return "", fmt.Errorf("unknown datatype %q", s)
	}
	return dt, nil
}

// IsNumeric reports whether values of this type compare as numbers.
func (d Datatype) IsNumeric() bool {
	return d == TypeNumber || d == TypeInteger || d == TypeCount
}

// IsTemporal reports whether values of this type are dates or datetimes.
func (d Datatype) IsTemporal() bool {
	return d == TypeDate || d == TypeDatetime || d == TypeDateDelay
}

// IsTextual reports whether the type uses free-text LIKE semantics.
func (d Datatype) IsTextual() bool {
	return d == TypeString || d == TypeText || d == TypeIP
}

// Flags are the boolean switches of a search option.
type Flags struct {
	NoSearch      bool `yaml:"nosearch"`
	NoMeta        bool `yaml:"nometa"`
	MassiveAction bool `yaml:"massiveaction"`
	UseHaving     bool `yaml:"usehaving"`
	ForceGroupBy  bool `yaml:"forcegroupby"`
}

// OrderKind selects a non-standard ORDER BY expression for a field.
type OrderKind int

const (
	OrderDefault OrderKind = iota
	// OrderIP orders dotted-quad strings numerically.
	OrderIP
	// OrderUserName orders by realname/firstname/login following the
	// session's name format preference.
	OrderUserName
)

// DelaySpec describes a date_delay value: Field plus a duration column
// expressed in Unit (e.g. contract begin date + duration months).
type DelaySpec struct {
	DurationField string
	Unit          string
}

// Option is one searchable field of an itemtype.
type Option struct {
	ID         int
	Itemtype   string
	Table      string
	Field      string
	Name       string
	Datatype   Datatype
	Flags      Flags
	LinkField  string
	JoinParams JoinParams
	Order      OrderKind
	Delay      *DelaySpec
	// Tree marks completename-backed hierarchical dropdowns.
	Tree bool
}

// OneToMany reports whether the option's values must be aggregated per row.
func (o *Option) OneToMany() bool {
	return o.Flags.ForceGroupBy || o.Flags.UseHaving || o.Datatype == TypeCount
}

// EffectiveLinkField returns the FK column used to reach the option's table
// from parentTable.
func (o *Option) EffectiveLinkField(parentTable string) string {
	if o.LinkField != "" {
		return o.LinkField
	}
	return o.JoinParams.DefaultLinkField(o.Table, parentTable)
}

// ColumnKey is the stable synthetic column identifier ITEM_<Itemtype>_<id>.
func ColumnKey(itemtype string, id int) string {
	return fmt.Sprintf("ITEM_%s_%d", itemtype, id)
}

// SubColumnKey is ColumnKey with a subfield suffix.
func SubColumnKey(itemtype string, id int, sub string) string {
	return ColumnKey(itemtype, id) + "_" + sub
}

// ForeignKeyForTable derives the conventional FK column for a table:
// glpi_users -> users_id.
func ForeignKeyForTable(table string) string {
	return strings.TrimPrefix(table, "glpi_") + "_id"
}
