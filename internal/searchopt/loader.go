package searchopt

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/aidanlsb/assetsearch/internal/searcherr"
)

// CatalogFile is the on-disk format for extra (plugin) search options.
//
//	tables: [glpi_plugin_racks]
//	options:
//	  Computer:
//	    - id: 5000
//	      table: glpi_plugin_racks
//	      field: name
//	      datatype: dropdown
//	      joinparams:
//	        jointype: itemtype_item
type CatalogFile struct {
	Tables  []string                `yaml:"tables"`
	Options map[string][]OptionSpec `yaml:"options"`
}

// OptionSpec is the YAML shape of one option.
type OptionSpec struct {
	ID         int            `yaml:"id"`
	Table      string         `yaml:"table"`
	Field      string         `yaml:"field"`
	Name       string         `yaml:"name"`
	Datatype   string         `yaml:"datatype"`
	LinkField  string         `yaml:"linkfield"`
	Flags      Flags          `yaml:",inline"`
	JoinParams JoinParamsSpec `yaml:"joinparams"`
	Order      string         `yaml:"order"`
	Delay      *DelaySpecYAML `yaml:"delay"`
	Tree       bool           `yaml:"tree"`
}

// JoinParamsSpec is the YAML shape of JoinParams.
type JoinParamsSpec struct {
	JoinType         string         `yaml:"jointype"`
	SpecificItemtype string         `yaml:"specific_itemtype"`
	Condition        map[string]any `yaml:"condition"`
	BeforeJoin       []JoinStepSpec `yaml:"beforejoin"`
}

// JoinStepSpec is the YAML shape of a beforejoin step.
type JoinStepSpec struct {
	Table      string         `yaml:"table"`
	LinkField  string         `yaml:"linkfield"`
	JoinParams JoinParamsSpec `yaml:"joinparams"`
}

// DelaySpecYAML is the YAML shape of DelaySpec.
type DelaySpecYAML struct {
	Field string `yaml:"field"`
	Unit  string `yaml:"unit"`
}

// maxBeforeJoinDepth bounds nested beforejoin declarations; YAML anchors can
// otherwise describe a chain that never ends.
const maxBeforeJoinDepth = 8

// LoadCatalogFile reads a catalog file and registers its tables and options.
func LoadCatalogFile(r *Registry, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read catalog file %s: %w", path, err)
	}
	if err := LoadCatalog(r, data); err != nil {
		return fmt.Errorf("catalog %s: %w", path, err)
	}
	return nil
}

// LoadCatalog parses catalog YAML and registers its content.
func LoadCatalog(r *Registry, data []byte) error {
	var file CatalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to parse catalog: %w", err)
	}

	r.RegisterTables(file.Tables...)

	itemtypes := make([]string, 0, len(file.Options))
	for it := range file.Options {
		itemtypes = append(itemtypes, it)
	}
	sort.Strings(itemtypes)

	for _, it := range itemtypes {
		if _, ok := r.Entity(it); !ok {
			return &searcherr.ConfigurationError{Itemtype: it, Message: "catalog declares options for an unknown itemtype"}
		}
		opts := make([]Option, 0, len(file.Options[it]))
		for _, spec := range file.Options[it] {
			o, err := spec.toOption(it)
			if err != nil {
				return err
			}
			opts = append(opts, o)
		}
		if err := r.Register(it, opts...); err != nil {
			return err
		}
		if _, err := r.Options(it); err != nil {
			return err
		}
	}
	return nil
}

func (s OptionSpec) toOption(itemtype string) (Option, error) {
	fail := func(msg string) (Option, error) {
		return Option{}, &searcherr.ConfigurationError{Itemtype: itemtype, FieldID: s.ID, Message: msg}
	}

	if s.Field == "" {
		return fail("option requires a field")
	}
	dt, err := ParseDatatype(s.Datatype)
	if err != nil {
		return fail(err.Error())
	}
	params, err := s.JoinParams.toParams(0)
	if err != nil {
		return fail(err.Error())
	}

	o := Option{
		ID:         s.ID,
		Itemtype:   itemtype,
		Table:      s.Table,
		Field:      s.Field,
		Name:       s.Name,
		Datatype:   dt,
		Flags:      s.Flags,
		LinkField:  s.LinkField,
		JoinParams: params,
		Tree:       s.Tree,
	}
	if o.Name == "" {
		o.Name = s.Field
	}

	switch strings.ToLower(s.Order) {
	case "":
	case "ip":
		o.Order = OrderIP
	case "username":
		o.Order = OrderUserName
	default:
		return fail(fmt.Sprintf("unknown order %q", s.Order))
	}

	if s.Delay != nil {
		unit := strings.ToUpper(s.Delay.Unit)
		if unit == "" {
			unit = "MONTH"
		}
		o.Delay = &DelaySpec{DurationField: s.Delay.Field, Unit: unit}
	}
	return o, nil
}

func (s JoinParamsSpec) toParams(depth int) (JoinParams, error) {
	if depth > maxBeforeJoinDepth {
		return JoinParams{}, fmt.Errorf("beforejoin nested deeper than %d levels", maxBeforeJoinDepth)
	}
	kind, err := ParseJoinKind(s.JoinType)
	if err != nil {
		return JoinParams{}, err
	}
	p := JoinParams{Kind: kind}
	if s.SpecificItemtype != "" {
		p.Polymorphic = &PolymorphicRelation{Itemtype: s.SpecificItemtype}
	}

	cols := make([]string, 0, len(s.Condition))
	for col := range s.Condition {
		cols = append(cols, col)
	}
	sort.Strings(cols)
	for _, col := range cols {
		p.Conditions = append(p.Conditions, JoinCondition{Column: col, Value: s.Condition[col]})
	}

	for _, step := range s.BeforeJoin {
		if step.Table == "" {
			return JoinParams{}, fmt.Errorf("beforejoin step requires a table")
		}
		sp, err := step.JoinParams.toParams(depth + 1)
		if err != nil {
			return JoinParams{}, err
		}
		p.BeforeJoin = append(p.BeforeJoin, JoinStep{Table: step.Table, LinkField: step.LinkField, Params: sp})
	}
	return p, nil
}
