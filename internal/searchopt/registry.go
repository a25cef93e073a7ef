package searchopt

import (
	"fmt"
	"sort"
	"sync"

	"github.com/aidanlsb/assetsearch/internal/searcherr"
)

// Synthetic field names accepted in criteria.
const (
	FieldView = "view"
	FieldAll  = "all"
)

// OptionSet is the resolved, ordered option mapping of one itemtype.
// It is immutable once returned by Registry.Options.
type OptionSet struct {
	itemtype string
	ids      []int
	byID     map[int]*Option
	view     []int
}

// Itemtype returns the itemtype the set belongs to.
func (s *OptionSet) Itemtype() string { return s.itemtype }

// Get returns the option with the given id.
func (s *OptionSet) Get(id int) (*Option, bool) {
	o, ok := s.byID[id]
	return o, ok
}

// IDs returns field ids in ascending order.
func (s *OptionSet) IDs() []int {
	out := make([]int, len(s.ids))
	copy(out, s.ids)
	return out
}

// All returns the options in ascending id order.
func (s *OptionSet) All() []*Option {
	out := make([]*Option, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.byID[id])
	}
	return out
}

// Len returns the number of options.
func (s *OptionSet) Len() int { return len(s.ids) }

// ViewFields returns the ids the "view" pseudo-field expands to.
func (s *OptionSet) ViewFields() []int {
	out := make([]int, len(s.view))
	copy(out, s.view)
	return out
}

// SearchableFields returns the ids the "all" pseudo-field expands to: every
// option without nosearch that does not need row aggregation.
func (s *OptionSet) SearchableFields() []int {
	var out []int
	for _, id := range s.ids {
		o := s.byID[id]
		if o.Flags.NoSearch || o.OneToMany() {
			continue
		}
		out = append(out, id)
	}
	return out
}

// Registry holds entity metadata and search options for every itemtype.
//
// Declarations happen at startup through RegisterEntity/Register. Options are
// resolved lazily per itemtype and cached; concurrent first resolution may
// compute twice, which is harmless because resolution is pure.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]*Entity
	tables   map[string]struct{}
	decls    map[string][]Option
	resolved sync.Map // itemtype -> *OptionSet
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entities: make(map[string]*Entity),
		tables:   make(map[string]struct{}),
		decls:    make(map[string][]Option),
	}
}

// RegisterEntity declares an itemtype. Its base table becomes a known table.
func (r *Registry) RegisterEntity(e Entity) error {
	if e.Itemtype == "" || e.Table == "" {
		return &searcherr.ConfigurationError{Itemtype: e.Itemtype, Message: "entity requires itemtype and table"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entities[e.Itemtype]; exists {
		return &searcherr.ConfigurationError{Itemtype: e.Itemtype, Message: "itemtype registered twice"}
	}
	entity := e
	r.entities[e.Itemtype] = &entity
	r.tables[e.Table] = struct{}{}
	r.resolved.Delete(e.Itemtype)
	return nil
}

// RegisterTables declares junction or dropdown tables that options may join.
func (r *Registry) RegisterTables(tables ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tables {
		r.tables[t] = struct{}{}
	}
}

// Register adds options to an itemtype. A field id declared twice for the
// same itemtype, within this call or across calls, is a ConfigurationError
// and nothing from the call is kept.
func (r *Registry) Register(itemtype string, opts ...Option) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[int]struct{}, len(r.decls[itemtype])+len(opts))
	for _, o := range r.decls[itemtype] {
		seen[o.ID] = struct{}{}
	}
	for _, o := range opts {
		if o.ID <= 0 {
			return &searcherr.ConfigurationError{Itemtype: itemtype, FieldID: o.ID, Message: "field id must be positive"}
		}
		if _, dup := seen[o.ID]; dup {
			return &searcherr.ConfigurationError{Itemtype: itemtype, FieldID: o.ID, Message: "duplicate field id"}
		}
		seen[o.ID] = struct{}{}
	}

	r.decls[itemtype] = append(r.decls[itemtype], opts...)
	r.resolved.Delete(itemtype)
	return nil
}

// Entity returns the metadata of an itemtype.
func (r *Registry) Entity(itemtype string) (*Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[itemtype]
	return e, ok
}

// HasTable reports whether a table was declared.
func (r *Registry) HasTable(table string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.tables[table]
	return ok
}

// Tables returns every declared table, sorted.
func (r *Registry) Tables() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.tables))
	for t := range r.tables {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Itemtypes returns every registered itemtype, sorted.
func (r *Registry) Itemtypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.entities))
	for it := range r.entities {
		out = append(out, it)
	}
	sort.Strings(out)
	return out
}

// Options returns the resolved options of an itemtype.
func (r *Registry) Options(itemtype string) (*OptionSet, error) {
	if cached, ok := r.resolved.Load(itemtype); ok {
		return cached.(*OptionSet), nil
	}
	set, err := r.resolve(itemtype)
	if err != nil {
		return nil, err
	}
	r.resolved.Store(itemtype, set)
	return set, nil
}

// Validate resolves every itemtype, surfacing configuration errors at
// startup instead of on the first search.
func (r *Registry) Validate() error {
	for _, it := range r.Itemtypes() {
		if _, err := r.Options(it); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registry) resolve(itemtype string) (*OptionSet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entity, ok := r.entities[itemtype]
	if !ok {
		return nil, &searcherr.ConfigurationError{Itemtype: itemtype, Message: "unknown itemtype"}
	}

	set := &OptionSet{itemtype: itemtype, byID: make(map[int]*Option)}
	for _, decl := range r.decls[itemtype] {
		o := decl
		o.Itemtype = itemtype
		if o.Datatype == "" {
			o.Datatype = TypeString
		}
		if o.Table == "" {
			o.Table = entity.Table
		}
		if err := r.checkTablesLocked(itemtype, o.ID, append(o.JoinParams.Tables(), o.Table)); err != nil {
			return nil, err
		}
		if o.Datatype == TypeDateDelay && (o.Delay == nil || o.Delay.DurationField == "") {
			return nil, &searcherr.ConfigurationError{Itemtype: itemtype, FieldID: o.ID, Message: "date_delay option requires a duration field"}
		}
		set.byID[o.ID] = &o
		set.ids = append(set.ids, o.ID)
	}
	sort.Ints(set.ids)

	for target, path := range entity.MetaLinks {
		tables := make([]string, 0, len(path))
		for _, step := range path {
			tables = append(tables, step.Params.Tables()...)
			tables = append(tables, step.Table)
		}
		if err := r.checkTablesLocked(itemtype, 0, tables); err != nil {
			return nil, err
		}
		if len(path) == 0 {
			return nil, &searcherr.ConfigurationError{Itemtype: itemtype, Message: fmt.Sprintf("empty meta link to %s", target)}
		}
	}

	for _, id := range entity.ViewFields {
		if _, ok := set.byID[id]; !ok {
			return nil, &searcherr.ConfigurationError{Itemtype: itemtype, FieldID: id, Message: "view field is not a declared option"}
		}
		set.view = append(set.view, id)
	}
	return set, nil
}

func (r *Registry) checkTablesLocked(itemtype string, id int, tables []string) error {
	for _, t := range tables {
		if _, ok := r.tables[t]; !ok {
			return &searcherr.ConfigurationError{
				Itemtype: itemtype,
				FieldID:  id,
				Message:  fmt.Sprintf("join references unknown table %s", t),
			}
		}
	}
	return nil
}
