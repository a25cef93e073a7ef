package searchopt

// Entity is the metadata the search engine needs about an itemtype: where its
// rows live and which columns a default listing shows.
type Entity struct {
	Itemtype   string
	Table      string
	PrimaryKey string
	// ViewFields are the default-visible field ids; the "view" pseudo-field
	// expands over them.
	ViewFields []int
	// HasDeleted enables the is_deleted tri-state filter.
	HasDeleted bool
	// HasTemplate excludes template rows (is_template = 1).
	HasTemplate bool
	// EntityColumn, when set, is restricted to the session's entities.
	EntityColumn string
	// MetaLinks is the join path from this entity's table to another
	// itemtype's table, used by meta criteria.
	MetaLinks map[string][]JoinStep
}

// PK returns the primary key column, defaulting to id.
func (e *Entity) PK() string {
	if e.PrimaryKey == "" {
		return "id"
	}
	return e.PrimaryKey
}

// MetaPath returns the join path to a foreign itemtype.
func (e *Entity) MetaPath(itemtype string) ([]JoinStep, bool) {
	path, ok := e.MetaLinks[itemtype]
	return path, ok
}
