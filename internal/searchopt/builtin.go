package searchopt

// Field ids follow the usual inventory conventions: 1 is the name/link
// column, 2 the id, 19 the last update, 80 the entity.

// BuiltinTables lists junction and dropdown tables used by the built-in
// options. Itemtype base tables are added by RegisterEntity.
var BuiltinTables = []string{
	"glpi_entities",
	"glpi_manufacturers",
	"glpi_states",
	"glpi_groups",
	"glpi_computers_items",
	"glpi_softwareversions",
	"glpi_items_softwareversions",
	"glpi_ipaddresses",
	"glpi_items_tickets",
	"glpi_tickets_users",
	"glpi_contracts_items",
	"glpi_profilerights",
}

func text(id int, field, name string) Option {
	return Option{ID: id, Field: field, Name: name, Datatype: TypeString, Flags: Flags{MassiveAction: true}}
}

func typed(id int, field, name string, dt Datatype) Option {
	return Option{ID: id, Field: field, Name: name, Datatype: dt}
}

func dropdown(id int, table, field, name string) Option {
	return Option{ID: id, Table: table, Field: field, Name: name, Datatype: TypeDropdown, Flags: Flags{MassiveAction: true}}
}

func treeDropdown(id int, table, name string) Option {
	o := dropdown(id, table, "completename", name)
	o.Tree = true
	return o
}

func userDropdown(id int, linkfield, name string) Option {
	o := dropdown(id, "glpi_users", "name", name)
	o.LinkField = linkfield
	o.Order = OrderUserName
	return o
}

func entityOption() Option {
	o := treeDropdown(80, "glpi_entities", "Entity")
	o.Flags.MassiveAction = false
	return o
}

func idOption() Option {
	o := typed(2, "id", "ID", TypeNumber)
	o.Flags.MassiveAction = false
	return o
}

func dateMod() Option {
	return typed(19, "date_mod", "Last update", TypeDatetime)
}

func builtinEntities() []Entity {
	return []Entity{
		{
			Itemtype:     "Computer",
			Table:        "glpi_computers",
			ViewFields:   []int{1, 5, 31, 23, 3, 19},
			HasDeleted:   true,
			HasTemplate:  true,
			EntityColumn: "entities_id",
			MetaLinks: map[string][]JoinStep{
				"Software": {
					{Table: "glpi_items_softwareversions", Params: JoinParams{
						Kind:       JoinPolymorphic,
						Conditions: []JoinCondition{{Column: "is_deleted", Value: 0}},
					}},
					{Table: "glpi_softwareversions", LinkField: "softwareversions_id"},
					{Table: "glpi_softwares", LinkField: "softwares_id"},
				},
				"Printer": {
					{Table: "glpi_computers_items", Params: JoinParams{
						Kind: JoinChild,
						Conditions: []JoinCondition{
							{Column: "itemtype", Value: "Printer"},
							{Column: "is_deleted", Value: 0},
						},
					}},
					{Table: "glpi_printers", LinkField: "items_id"},
				},
				"User": {
					{Table: "glpi_users", LinkField: "users_id"},
				},
				"Ticket": {
					{Table: "glpi_items_tickets", Params: JoinParams{Kind: JoinPolymorphic}},
					{Table: "glpi_tickets", LinkField: "tickets_id"},
				},
			},
		},
		{
			Itemtype:     "Software",
			Table:        "glpi_softwares",
			ViewFields:   []int{1, 23, 19},
			HasDeleted:   true,
			HasTemplate:  true,
			EntityColumn: "entities_id",
			MetaLinks: map[string][]JoinStep{
				"Computer": {
					{Table: "glpi_softwareversions", Params: JoinParams{Kind: JoinChild}},
					{Table: "glpi_items_softwareversions", Params: JoinParams{
						Kind: JoinChild,
						Conditions: []JoinCondition{
							{Column: "itemtype", Value: "Computer"},
							{Column: "is_deleted", Value: 0},
						},
					}},
					{Table: "glpi_computers", LinkField: "items_id"},
				},
			},
		},
		{
			Itemtype:     "Printer",
			Table:        "glpi_printers",
			ViewFields:   []int{1, 5, 3, 23, 19},
			HasDeleted:   true,
			HasTemplate:  true,
			EntityColumn: "entities_id",
			MetaLinks: map[string][]JoinStep{
				"Computer": {
					{Table: "glpi_computers_items", Params: JoinParams{
						Kind:       JoinPolymorphic,
						Conditions: []JoinCondition{{Column: "is_deleted", Value: 0}},
					}},
					{Table: "glpi_computers", LinkField: "computers_id"},
				},
			},
		},
		{
			Itemtype:     "User",
			Table:        "glpi_users",
			ViewFields:   []int{1, 34, 9, 3},
			HasDeleted:   true,
			EntityColumn: "entities_id",
			MetaLinks: map[string][]JoinStep{
				"Computer": {
					{Table: "glpi_computers", Params: JoinParams{Kind: JoinChild}},
				},
			},
		},
		{
			Itemtype:     "Ticket",
			Table:        "glpi_tickets",
			ViewFields:   []int{1, 12, 15, 3},
			HasDeleted:   true,
			EntityColumn: "entities_id",
			MetaLinks: map[string][]JoinStep{
				"Computer": {
					{Table: "glpi_items_tickets", Params: JoinParams{Kind: JoinChild}},
					{Table: "glpi_computers", Params: JoinParams{
						Kind:        JoinPolymorphicRevert,
						Polymorphic: &PolymorphicRelation{Itemtype: "Computer"},
					}},
				},
				"User": {
					{Table: "glpi_tickets_users", Params: JoinParams{Kind: JoinChild}},
					{Table: "glpi_users", LinkField: "users_id"},
				},
			},
		},
		{
			Itemtype:     "Contract",
			Table:        "glpi_contracts",
			ViewFields:   []int{1, 3, 5, 20},
			HasDeleted:   true,
			HasTemplate:  true,
			EntityColumn: "entities_id",
		},
		{
			Itemtype:   "Profile",
			Table:      "glpi_profiles",
			ViewFields: []int{1, 3},
		},
		{
			Itemtype:     "Location",
			Table:        "glpi_locations",
			ViewFields:   []int{1, 14},
			EntityColumn: "entities_id",
		},
	}
}

func builtinOptions() map[string][]Option {
	ip := Option{
		ID: 126, Table: "glpi_ipaddresses", Field: "name", Name: "IP address", Datatype: TypeIP,
		Flags: Flags{ForceGroupBy: true},
		JoinParams: JoinParams{
			Kind:       JoinPolymorphic,
			Conditions: []JoinCondition{{Column: "is_deleted", Value: 0}},
		},
		Order: OrderIP,
	}
	ticketCount := Option{
		ID: 60, Table: "glpi_items_tickets", Field: "id", Name: "Number of tickets", Datatype: TypeCount,
		Flags:      Flags{UseHaving: true, ForceGroupBy: true, NoMeta: true},
		JoinParams: JoinParams{Kind: JoinPolymorphic},
	}
	contractEnd := Option{
		ID: 139, Table: "glpi_contracts", Field: "begin_date", Name: "Contract expiration", Datatype: TypeDateDelay,
		Flags: Flags{ForceGroupBy: true},
		Delay: &DelaySpec{DurationField: "duration", Unit: "MONTH"},
		JoinParams: JoinParams{
			BeforeJoin: []JoinStep{
				{Table: "glpi_contracts_items", Params: JoinParams{Kind: JoinPolymorphic}},
			},
		},
	}
	versions := Option{
		ID: 5, Table: "glpi_softwareversions", Field: "name", Name: "Versions", Datatype: TypeString,
		Flags:      Flags{ForceGroupBy: true},
		JoinParams: JoinParams{Kind: JoinChild},
	}
	installations := Option{
		ID: 72, Table: "glpi_items_softwareversions", Field: "id", Name: "Number of installations", Datatype: TypeCount,
		Flags: Flags{UseHaving: true, ForceGroupBy: true},
		JoinParams: JoinParams{
			Kind:       JoinChild,
			Conditions: []JoinCondition{{Column: "is_deleted", Value: 0}},
			BeforeJoin: []JoinStep{
				{Table: "glpi_softwareversions", Params: JoinParams{Kind: JoinChild}},
			},
		},
	}
	ticketActor := func(id int, name string, actorType int) Option {
		o := userDropdown(id, "users_id", name)
		o.Flags.ForceGroupBy = true
		o.Flags.MassiveAction = false
		o.JoinParams = JoinParams{
			BeforeJoin: []JoinStep{
				{Table: "glpi_tickets_users", Params: JoinParams{
					Kind:       JoinChild,
					Conditions: []JoinCondition{{Column: "type", Value: actorType}},
				}},
			},
		}
		return o
	}
	right := func(id int, name, module string) Option {
		return Option{
			ID: id, Table: "glpi_profilerights", Field: "rights", Name: name, Datatype: TypeRight,
			Flags: Flags{NoMeta: true},
			JoinParams: JoinParams{
				Kind:       JoinChild,
				Conditions: []JoinCondition{{Column: "name", Value: module}},
			},
		}
	}

	return map[string][]Option{
		"Computer": {
			text(1, "name", "Name"),
			idOption(),
			treeDropdown(3, "glpi_locations", "Location"),
			text(5, "serial", "Serial number"),
			text(6, "otherserial", "Inventory number"),
			text(7, "contact", "Alternate username"),
			typed(16, "comment", "Comments", TypeText),
			dateMod(),
			dropdown(23, "glpi_manufacturers", "name", "Manufacturer"),
			userDropdown(24, "users_id_tech", "Technician in charge"),
			treeDropdown(31, "glpi_states", "Status"),
			func() Option {
				o := treeDropdown(49, "glpi_groups", "Group in charge")
				o.LinkField = "groups_id_tech"
				return o
			}(),
			ticketCount,
			userDropdown(70, "users_id", "User"),
			treeDropdown(71, "glpi_groups", "Group"),
			entityOption(),
			typed(121, "date_creation", "Creation date", TypeDatetime),
			ip,
			contractEnd,
		},
		"Software": {
			text(1, "name", "Name"),
			idOption(),
			versions,
			typed(16, "comment", "Comments", TypeText),
			dateMod(),
			dropdown(23, "glpi_manufacturers", "name", "Publisher"),
			installations,
			entityOption(),
		},
		"Printer": {
			text(1, "name", "Name"),
			idOption(),
			treeDropdown(3, "glpi_locations", "Location"),
			text(5, "serial", "Serial number"),
			dateMod(),
			dropdown(23, "glpi_manufacturers", "name", "Manufacturer"),
			typed(42, "have_usb", "USB", TypeBool),
			userDropdown(70, "users_id", "User"),
			entityOption(),
		},
		"User": {
			func() Option {
				o := text(1, "name", "Login")
				o.Order = OrderUserName
				return o
			}(),
			idOption(),
			treeDropdown(3, "glpi_locations", "Location"),
			typed(8, "is_active", "Active", TypeBool),
			text(9, "firstname", "First name"),
			dateMod(),
			text(34, "realname", "Surname"),
			entityOption(),
		},
		"Ticket": {
			text(1, "name", "Title"),
			idOption(),
			typed(3, "priority", "Priority", TypeInteger),
			ticketActor(4, "Requester", 1),
			ticketActor(5, "Technician", 2),
			typed(12, "status", "Status", TypeInteger),
			typed(15, "date", "Opening date", TypeDatetime),
			typed(16, "closedate", "Closing date", TypeDatetime),
			typed(18, "time_to_resolve", "Time to resolve", TypeDatetime),
			dateMod(),
			typed(21, "content", "Description", TypeText),
			entityOption(),
		},
		"Contract": {
			text(1, "name", "Name"),
			idOption(),
			text(3, "num", "Number"),
			typed(5, "begin_date", "Start date", TypeDate),
			typed(6, "duration", "Initial contract period", TypeInteger),
			{
				ID: 20, Field: "begin_date", Name: "End date", Datatype: TypeDateDelay,
				Delay: &DelaySpec{DurationField: "duration", Unit: "MONTH"},
			},
			entityOption(),
		},
		"Profile": {
			text(1, "name", "Name"),
			idOption(),
			text(3, "interface", "Profile's interface"),
			right(1000, "Computers", "computer"),
			right(1001, "Tickets", "ticket"),
		},
		"Location": {
			text(1, "name", "Name"),
			idOption(),
			func() Option {
				o := text(14, "completename", "Complete name")
				o.Tree = true
				return o
			}(),
			entityOption(),
		},
	}
}

// Builtin returns a registry populated with the built-in inventory catalog.
func Builtin() (*Registry, error) {
	r := NewRegistry()
	r.RegisterTables(BuiltinTables...)
	for _, e := range builtinEntities() {
		if err := r.RegisterEntity(e); err != nil {
			return nil, err
		}
	}
	opts := builtinOptions()
	for _, it := range r.Itemtypes() {
		if err := r.Register(it, opts[it]...); err != nil {
			return nil, err
		}
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return r, nil
}
