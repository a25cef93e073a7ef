package joins

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/assetsearch/internal/searcherr"
	"github.com/aidanlsb/assetsearch/internal/searchopt"
)

func builtin(t *testing.T) *searchopt.Registry {
	t.Helper()
	reg, err := searchopt.Builtin()
	require.NoError(t, err)
	return reg
}

func option(t *testing.T, reg *searchopt.Registry, itemtype string, id int) *searchopt.Option {
	t.Helper()
	set, err := reg.Options(itemtype)
	require.NoError(t, err)
	opt, ok := set.Get(id)
	require.True(t, ok, "%s option %d", itemtype, id)
	return opt
}

func newPlanner(t *testing.T, reg *searchopt.Registry, itemtype string) *Planner {
	t.Helper()
	p, err := NewPlanner(reg, itemtype)
	require.NoError(t, err)
	return p
}

func TestRootFieldNeedsNoJoin(t *testing.T) {
	reg := builtin(t)
	p := newPlanner(t, reg, "Computer")

	alias, err := p.Option(option(t, reg, "Computer", 1), false)
	require.NoError(t, err)
	assert.Equal(t, "glpi_computers", alias)
	assert.Empty(t, p.Nodes())
}

func TestDirectJoin(t *testing.T) {
	reg := builtin(t)
	p := newPlanner(t, reg, "Computer")

	alias, err := p.Option(option(t, reg, "Computer", 23), false)
	require.NoError(t, err)
	assert.Equal(t, "glpi_manufacturers", alias)

	nodes := p.Nodes()
	require.Len(t, nodes, 1)
	assert.Equal(t, "glpi_computers.manufacturers_id = glpi_manufacturers.id", nodes[0].On)
	assert.Equal(t, "glpi_computers", nodes[0].ParentAlias)
}

func TestAliasIdempotence(t *testing.T) {
	reg := builtin(t)
	p := newPlanner(t, reg, "Computer")
	opt := option(t, reg, "Computer", 126)

	first, err := p.Option(opt, false)
	require.NoError(t, err)
	second, err := p.Option(opt, false)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, p.Nodes(), 1)
}

func TestAliasUniquenessSpecialForeignKey(t *testing.T) {
	reg := builtin(t)
	p := newPlanner(t, reg, "Computer")

	user, err := p.Option(option(t, reg, "Computer", 70), false)
	require.NoError(t, err)
	tech, err := p.Option(option(t, reg, "Computer", 24), false)
	require.NoError(t, err)

	assert.Equal(t, "glpi_users", user)
	assert.Equal(t, "glpi_users_users_id_tech", tech)
	assert.NotEqual(t, user, tech)

	nodes := p.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "glpi_computers.users_id_tech = glpi_users_users_id_tech.id", nodes[1].On)
}

func TestAliasUniquenessAcrossConditions(t *testing.T) {
	reg := builtin(t)
	p := newPlanner(t, reg, "Ticket")

	requester, err := p.Option(option(t, reg, "Ticket", 4), false)
	require.NoError(t, err)
	technician, err := p.Option(option(t, reg, "Ticket", 5), false)
	require.NoError(t, err)
	assert.NotEqual(t, requester, technician)

	nodes := p.Nodes()
	require.Len(t, nodes, 4, "two junction joins and two user joins")
	assert.Contains(t, nodes[0].On, "glpi_tickets.id = ")
	assert.Contains(t, nodes[0].On, ".type = 1")
	assert.Contains(t, nodes[2].On, ".type = 2")
	assert.Equal(t, nodes[0].Alias, nodes[1].ParentAlias, "beforejoin is planned first")

	aliases := map[string]bool{}
	for _, n := range nodes {
		assert.False(t, aliases[n.Alias], "duplicate alias %s", n.Alias)
		aliases[n.Alias] = true
	}
}

func TestAliasIsDeterministic(t *testing.T) {
	reg := builtin(t)
	a := newPlanner(t, reg, "Computer")
	b := newPlanner(t, reg, "Computer")

	x, err := a.Option(option(t, reg, "Computer", 139), false)
	require.NoError(t, err)
	y, err := b.Option(option(t, reg, "Computer", 139), false)
	require.NoError(t, err)
	assert.Equal(t, x, y)
	assert.Regexp(t, `^glpi_contracts_[0-9a-f]{16}$`, x)
}

func TestPolymorphicJoin(t *testing.T) {
	reg := builtin(t)
	p := newPlanner(t, reg, "Computer")

	alias, err := p.Option(option(t, reg, "Computer", 126), false)
	require.NoError(t, err)
	on := p.Nodes()[0].On
	assert.Equal(t,
		"glpi_computers.id = "+alias+".items_id AND "+alias+".itemtype = 'Computer' AND "+alias+".is_deleted = 0",
		on)
}

func TestChildJoinWithBeforeJoin(t *testing.T) {
	reg := builtin(t)
	p := newPlanner(t, reg, "Software")

	alias, err := p.Option(option(t, reg, "Software", 72), false)
	require.NoError(t, err)

	nodes := p.Nodes()
	require.Len(t, nodes, 2)
	versions := nodes[0]
	assert.Equal(t, "glpi_softwareversions", versions.Table)
	assert.Equal(t, "glpi_softwares.id = "+versions.Alias+".softwares_id", versions.On)
	assert.Equal(t, alias, nodes[1].Alias)
	assert.Equal(t, versions.Alias+".id = "+alias+".softwareversions_id AND "+alias+".is_deleted = 0", nodes[1].On)
}

func TestMetaPath(t *testing.T) {
	reg := builtin(t)
	p := newPlanner(t, reg, "Computer")

	alias, err := p.Option(option(t, reg, "Software", 72), true)
	require.NoError(t, err)

	nodes := p.Nodes()
	require.Len(t, nodes, 3, "the installation count reuses the meta link junction")
	junction := nodes[0]
	assert.Equal(t, "glpi_items_softwareversions_Software", junction.Alias)
	assert.Contains(t, junction.On, "glpi_computers.id = glpi_items_softwareversions_Software.items_id")
	assert.Contains(t, junction.On, "itemtype = 'Computer'")
	assert.Contains(t, junction.On, "is_deleted = 0")
	assert.Equal(t, "glpi_softwares_Software", nodes[2].Alias)

	metaAlias, err := p.Meta("Software")
	require.NoError(t, err)
	assert.Equal(t, "glpi_softwares_Software", metaAlias)
	assert.Equal(t, junction.Alias, alias)
	require.NoError(t, p.Validate())
}

func TestMetaOptionOnPathTableReusesJoin(t *testing.T) {
	reg := builtin(t)
	p := newPlanner(t, reg, "Computer")

	alias, err := p.Option(option(t, reg, "Software", 5), true)
	require.NoError(t, err)
	// The installed version, not every version of the software.
	assert.Equal(t, "glpi_softwareversions_Software", alias)

	nodes := p.Nodes()
	require.Len(t, nodes, 3)
	for _, n := range nodes {
		assert.NotEqual(t, "glpi_softwares_Software", n.ParentAlias, "nothing is joined back from the software table")
	}

	// Root-scoped joins of the same table are planned separately.
	p = newPlanner(t, reg, "Software")
	alias, err = p.Option(option(t, reg, "Software", 5), false)
	require.NoError(t, err)
	require.Len(t, p.Nodes(), 1)
	assert.Equal(t, "glpi_softwares.id = "+alias+".softwares_id", p.Nodes()[0].On)
}

func TestMetaFieldOnMetaBaseTable(t *testing.T) {
	reg := builtin(t)
	p := newPlanner(t, reg, "Computer")

	alias, err := p.Option(option(t, reg, "Printer", 1), true)
	require.NoError(t, err)
	assert.Equal(t, "glpi_printers_Printer", alias)

	nodes := p.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "glpi_computers.id = glpi_computers_items_Printer.computers_id AND "+
		"glpi_computers_items_Printer.itemtype = 'Printer' AND glpi_computers_items_Printer.is_deleted = 0", nodes[0].On)
	assert.Equal(t, "glpi_computers_items_Printer.items_id = glpi_printers_Printer.id", nodes[1].On)
}

func TestMetaAliasDoesNotCollideWithDirectJoin(t *testing.T) {
	reg := builtin(t)
	p := newPlanner(t, reg, "Computer")

	direct, err := p.Option(option(t, reg, "Computer", 70), false)
	require.NoError(t, err)
	meta, err := p.Option(option(t, reg, "User", 1), true)
	require.NoError(t, err)
	assert.Equal(t, "glpi_users", direct)
	assert.Equal(t, "glpi_users_User", meta)
}

func TestPolymorphicRevert(t *testing.T) {
	reg := builtin(t)
	p := newPlanner(t, reg, "Ticket")

	alias, err := p.Meta("Computer")
	require.NoError(t, err)
	nodes := p.Nodes()
	require.Len(t, nodes, 2)
	assert.Equal(t, "glpi_tickets.id = glpi_items_tickets_Computer.tickets_id", nodes[0].On)
	assert.Equal(t, alias+".id = glpi_items_tickets_Computer.items_id AND glpi_items_tickets_Computer.itemtype = 'Computer'", nodes[1].On)
}

func TestMissingMetaLink(t *testing.T) {
	reg := builtin(t)
	p := newPlanner(t, reg, "Contract")
	_, err := p.Meta("Printer")
	assert.ErrorIs(t, err, searcherr.ErrConfiguration)
}

func TestCircularBeforeJoin(t *testing.T) {
	reg := searchopt.NewRegistry()
	reg.RegisterTables("glpi_a")
	require.NoError(t, reg.RegisterEntity(searchopt.Entity{Itemtype: "Thing", Table: "glpi_things"}))

	loop := searchopt.JoinStep{Table: "glpi_a", Params: searchopt.JoinParams{Kind: searchopt.JoinChild}}
	inner := loop
	inner.Params.BeforeJoin = []searchopt.JoinStep{loop}
	require.NoError(t, reg.Register("Thing", searchopt.Option{
		ID: 1, Table: "glpi_a", Field: "name",
		JoinParams: searchopt.JoinParams{Kind: searchopt.JoinChild, BeforeJoin: []searchopt.JoinStep{inner}},
	}))

	p := newPlanner(t, reg, "Thing")
	set, err := reg.Options("Thing")
	require.NoError(t, err)
	opt, _ := set.Get(1)

	_, err = p.Option(opt, false)
	assert.ErrorIs(t, err, searcherr.ErrJoinPlanning)
	assert.Contains(t, err.Error(), "circular")
}

func TestChainTooDeep(t *testing.T) {
	reg := searchopt.NewRegistry()
	var tables []string
	for i := 0; i <= MaxChainDepth; i++ {
		tables = append(tables, "glpi_t"+strings.Repeat("x", i))
	}
	reg.RegisterTables(tables...)
	require.NoError(t, reg.RegisterEntity(searchopt.Entity{Itemtype: "Thing", Table: "glpi_things"}))

	params := searchopt.JoinParams{}
	for _, table := range tables[1:] {
		params = searchopt.JoinParams{BeforeJoin: []searchopt.JoinStep{{Table: table, Params: params}}}
	}
	require.NoError(t, reg.Register("Thing", searchopt.Option{ID: 1, Table: tables[0], Field: "name", JoinParams: params}))
	set, err := reg.Options("Thing")
	require.NoError(t, err)
	opt, _ := set.Get(1)

	_, err = newPlanner(t, reg, "Thing").Option(opt, false)
	assert.ErrorIs(t, err, searcherr.ErrJoinPlanning)
}

func TestInvalidIdentifierRejected(t *testing.T) {
	reg := searchopt.NewRegistry()
	reg.RegisterTables("glpi_a")
	require.NoError(t, reg.RegisterEntity(searchopt.Entity{Itemtype: "Thing", Table: "glpi_things"}))
	require.NoError(t, reg.Register("Thing", searchopt.Option{
		ID: 1, Table: "glpi_a", Field: "name", LinkField: "a_id; DROP TABLE x",
	}))
	set, err := reg.Options("Thing")
	require.NoError(t, err)
	opt, _ := set.Get(1)

	_, err = newPlanner(t, reg, "Thing").Option(opt, false)
	assert.ErrorIs(t, err, searcherr.ErrJoinPlanning)
}

func TestValidateDetectsOutOfOrderNodes(t *testing.T) {
	reg := builtin(t)
	p := newPlanner(t, reg, "Computer")
	_, err := p.Option(option(t, reg, "Computer", 139), false)
	require.NoError(t, err)
	require.NoError(t, p.Validate())

	p.nodes[0], p.nodes[1] = p.nodes[1], p.nodes[0]
	assert.ErrorIs(t, p.Validate(), searcherr.ErrJoinPlanning)
}

func TestLiteralQuoting(t *testing.T) {
	s, err := literal("O'Brien")
	require.NoError(t, err)
	assert.Equal(t, "'O''Brien'", s)

	s, err = literal(true)
	require.NoError(t, err)
	assert.Equal(t, "1", s)

	_, err = literal([]int{1})
	assert.Error(t, err)
}
