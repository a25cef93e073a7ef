package assemble

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/assetsearch/internal/criteria"
	"github.com/aidanlsb/assetsearch/internal/searchopt"
)

var now = time.Date(2026, 3, 4, 14, 30, 0, 0, time.UTC)

type fixture struct {
	reg        *searchopt.Registry
	normalizer *criteria.Normalizer
	assembler  *Assembler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	reg, err := searchopt.Builtin()
	require.NoError(t, err)
	return &fixture{reg: reg, normalizer: criteria.NewNormalizer(reg), assembler: New(reg)}
}

func (f *fixture) plan(t *testing.T, itemtype string, list []criteria.Criterion, sort ...SortSpec) *Plan {
	t.Helper()
	res, err := f.normalizer.Normalize(itemtype, list)
	require.NoError(t, err)
	plan, err := f.assembler.Assemble(Request{
		Itemtype: itemtype,
		Criteria: res,
		Sort:     sort,
		Limit:    20,
		Now:      now,
	})
	require.NoError(t, err)
	return plan
}

func sqlOf(t *testing.T, p *Plan) (string, []any) {
	t.Helper()
	sql, args, err := p.SQL()
	require.NoError(t, err)
	return sql, args
}

func TestMultiSortOrdering(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t, "Computer", nil, SortSpec{Field: 5, Direction: "ASC"}, SortSpec{Field: 6, Direction: "DESC"})

	sql, _ := sqlOf(t, plan)
	assert.Contains(t, sql, "ORDER BY ITEM_Computer_5 ASC, ITEM_Computer_6 DESC, glpi_computers.id ASC LIMIT 20")
	assert.Contains(t, sql, "glpi_computers.otherserial AS ITEM_Computer_6")
	assert.NotContains(t, sql, "GROUP BY")
}

func TestSortDirectionDefaults(t *testing.T) {
	assert.Equal(t, "ASC", Direction(""))
	assert.Equal(t, "ASC", Direction("asc"))
	assert.Equal(t, "DESC", Direction("desc"))
	assert.Equal(t, "DESC", Direction("sideways"))

	f := newFixture(t)
	plan := f.plan(t, "Computer", nil)
	assert.Equal(t, []string{"ITEM_Computer_1 ASC", "glpi_computers.id ASC"}, plan.OrderBy, "field 1 then the id is the default sort")

	plan = f.plan(t, "Computer", nil, SortSpec{Field: 9999}, SortSpec{Field: 19, Direction: "up"})
	assert.Equal(t, []string{"ITEM_Computer_19 DESC", "glpi_computers.id ASC"}, plan.OrderBy)
	require.Len(t, plan.Skipped, 1)
	assert.Equal(t, "9999", plan.Skipped[0].Field)
}

func TestOrderOverrides(t *testing.T) {
	f := newFixture(t)

	plan := f.plan(t, "Computer", nil, SortSpec{Field: 126})
	require.Len(t, plan.OrderBy, 2)
	assert.Regexp(t, `^MIN\(INET_ATON\(glpi_ipaddresses_[0-9a-f]{16}\.name\)\) ASC$`, plan.OrderBy[0])

	plan = f.plan(t, "Computer", nil, SortSpec{Field: 70, Direction: "DESC"})
	assert.Equal(t, []string{
		"glpi_users.realname DESC",
		"glpi_users.firstname DESC",
		"glpi_users.name DESC",
		"glpi_computers.id ASC",
	}, plan.OrderBy)

	res, err := f.normalizer.Normalize("User", nil)
	require.NoError(t, err)
	plan, err = f.assembler.Assemble(Request{
		Itemtype:   "User",
		Criteria:   res,
		Sort:       []SortSpec{{Field: 1}},
		NameFormat: FirstnameFirst,
		Limit:      10,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"glpi_users.firstname ASC",
		"glpi_users.realname ASC",
		"glpi_users.name ASC",
		"glpi_users.id ASC",
	}, plan.OrderBy)
}

func TestSelectColumns(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t, "Computer", nil)
	sql, _ := sqlOf(t, plan)

	assert.True(t, strings.HasPrefix(sql, "SELECT glpi_computers.id AS id, glpi_computers.name AS ITEM_Computer_1"))
	assert.Contains(t, sql, "glpi_manufacturers.name AS ITEM_Computer_23, glpi_manufacturers.id AS ITEM_Computer_23_id")
	assert.Contains(t, sql, "LEFT JOIN glpi_manufacturers ON glpi_computers.manufacturers_id = glpi_manufacturers.id")
	assert.Contains(t, sql, "WHERE glpi_computers.is_deleted = 0 AND glpi_computers.is_template = 0")

	keys := make([]string, len(plan.Columns))
	for i, c := range plan.Columns {
		keys[i] = c.Key
	}
	assert.Equal(t, []string{
		"ITEM_Computer_1", "ITEM_Computer_5", "ITEM_Computer_31",
		"ITEM_Computer_23", "ITEM_Computer_3", "ITEM_Computer_19",
	}, keys)

	c, ok := plan.Column("ITEM_Computer_23")
	require.True(t, ok)
	assert.Equal(t, []string{SubID}, c.Subfields)
}

func TestCriteriaFieldsAreSelected(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t, "Computer", []criteria.Criterion{
		&criteria.Leaf{Field: criteria.FieldRef{ID: 126}, SearchType: criteria.Contains, Value: "10.0."},
		&criteria.Leaf{Field: criteria.FieldRef{ID: 24}, SearchType: criteria.Contains, Value: "smith"},
	})

	ip, ok := plan.Column("ITEM_Computer_126")
	require.True(t, ok)
	assert.True(t, ip.Aggregated)
	assert.Equal(t, []string{SubValues}, ip.Subfields)

	tech, ok := plan.Column("ITEM_Computer_24")
	require.True(t, ok)
	assert.Equal(t, []string{SubID, SubRealname, SubFirstname}, tech.Subfields)

	sql, args := sqlOf(t, plan)
	assert.Contains(t, sql, "GROUP_CONCAT(DISTINCT glpi_ipaddresses_")
	assert.Contains(t, sql, "json_group_array(DISTINCT glpi_ipaddresses_")
	assert.Contains(t, sql, "GROUP BY glpi_computers.id")
	assert.Contains(t, sql, "glpi_users_users_id_tech.realname AS ITEM_Computer_24_realname")
	assert.Contains(t, args, "%10.0.%")
}

func TestAndNotIsNullSafe(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t, "Computer", []criteria.Criterion{
		&criteria.Leaf{Link: criteria.LinkAndNot, Field: criteria.FieldRef{ID: 23}, SearchType: criteria.Contains, Value: "Dell"},
	})
	sql, args := sqlOf(t, plan)
	assert.Contains(t, sql, `AND ((glpi_manufacturers.name NOT LIKE ? ESCAPE '\' OR glpi_manufacturers.name IS NULL))`)
	assert.Equal(t, []any{"%Dell%"}, args)
}

func TestScenarioViewWithSoftwareMeta(t *testing.T) {
	f := newFixture(t)
	list := []criteria.Criterion{
		&criteria.Leaf{Field: criteria.FieldRef{Special: searchopt.FieldView}, SearchType: criteria.Contains, Value: ""},
	}
	list = append(list, criteria.MarkMeta([]criteria.Criterion{
		&criteria.Leaf{Itemtype: "Software", Field: criteria.FieldRef{ID: 72}, SearchType: criteria.Contains, Value: ">0"},
	})...)
	plan := f.plan(t, "Computer", list)

	sql, args := sqlOf(t, plan)
	assert.Contains(t, sql, "LEFT JOIN glpi_items_softwareversions AS glpi_items_softwareversions_Software ON "+
		"glpi_computers.id = glpi_items_softwareversions_Software.items_id AND "+
		"glpi_items_softwareversions_Software.itemtype = 'Computer' AND "+
		"glpi_items_softwareversions_Software.is_deleted = 0")
	assert.Contains(t, sql, "AS ITEM_Software_72")
	assert.Contains(t, sql, "GROUP BY glpi_computers.id HAVING ((ITEM_Software_72 > ?))")
	assert.Equal(t, []any{int64(0)}, args)
	assert.True(t, plan.Grouped)
	assert.True(t, plan.Where.IsEmpty(), "empty view search adds no condition")
}

func TestScenarioPrinterAndNotHaving(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t, "Computer", []criteria.Criterion{
		&criteria.Leaf{
			Link:       criteria.LinkAndNot,
			Itemtype:   "Printer",
			Meta:       true,
			Field:      criteria.FieldRef{ID: 1},
			SearchType: criteria.Contains,
			Value:      "HP",
		},
	})

	assert.Equal(t, `(ITEM_Printer_1 NOT LIKE ? ESCAPE '\' OR ITEM_Printer_1 IS NULL)`, plan.Having.SQL)
	assert.Contains(t, plan.Debug(), `HAVING ((ITEM_Printer_1 NOT LIKE '%HP%' ESCAPE '\' OR ITEM_Printer_1 IS NULL))`)
	assert.Contains(t, plan.Debug(), "GROUP_CONCAT(DISTINCT glpi_printers_Printer.name) AS ITEM_Printer_1")
}

func TestEntityAndDeletedFilters(t *testing.T) {
	f := newFixture(t)
	res, err := f.normalizer.Normalize("Computer", nil)
	require.NoError(t, err)

	plan, err := f.assembler.Assemble(Request{
		Itemtype: "Computer",
		Criteria: res,
		Deleted:  DeletedYes,
		Entities: []int{0, 3},
		Limit:    5,
	})
	require.NoError(t, err)
	sql, args := sqlOf(t, plan)
	assert.Contains(t, sql, "glpi_computers.is_deleted = 1")
	assert.Contains(t, sql, "glpi_computers.entities_id IN (?, ?)")
	assert.Equal(t, []any{0, 3}, args)

	plan, err = f.assembler.Assemble(Request{Itemtype: "Computer", Criteria: res, Deleted: DeletedAny})
	require.NoError(t, err)
	sql, _ = sqlOf(t, plan)
	assert.NotContains(t, sql, "is_deleted")
	assert.NotContains(t, sql, "LIMIT")
}

func TestPagingAndCount(t *testing.T) {
	f := newFixture(t)
	res, err := f.normalizer.Normalize("Computer", []criteria.Criterion{
		&criteria.Leaf{Field: criteria.FieldRef{ID: 1}, SearchType: criteria.Contains, Value: "pc"},
	})
	require.NoError(t, err)
	plan, err := f.assembler.Assemble(Request{Itemtype: "Computer", Criteria: res, Start: 40, Limit: 20})
	require.NoError(t, err)

	sql, _ := sqlOf(t, plan)
	assert.True(t, strings.HasSuffix(sql, "LIMIT 20 OFFSET 40"))

	page, _, err := plan.PageSQL(0, 20)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(page, "LIMIT 20"))

	count, args, err := plan.CountSQL()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(count, "SELECT COUNT(*) FROM (SELECT glpi_computers.id AS id"))
	assert.NotContains(t, count, "LIMIT")
	assert.NotContains(t, count, "ORDER BY")
	assert.Equal(t, []any{"%pc%"}, args)
}

func TestDuplicateCriteriaShareJoins(t *testing.T) {
	f := newFixture(t)
	plan := f.plan(t, "Computer", []criteria.Criterion{
		&criteria.Leaf{Field: criteria.FieldRef{ID: 126}, SearchType: criteria.Contains, Value: "10."},
		&criteria.Leaf{Link: criteria.LinkOr, Field: criteria.FieldRef{ID: 126}, SearchType: criteria.Contains, Value: "192."},
	})
	ipJoins := 0
	for _, n := range plan.Joins {
		if n.Table == "glpi_ipaddresses" {
			ipJoins++
		}
	}
	assert.Equal(t, 1, ipJoins)
}

func TestParseHelpers(t *testing.T) {
	s, err := ParseSortSpec("5:desc")
	require.NoError(t, err)
	assert.Equal(t, SortSpec{Field: 5, Direction: "desc"}, s)
	assert.Equal(t, "5:desc", s.String())

	_, err = ParseSortSpec("name")
	assert.Error(t, err)

	d, err := ParseDeleted("any")
	require.NoError(t, err)
	assert.Equal(t, DeletedAny, d)
	_, err = ParseDeleted("2")
	assert.Error(t, err)

	nf, err := ParseNameFormat("firstname")
	require.NoError(t, err)
	assert.Equal(t, FirstnameFirst, nf)
}
