package searchopt

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aidanlsb/assetsearch/internal/searcherr"
)

const rackCatalog = `
tables: [glpi_plugin_racks, glpi_plugin_racks_items]
options:
  Computer:
    - id: 5000
      table: glpi_plugin_racks
      field: name
      name: Rack
      datatype: dropdown
      linkfield: racks_id
      nometa: true
      joinparams:
        beforejoin:
          - table: glpi_plugin_racks_items
            joinparams:
              jointype: itemtype_item
              condition:
                is_deleted: 0
    - id: 5001
      table: glpi_plugin_racks
      field: position
      datatype: integer
`

func TestLoadCatalog(t *testing.T) {
	r, err := Builtin()
	require.NoError(t, err)

	require.NoError(t, LoadCatalog(r, []byte(rackCatalog)))

	set, err := r.Options("Computer")
	require.NoError(t, err)

	rack, ok := set.Get(5000)
	require.True(t, ok)
	assert.Equal(t, TypeDropdown, rack.Datatype)
	assert.True(t, rack.Flags.NoMeta)
	assert.Equal(t, "racks_id", rack.LinkField)
	require.Len(t, rack.JoinParams.BeforeJoin, 1)
	step := rack.JoinParams.BeforeJoin[0]
	assert.Equal(t, "glpi_plugin_racks_items", step.Table)
	assert.Equal(t, JoinPolymorphic, step.Params.Kind)
	assert.Equal(t, []JoinCondition{{Column: "is_deleted", Value: 0}}, step.Params.Conditions)

	pos, ok := set.Get(5001)
	require.True(t, ok)
	assert.Equal(t, "position", pos.Name, "name defaults to the field")
}

func TestLoadCatalogRejectsDuplicateBuiltinID(t *testing.T) {
	r, err := Builtin()
	require.NoError(t, err)

	err = LoadCatalog(r, []byte(`
options:
  Computer:
    - id: 1
      field: other_name
`))
	assert.ErrorIs(t, err, searcherr.ErrConfiguration)
}

func TestLoadCatalogUnknownRelation(t *testing.T) {
	r, err := Builtin()
	require.NoError(t, err)

	err = LoadCatalog(r, []byte(`
options:
  Printer:
    - id: 7000
      table: glpi_plugin_undeclared
      field: name
`))
	assert.ErrorIs(t, err, searcherr.ErrConfiguration)
}

func TestLoadCatalogBadValues(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown itemtype", "options:\n  Spaceship:\n    - id: 1\n      field: name\n"},
		{"unknown datatype", "options:\n  Computer:\n    - id: 7001\n      field: x\n      datatype: blob\n"},
		{"unknown jointype", "options:\n  Computer:\n    - id: 7002\n      field: x\n      joinparams:\n        jointype: sideways\n"},
		{"missing field", "options:\n  Computer:\n    - id: 7003\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := Builtin()
			require.NoError(t, err)
			assert.ErrorIs(t, LoadCatalog(r, []byte(tt.yaml)), searcherr.ErrConfiguration)
		})
	}
}

func TestLoadCatalogFile(t *testing.T) {
	r, err := Builtin()
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "racks.yaml")
	require.NoError(t, os.WriteFile(path, []byte(rackCatalog), 0o644))
	require.NoError(t, LoadCatalogFile(r, path))

	err = LoadCatalogFile(r, filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
