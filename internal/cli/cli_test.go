package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resetCLIState clears globals and flag values left by a previous
// in-process run.
func resetCLIState() {
	configPath, dbPathFlag, userFlag, logLevelFlag = "", "", "", ""
	jsonOutput = false
	cfg = nil
	resolvedConfigPath = ""
	logger = zerolog.Nop()
	initForce = false
	explainHTML, explainRaw = false, false
	searchFlags = requestFlags{}
	explainFlags = requestFlags{}
	savedFlags = requestFlags{}
	resetFlags(rootCmd)
}

func resetFlags(cmd *cobra.Command) {
	unset := func(f *pflag.Flag) { f.Changed = false }
	cmd.Flags().VisitAll(unset)
	cmd.PersistentFlags().VisitAll(unset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetCLIState()
	var stdout, stderr bytes.Buffer
	err := run(args, &stdout, &stderr)
	return stdout.String(), stderr.String(), err
}

// newWorkspace runs init in a temp home and returns the config path.
func newWorkspace(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", home)
	t.Setenv("USER", "tester")

	path := filepath.Join(home, "asq", "config.toml")
	out, _, err := runCLI(t, "init", "--config", path)
	require.NoError(t, err)
	require.Contains(t, out, "Inventory ready")
	return path
}

type envelope struct {
	OK       bool            `json:"ok"`
	Data     json.RawMessage `json:"data"`
	Error    *ErrorInfo      `json:"error"`
	Warnings []Warning       `json:"warnings"`
	Meta     *Meta           `json:"meta"`
}

func runJSON(t *testing.T, args ...string) (envelope, error) {
	t.Helper()
	out, _, err := runCLI(t, append([]string{"--json"}, args...)...)
	var env envelope
	require.NoError(t, json.Unmarshal([]byte(out), &env), "stdout: %s", out)
	return env, err
}

type searchResult struct {
	Itemtype   string `json:"itemtype"`
	TotalCount int    `json:"totalcount"`
	Count      int    `json:"count"`
	SQL        string `json:"sql"`
	Rows       []struct {
		ID     int64               `json:"id"`
		Values map[string][]string `json:"values"`
	} `json:"rows"`
}

func (r searchResult) ids() []int64 {
	out := make([]int64, len(r.Rows))
	for i, row := range r.Rows {
		out[i] = row.ID
	}
	return out
}

func decodeSearch(t *testing.T, env envelope) searchResult {
	t.Helper()
	require.True(t, env.OK, "error: %+v", env.Error)
	var res searchResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	return res
}

func TestSearchCommand(t *testing.T) {
	cfgPath := newWorkspace(t)

	t.Run("criterion flag", func(t *testing.T) {
		env, err := runJSON(t, "--config", cfgPath, "search", "Computer", "-c", "1:contains:pc-00", "--reset")
		require.NoError(t, err)
		res := decodeSearch(t, env)
		assert.Equal(t, "Computer", res.Itemtype)
		assert.Equal(t, 5, res.TotalCount)
		assert.Equal(t, 5, env.Meta.Total)
		assert.Empty(t, res.SQL)
	})

	t.Run("negated link", func(t *testing.T) {
		env, err := runJSON(t, "--config", cfgPath, "search", "Computer", "-c", "not 23:contains:Dell", "--sort", "2")
		require.NoError(t, err)
		assert.Equal(t, []int64{2, 3, 4, 8}, decodeSearch(t, env).ids())
	})

	t.Run("meta criterion", func(t *testing.T) {
		env, err := runJSON(t, "--config", cfgPath, "search", "Computer", "-c", "Software.72:contains:>0")
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{1, 2, 7}, decodeSearch(t, env).ids())
	})

	t.Run("json criteria with group", func(t *testing.T) {
		criteria := `[{"field":23,"searchtype":"contains","value":"Dell"},
			{"link":"OR","criteria":[{"field":1,"searchtype":"contains","value":"laptop"}]}]`
		env, err := runJSON(t, "--config", cfgPath, "search", "Computer", "--criteria", criteria)
		require.NoError(t, err)
		assert.ElementsMatch(t, []int64{1, 7, 8}, decodeSearch(t, env).ids())
	})

	t.Run("skipped criterion is a warning", func(t *testing.T) {
		env, err := runJSON(t, "--config", cfgPath, "search", "Computer", "-c", "999:contains:x")
		require.NoError(t, err)
		assert.Equal(t, 6, decodeSearch(t, env).TotalCount)
		require.Len(t, env.Warnings, 1)
		assert.Equal(t, "CRITERION_SKIPPED", env.Warnings[0].Code)
		assert.Equal(t, "999", env.Warnings[0].Field)
	})

	t.Run("or split across having", func(t *testing.T) {
		env, err := runJSON(t, "--config", cfgPath, "search", "Computer", "-c", "1:contains:laptop", "-c", "or 60:contains:>1")
		require.NoError(t, err)
		require.Len(t, env.Warnings, 1)
		assert.Equal(t, "LINK_REGROUPED", env.Warnings[0].Code)
		assert.Equal(t, "60", env.Warnings[0].Field)
	})

	t.Run("paging and debug", func(t *testing.T) {
		env, err := runJSON(t, "--config", cfgPath, "search", "Computer", "-c", "1:contains:pc", "--limit", "2", "--start", "2", "--debug")
		require.NoError(t, err)
		res := decodeSearch(t, env)
		assert.Equal(t, 2, res.Count)
		assert.Equal(t, 5, res.TotalCount)
		assert.Contains(t, res.SQL, "LIKE '%pc%'")
	})

	t.Run("text output", func(t *testing.T) {
		out, _, err := runCLI(t, "--config", cfgPath, "search", "Computer", "-c", "1:contains:pc-001")
		require.NoError(t, err)
		assert.Contains(t, out, "rows 1-1 of 1")
		assert.Contains(t, out, "pc-001")
	})
}

func TestSearchCommandErrors(t *testing.T) {
	cfgPath := newWorkspace(t)

	tests := []struct {
		name string
		args []string
		code string
	}{
		{"unknown itemtype", []string{"search", "Spaceship", "--reset"}, ErrConfigInvalid},
		{"bad criterion flag", []string{"search", "Computer", "-c", "nonsense"}, ErrInvalidInput},
		{"bad criteria json", []string{"search", "Computer", "--criteria", "{"}, ErrQueryInvalid},
		{"bad deleted flag", []string{"search", "Computer", "--deleted", "maybe"}, ErrInvalidInput},
		{"missing argument", []string{"search"}, ErrInvalidInput},
		{"missing inventory", []string{"--db", filepath.Join(t.TempDir(), "none.db"), "search", "Computer"}, ErrInventoryNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := runJSON(t, append([]string{"--config", cfgPath}, tt.args...)...)
			require.Error(t, err)
			assert.False(t, env.OK)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code, env.Error.Message)
		})
	}

	_, stderr, err := runCLI(t, "--config", cfgPath, "search", "Spaceship")
	require.Error(t, err)
	assert.Contains(t, stderr, "Spaceship")
}

func TestLastSearchRestore(t *testing.T) {
	cfgPath := newWorkspace(t)

	_, err := runJSON(t, "--config", cfgPath, "search", "Computer", "-c", "1:contains:laptop", "--sort", "1:desc")
	require.NoError(t, err)

	env, err := runJSON(t, "--config", cfgPath, "last", "Computer")
	require.NoError(t, err)
	require.True(t, env.OK)
	assert.Contains(t, string(env.Data), "laptop")
	assert.Contains(t, string(env.Data), `"1:desc"`)

	env, err = runJSON(t, "--config", cfgPath, "search", "Computer")
	require.NoError(t, err)
	assert.True(t, env.Meta.Restored)
	assert.Equal(t, []int64{8}, decodeSearch(t, env).ids())

	env, err = runJSON(t, "--config", cfgPath, "--user", "someone-else", "search", "Computer")
	require.NoError(t, err)
	assert.False(t, env.Meta.Restored)
	assert.Equal(t, 6, decodeSearch(t, env).TotalCount)

	env, err = runJSON(t, "--config", cfgPath, "last", "Printer")
	require.Error(t, err)
	assert.Equal(t, ErrNotFound, env.Error.Code)
}

func TestSavedSearches(t *testing.T) {
	cfgPath := newWorkspace(t)

	env, err := runJSON(t, "--config", cfgPath, "saved", "save", "Dell machines", "Computer", "-c", "23:contains:Dell", "--deleted", "any")
	require.NoError(t, err)
	require.True(t, env.OK)

	env, err = runJSON(t, "--config", cfgPath, "saved", "list")
	require.NoError(t, err)
	assert.Equal(t, 1, env.Meta.Count)
	assert.Contains(t, string(env.Data), "dell-machines")

	env, err = runJSON(t, "--config", cfgPath, "saved", "run", "Dell machines")
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{1, 5, 7}, decodeSearch(t, env).ids())

	out, _, err := runCLI(t, "--config", cfgPath, "saved", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Dell machines")

	_, err = runJSON(t, "--config", cfgPath, "saved", "delete", "Dell machines")
	require.NoError(t, err)

	env, err = runJSON(t, "--config", cfgPath, "saved", "run", "Dell machines")
	require.Error(t, err)
	assert.Equal(t, ErrNotFound, env.Error.Code)

	env, err = runJSON(t, "--config", cfgPath, "saved", "save", "bad", "Spaceship")
	require.Error(t, err)
	assert.Equal(t, ErrConfigInvalid, env.Error.Code)
}

func TestExplainCommand(t *testing.T) {
	cfgPath := newWorkspace(t)
	args := []string{"--config", cfgPath, "explain", "Computer", "-c", "1:contains:pc", "-c", "70:contains:smith"}

	out, _, err := runCLI(t, append(args, "--raw")...)
	require.NoError(t, err)
	assert.Contains(t, out, "# Computer search")
	assert.Contains(t, out, "## Statement")
	assert.Contains(t, out, "LIKE '%pc%'")
	assert.Contains(t, out, "glpi_users")

	out, _, err = runCLI(t, append(args, "--html")...)
	require.NoError(t, err)
	assert.Contains(t, out, "<h2>Joins</h2>")
	assert.Contains(t, out, "<table>")

	env, err := runJSON(t, args...)
	require.NoError(t, err)
	var ex explanation
	require.NoError(t, json.Unmarshal(env.Data, &ex))
	assert.NotEmpty(t, ex.Joins)
	assert.Contains(t, ex.CountSQL, "COUNT(*)")
	assert.Contains(t, ex.Args, "%pc%")
}

func TestOptionsCommand(t *testing.T) {
	cfgPath := newWorkspace(t)

	env, err := runJSON(t, "--config", cfgPath, "options")
	require.NoError(t, err)
	assert.Contains(t, string(env.Data), `"Computer"`)

	env, err = runJSON(t, "--config", cfgPath, "options", "Computer")
	require.NoError(t, err)
	assert.Greater(t, env.Meta.Count, 10)
	assert.Contains(t, string(env.Data), `"glpi_computers"`)

	out, _, err := runCLI(t, "--config", cfgPath, "options", "Printer")
	require.NoError(t, err)
	assert.Contains(t, out, "glpi_printers.name")
}

func TestInitIsIdempotent(t *testing.T) {
	cfgPath := newWorkspace(t)

	env, err := runJSON(t, "--config", cfgPath, "init")
	require.NoError(t, err)
	assert.Contains(t, string(env.Data), `"config_created": false`)

	env, err = runJSON(t, "--config", cfgPath, "search", "Computer", "--reset")
	require.NoError(t, err)
	assert.Equal(t, 6, decodeSearch(t, env).TotalCount, "demo data is not loaded twice")
}
