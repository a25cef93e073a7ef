package cli

import (
	"io/fs"
	"path"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	builtindocs "github.com/aidanlsb/assetsearch/docs"
)

func TestGuideIndexTopicsExist(t *testing.T) {
	index, err := loadGuideIndex(builtindocs.FS)
	require.NoError(t, err)
	require.NotEmpty(t, index.Topics)

	seen := make(map[string]bool)
	for _, topic := range index.Topics {
		assert.False(t, seen[topic.ID], "duplicate topic %s", topic.ID)
		seen[topic.ID] = true
		_, err := fs.Stat(builtindocs.FS, path.Join(guideDir, topic.Path))
		assert.NoError(t, err, topic.ID)
	}
}

func TestGuideCommand(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	out, _, err := runCLI(t, "guide")
	require.NoError(t, err)
	assert.Contains(t, out, "criteria")
	assert.Contains(t, out, "Writing criteria")

	out, _, err = runCLI(t, "guide", "criteria")
	require.NoError(t, err)
	assert.Contains(t, out, "# Writing criteria")

	env, err := runJSON(t, "guide", "nope")
	require.Error(t, err)
	assert.Equal(t, ErrNotFound, env.Error.Code)
	assert.Contains(t, env.Error.Suggestion, "searchtypes")
}
