package history_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sivchari/dredd/internal/history"
	"github.com/sivchari/dredd/internal/kill"
)

func TestNewOnMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	store, err := history.New(path)
	require.NoError(t, err)

	_, ok := store.Restore()
	assert.False(t, ok)
}

func TestSaveAndRestoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.json")

	store, err := history.New(path)
	require.NoError(t, err)

	maps := kill.NewMaps(3)
	maps.Commit(0, kill.RunFailKill)
	maps.IncrementRound(1)

	require.NoError(t, store.Save(maps, 3))

	reloaded, err := history.New(path)
	require.NoError(t, err)

	restored, ok := reloaded.Restore()
	require.True(t, ok)

	assert.Equal(t, kill.RunFailKill, restored.Killed[0])
	assert.Equal(t, 1, restored.Unkilled[1])
	assert.Equal(t, 0, restored.Unkilled[2])
	assert.Equal(t, 3, reloaded.NumMutations())
}
