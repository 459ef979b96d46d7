package kill_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sivchari/dredd/internal/kill"
)

func TestNewMaps(t *testing.T) {
	m := kill.NewMaps(4)

	assert.Len(t, m.Unkilled, 4)
	assert.Empty(t, m.Killed)

	for id := 0; id < 4; id++ {
		assert.Equal(t, 0, m.Unkilled[id])
	}
}

func TestMapsCommit(t *testing.T) {
	m := kill.NewMaps(3)

	m.Commit(1, kill.MiscompilationKill)

	assert.True(t, m.IsKilled(1))
	assert.False(t, m.IsUnkilled(1))
	assert.Equal(t, kill.MiscompilationKill, m.Killed[1])
	assert.Equal(t, 3, m.Total())
}

func TestMapsCommitPanicsOnNonKill(t *testing.T) {
	m := kill.NewMaps(2)

	assert.Panics(t, func() {
		m.Commit(0, kill.NoEffect)
	})
}

func TestMapsCommitPanicsWhenAlreadyKilled(t *testing.T) {
	m := kill.NewMaps(2)
	m.Commit(0, kill.RunFailKill)

	assert.Panics(t, func() {
		m.Commit(0, kill.RunFailKill)
	})
}

func TestMapsIncrementRound(t *testing.T) {
	m := kill.NewMaps(2)

	m.IncrementRound(0)
	m.IncrementRound(0)

	require.Equal(t, 2, m.Unkilled[0])

	m.Commit(1, kill.CompileFailKill)
	m.IncrementRound(1) // no-op, already killed

	assert.Equal(t, kill.CompileFailKill, m.Killed[1])
}

func TestExecutionStatusIsKill(t *testing.T) {
	nonKills := []kill.ExecutionStatus{kill.NoEffect, kill.DifferentBinariesSameResult}
	kills := []kill.ExecutionStatus{
		kill.CompileFailKill, kill.CompileTimeoutKill,
		kill.RunFailKill, kill.RunTimeoutKill, kill.MiscompilationKill,
	}

	for _, s := range nonKills {
		assert.False(t, s.IsKill(), "%s should not be a kill", s)
	}

	for _, s := range kills {
		assert.True(t, s.IsKill(), "%s should be a kill", s)
	}
}
