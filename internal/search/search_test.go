package search_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sivchari/dredd/internal/kill"
	"github.com/sivchari/dredd/internal/program"
	"github.com/sivchari/dredd/internal/search"
)

// fakeOracle records every AttemptKill candidate slice and reports a kill
// whenever the slice contains one of killers, so tests can assert the
// precise call sequence spec.md §8 scenario S6 specifies.
type fakeOracle struct {
	calls   [][]int
	killers map[int]bool // mutation ids that, if present in the set, cause a kill
}

func (f *fakeOracle) AttemptKill(_ context.Context, _ program.Stats, selected []int) (kill.ExecutionStatus, error) {
	call := append([]int(nil), selected...)
	f.calls = append(f.calls, call)

	for _, id := range selected {
		if f.killers[id] {
			return kill.MiscompilationKill, nil
		}
	}

	return kill.NoEffect, nil
}

type noopConsolidator struct {
	calls []int
}

func (n *noopConsolidator) Consolidate(_ context.Context, killedID int, _ kill.ExecutionStatus, _ program.Stats) error {
	n.calls = append(n.calls, killedID)

	return nil
}

// TestSearchScenarioS6 is spec.md §8 scenario S6: candidates=[a,b,c,d], only
// c causes a kill. Oracle sequence: [a,b,c,d] kill, [a,b] non-kill, [c,d]
// kill, [c] kill+commit, [d] non-kill.
func TestSearchScenarioS6(t *testing.T) {
	a, b, c, d := 10, 11, 12, 13

	o := &fakeOracle{killers: map[int]bool{c: true}}
	consolidator := &noopConsolidator{}
	maps := &kill.Maps{
		Killed: kill.KilledMap{},
		Unkilled: kill.UnkilledMap{
			a: 0, b: 0, c: 0, d: 0,
		},
	}

	engine := search.New(o, maps, consolidator)

	killed, err := engine.Search(context.Background(), program.Stats{Name: "prog.c"}, []int{a, b, c, d})
	require.NoError(t, err)
	assert.True(t, killed)

	require.Len(t, o.calls, 5)
	assert.Equal(t, []int{a, b, c, d}, o.calls[0])
	assert.Equal(t, []int{a, b}, o.calls[1])
	assert.Equal(t, []int{c, d}, o.calls[2])
	assert.Equal(t, []int{c}, o.calls[3])
	assert.Equal(t, []int{d}, o.calls[4])

	assert.True(t, maps.IsKilled(c))
	assert.False(t, maps.IsKilled(a))
	assert.False(t, maps.IsKilled(b))
	assert.False(t, maps.IsKilled(d))

	assert.Equal(t, 1, maps.Unkilled[a])
	assert.Equal(t, 1, maps.Unkilled[b])
	assert.Equal(t, 1, maps.Unkilled[d])

	assert.Equal(t, kill.MiscompilationKill, maps.Killed[c])
	assert.Equal(t, []int{c}, consolidator.calls)
}

func TestSearchReturnsFalseWhenNoKill(t *testing.T) {
	o := &fakeOracle{killers: map[int]bool{}}
	maps := kill.NewMaps(3)

	engine := search.New(o, maps, nil)

	killed, err := engine.Search(context.Background(), program.Stats{}, []int{0, 1, 2})
	require.NoError(t, err)
	assert.False(t, killed)

	assert.Equal(t, 1, maps.Unkilled[0])
	assert.Equal(t, 1, maps.Unkilled[1])
	assert.Equal(t, 1, maps.Unkilled[2])
}

func TestSearchRejectsEmptyCandidates(t *testing.T) {
	o := &fakeOracle{}
	maps := kill.NewMaps(0)

	engine := search.New(o, maps, nil)

	_, err := engine.Search(context.Background(), program.Stats{}, nil)
	require.Error(t, err)
}

// TestSearchFiltersRightHalfAfterConsolidationSideEffect exercises spec.md
// §4.E step 4: a consolidator that kills a right-half id as a side effect of
// the left recursion must cause that id to be skipped entirely.
func TestSearchFiltersRightHalfAfterConsolidationSideEffect(t *testing.T) {
	a, b := 0, 1

	o := &fakeOracle{killers: map[int]bool{a: true}}
	maps := kill.NewMaps(2)

	sideEffecting := &sideEffectConsolidator{maps: maps, extraKill: b}
	engine := search.New(o, maps, sideEffecting)

	killed, err := engine.Search(context.Background(), program.Stats{}, []int{a, b})
	require.NoError(t, err)
	assert.True(t, killed)

	// b was killed as a side effect during a's consolidation, so the right
	// half must never have been offered to the oracle again.
	for _, call := range o.calls {
		assert.NotEqual(t, []int{b}, call)
	}

	assert.True(t, maps.IsKilled(a))
	assert.True(t, maps.IsKilled(b))
}

type sideEffectConsolidator struct {
	maps      *kill.Maps
	extraKill int
}

func (s *sideEffectConsolidator) Consolidate(_ context.Context, killedID int, status kill.ExecutionStatus, _ program.Stats) error {
	if s.maps.IsUnkilled(s.extraKill) {
		s.maps.Commit(s.extraKill, status)
	}

	return nil
}
