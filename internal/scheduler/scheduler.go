// Package scheduler implements the round-based candidate selection of
// spec.md §4.F: pick a pairwise-compatible set of unkilled, covered
// mutations, biased toward liveness across rounds.
package scheduler

import (
	"math/rand/v2"
	"sort"

	"github.com/sivchari/dredd/internal/kill"
	"github.com/sivchari/dredd/internal/mutationtree"
)

// Scheduler tracks the current round and draws candidate sets from a
// seeded source, so a fixed seed reproduces a run's selection order
// (spec.md §5).
type Scheduler struct {
	tree  *mutationtree.Tree
	rng   *rand.Rand
	round int

	// Ceiling is the configured num_simultaneous_mutations (default 64).
	Ceiling int
}

// New returns a Scheduler seeded for reproducible selection.
func New(tree *mutationtree.Tree, seed uint64, ceiling int) *Scheduler {
	return &Scheduler{
		tree:    tree,
		rng:     rand.New(rand.NewPCG(seed, seed)),
		Ceiling: ceiling,
	}
}

// Round returns the scheduler's current round number.
func (s *Scheduler) Round() int {
	return s.round
}

// Select implements spec.md §4.F's select(covered_by_program) operation.
func (s *Scheduler) Select(maps *kill.Maps, coveredByProgram map[int]bool) []int {
	available := s.eligible(maps, coveredByProgram)

	for len(available) == 0 {
		if s.liveEligible(maps) == 0 {
			// No unkilled ids are left in any round; advancing forever would
			// spin, and there is nothing to select.
			return nil
		}

		s.round++
		available = s.eligible(maps, nil)
	}

	return s.draw(available)
}

// eligible returns ids with UnkilledMap[m] == round, intersected with
// coveredByProgram when non-nil (the coverage filter is dropped when
// advancing past an exhausted round, per spec.md §4.F step 2).
func (s *Scheduler) eligible(maps *kill.Maps, coveredByProgram map[int]bool) map[int]bool {
	out := make(map[int]bool)

	for m, round := range maps.Unkilled {
		if round != s.round {
			continue
		}

		if coveredByProgram != nil && !coveredByProgram[m] {
			continue
		}

		out[m] = true
	}

	return out
}

// liveEligible reports whether any unkilled id exists at all, ignoring
// round and coverage — used to detect true exhaustion (spec.md §4.F is
// silent on this, but an empty UnkilledMap must not advance forever).
func (s *Scheduler) liveEligible(maps *kill.Maps) int {
	return len(maps.Unkilled)
}

// draw repeatedly picks a uniformly random id from available, appends it,
// and removes its incompatibility cone, stopping at the ceiling or when
// available is exhausted (spec.md §4.F step 3).
func (s *Scheduler) draw(available map[int]bool) []int {
	result := make([]int, 0, s.Ceiling)

	for len(available) > 0 && len(result) < s.Ceiling {
		id := s.pickRandom(available)
		result = append(result, id)
		delete(available, id)

		incompatible, err := s.tree.Incompatible(id)
		if err != nil {
			continue
		}

		for _, other := range incompatible {
			delete(available, other)
		}
	}

	return result
}

// pickRandom draws one key from available uniformly at random. Go's map
// iteration order is randomized per-process and not reproducible, so the
// keys are sorted first and the draw is made against the scheduler's
// seeded source by index — the only unseeded input is the sort itself.
func (s *Scheduler) pickRandom(available map[int]bool) int {
	keys := make([]int, 0, len(available))
	for k := range available {
		keys = append(keys, k)
	}

	sort.Ints(keys)

	idx := s.rng.Uint64N(uint64(len(keys)))

	return keys[idx]
}
