package scheduler_test

import (
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sivchari/dredd/internal/kill"
	"github.com/sivchari/dredd/internal/mutationinfo"
	"github.com/sivchari/dredd/internal/mutationtree"
	"github.com/sivchari/dredd/internal/scheduler"
)

func node(own []int, children ...mutationinfo.NodeInfo) mutationinfo.NodeInfo {
	return mutationinfo.NodeInfo{OwnMutations: own, Children: children}
}

func doc(roots ...mutationinfo.NodeInfo) mutationinfo.Document {
	files := make([]mutationinfo.FileInfo, len(roots))
	for i, r := range roots {
		files[i] = mutationinfo.FileInfo{Filename: "f.c", Root: r}
	}

	return mutationinfo.Document{Files: files}
}

// TestS5 is scenario S5 of spec §8: UnkilledMap = {0:0, 1:0, 2:1}, covered
// {0,1,2}, round 0, ceiling 64, no incompatibilities. select() returns some
// ordering of {0,1}; 2 must not be picked until the round advances.
func TestS5(t *testing.T) {
	d := doc(node([]int{0}), node([]int{1}), node([]int{2}))

	tree, err := mutationtree.Build(d)
	require.NoError(t, err)

	maps := kill.NewMaps(tree.NumMutations)
	maps.Unkilled[0] = 0
	maps.Unkilled[1] = 0
	maps.Unkilled[2] = 1

	s := scheduler.New(tree, 42, 64)

	covered := map[int]bool{0: true, 1: true, 2: true}
	got := s.Select(maps, covered)

	assert.ElementsMatch(t, []int{0, 1}, got)
	assert.Equal(t, 0, s.Round())
}

func TestSelectAdvancesRoundWhenAvailableEmpty(t *testing.T) {
	d := doc(node([]int{0}), node([]int{1}))

	tree, err := mutationtree.Build(d)
	require.NoError(t, err)

	maps := kill.NewMaps(tree.NumMutations)
	maps.Unkilled[0] = 1
	maps.Unkilled[1] = 1

	s := scheduler.New(tree, 7, 64)

	got := s.Select(maps, map[int]bool{0: true, 1: true})

	require.NotEmpty(t, got)
	assert.Equal(t, 1, s.Round())
}

func TestSelectDropsCoverageFilterOnAdvance(t *testing.T) {
	d := doc(node([]int{0}), node([]int{1}))

	tree, err := mutationtree.Build(d)
	require.NoError(t, err)

	maps := kill.NewMaps(tree.NumMutations)
	maps.Unkilled[0] = 0
	maps.Unkilled[1] = 1

	s := scheduler.New(tree, 99, 64)

	// Nothing at round 0 is covered, so the scheduler must advance to round
	// 1 and select id 1 there even though id 1 is absent from the coverage
	// set passed in (spec.md §4.F step 2 drops the coverage filter once a
	// round has been exhausted).
	got := s.Select(maps, map[int]bool{})

	assert.ElementsMatch(t, []int{1}, got)
	assert.Equal(t, 1, s.Round())
}

func TestSelectReturnsNilWhenNothingUnkilled(t *testing.T) {
	d := doc(node([]int{0}))

	tree, err := mutationtree.Build(d)
	require.NoError(t, err)

	maps := kill.NewMaps(tree.NumMutations)
	maps.Commit(0, kill.CompileFailKill)

	s := scheduler.New(tree, 1, 64)

	got := s.Select(maps, map[int]bool{0: true})
	assert.Empty(t, got)
}

func TestSelectRespectsCeiling(t *testing.T) {
	d := doc(node([]int{0}), node([]int{1}), node([]int{2}), node([]int{3}))

	tree, err := mutationtree.Build(d)
	require.NoError(t, err)

	maps := kill.NewMaps(tree.NumMutations)
	for m := 0; m < tree.NumMutations; m++ {
		maps.Unkilled[m] = 0
	}

	s := scheduler.New(tree, 5, 2)

	covered := map[int]bool{0: true, 1: true, 2: true, 3: true}
	got := s.Select(maps, covered)

	assert.LessOrEqual(t, len(got), 2)
}

// randomForest builds numMutations independent single-node trees, each a
// singleton mutation with its own incompatibility (mirrors the "no
// incompatibilities across roots" shape of S5, generalized to a random
// count of unkilled, covered candidates).
func randomForest(numMutations int) mutationinfo.Document {
	roots := make([]mutationinfo.NodeInfo, numMutations)
	for i := range roots {
		roots[i] = node([]int{i})
	}

	return doc(roots...)
}

// TestSchedulerSelectionIsPairwiseCompatible is spec §8 property 6: for
// every pair (a,b) in select()'s output, b must not be in incompatible(a).
func TestSchedulerSelectionIsPairwiseCompatible(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.Rng.Seed(2468)
	parameters.MinSuccessfulTests = 50

	properties := gopter.NewProperties(parameters)

	properties.Property("scheduler output is pairwise compatible", prop.ForAll(
		func(seed int64, numMutations int) bool {
			if numMutations <= 0 {
				return true
			}

			d := randomForest(numMutations)

			tree, err := mutationtree.Build(d)
			if err != nil {
				return false
			}

			maps := kill.NewMaps(tree.NumMutations)
			for m := 0; m < tree.NumMutations; m++ {
				maps.Unkilled[m] = 0
			}

			covered := make(map[int]bool, tree.NumMutations)
			for m := 0; m < tree.NumMutations; m++ {
				covered[m] = true
			}

			s := scheduler.New(tree, uint64(seed), 64)
			selected := s.Select(maps, covered)

			for _, a := range selected {
				inc, err := tree.Incompatible(a)
				if err != nil {
					return false
				}

				for _, b := range selected {
					if a == b {
						continue
					}

					if contains(inc, b) {
						return false
					}
				}
			}

			return true
		},
		gen.Int64(),
		gen.IntRange(1, 12),
	))

	properties.TestingRun(t)
}

func contains(xs []int, x int) bool {
	for _, v := range xs {
		if v == x {
			return true
		}
	}

	return false
}
