// Package search implements the bisecting kill-search engine of spec.md
// §4.E: given a pairwise-compatible candidate set, find at least one
// responsible mutant with O(k log n) oracle calls.
package search

import (
	"context"
	"fmt"

	"github.com/sivchari/dredd/internal/kill"
	"github.com/sivchari/dredd/internal/program"
)

// Oracle is the narrow surface search needs from internal/oracle.Oracle,
// kept as an interface so search can be unit-tested without a real
// compiler.
type Oracle interface {
	AttemptKill(ctx context.Context, stats program.Stats, selected []int) (kill.ExecutionStatus, error)
}

// Consolidator is the narrow surface search needs from the kill
// consolidator (spec.md §4.G), kept as an interface so search can be
// tested without driving a real reducer.
type Consolidator interface {
	Consolidate(ctx context.Context, killedID int, status kill.ExecutionStatus, stats program.Stats) error
}

// Engine runs search() against one oracle and one set of kill bookkeeping.
type Engine struct {
	Oracle       Oracle
	Maps         *kill.Maps
	Consolidator Consolidator
}

// New returns an Engine wired to the given oracle, bookkeeping, and
// consolidator.
func New(o Oracle, maps *kill.Maps, consolidator Consolidator) *Engine {
	return &Engine{Oracle: o, Maps: maps, Consolidator: consolidator}
}

// Search implements spec.md §4.E's search(program_stats, candidates) → bool.
func (e *Engine) Search(ctx context.Context, stats program.Stats, candidates []int) (bool, error) {
	if len(candidates) == 0 {
		return false, fmt.Errorf("search: candidates must be non-empty")
	}

	status, err := e.Oracle.AttemptKill(ctx, stats, candidates)
	if err != nil {
		return false, fmt.Errorf("search: attempting kill on %v: %w", candidates, err)
	}

	if !status.IsKill() {
		for _, m := range candidates {
			e.Maps.IncrementRound(m)
		}

		return false, nil
	}

	if len(candidates) == 1 {
		id := candidates[0]
		e.Maps.Commit(id, status)

		if e.Consolidator != nil {
			if err := e.Consolidator.Consolidate(ctx, id, status, stats); err != nil {
				return true, fmt.Errorf("search: consolidating kill of mutant %d: %w", id, err)
			}
		}

		return true, nil
	}

	mid := len(candidates) / 2
	left := candidates[:mid]
	right := candidates[mid:]

	leftKilled, err := e.Search(ctx, stats, left)
	if err != nil {
		return leftKilled, err
	}

	// Consolidation during the left recursion may have killed ids in the
	// right half as a side effect; re-filter before recursing on it (spec.md
	// §4.E step 4).
	survivingRight := make([]int, 0, len(right))
	for _, m := range right {
		if !e.Maps.IsKilled(m) {
			survivingRight = append(survivingRight, m)
		}
	}

	if len(survivingRight) == 0 {
		return leftKilled, nil
	}

	rightKilled, err := e.Search(ctx, stats, survivingRight)
	if err != nil {
		return leftKilled || rightKilled, err
	}

	return leftKilled || rightKilled, nil
}
