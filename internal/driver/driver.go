// Package driver wires together the generator, scheduler, search engine,
// oracle, and consolidator into the indefinite run loop of spec.md §2: for
// each freshly generated program, repeatedly select a pairwise-compatible
// candidate set and search it for kills until either the program's attempt
// budget is exhausted or kills stop landing consecutively, then move on to
// the next program (original_source/runner/main.py's main()).
package driver

import (
	"context"
	"fmt"
	"time"

	"github.com/sivchari/dredd/internal/history"
	"github.com/sivchari/dredd/internal/kill"
	"github.com/sivchari/dredd/internal/logging"
	"github.com/sivchari/dredd/internal/mutationtree"
	"github.com/sivchari/dredd/internal/program"
	"github.com/sivchari/dredd/internal/report"
	"github.com/sivchari/dredd/internal/scheduler"
)

// Searcher is the narrow surface driver needs from internal/search.Engine.
type Searcher interface {
	Search(ctx context.Context, stats program.Stats, candidates []int) (bool, error)
}

// Generator is the narrow surface driver needs from internal/generator.Generator.
type Generator interface {
	NextProgram(ctx context.Context) (program.Stats, error)
}

// Options are the tunable attempt budgets of spec.md §6.
type Options struct {
	MaxConsecutiveFailedAttemptsPerProgram int
	MaxAttemptsPerProgram                  int
}

// Driver owns the bookkeeping and component wiring for one run.
type Driver struct {
	Tree      *mutationtree.Tree
	Maps      *kill.Maps
	Generator Generator
	Scheduler *scheduler.Scheduler
	Searcher  Searcher
	History   *history.Store
	Reporter  *report.Reporter
	Logger    logging.Logger

	Options Options

	coveredMutants int
}

// New wires a Driver from its already-constructed collaborators.
func New(
	tree *mutationtree.Tree,
	maps *kill.Maps,
	gen Generator,
	sched *scheduler.Scheduler,
	searcher Searcher,
	historyStore *history.Store,
	reporter *report.Reporter,
	logger logging.Logger,
	opts Options,
) *Driver {
	return &Driver{
		Tree:      tree,
		Maps:      maps,
		Generator: gen,
		Scheduler: sched,
		Searcher:  searcher,
		History:   historyStore,
		Reporter:  reporter,
		Logger:    logger,
		Options:   opts,
	}
}

// Run executes the indefinite driver loop until ctx is cancelled.
func (d *Driver) Run(ctx context.Context) error {
	start := time.Now()

	for {
		select {
		case <-ctx.Done():
			return d.finish(ctx, start)
		default:
		}

		if err := d.runOneProgram(ctx); err != nil {
			return err
		}
	}
}

// runOneProgram implements one outer-loop iteration of original_source
// /runner/main.py's main(): generate a program, then search it for kills
// until either attempt budget is exhausted.
func (d *Driver) runOneProgram(ctx context.Context) error {
	d.Logger.Info(ctx, "generating program")

	stats, err := d.Generator.NextProgram(ctx)
	if err != nil {
		return fmt.Errorf("driver: generating next program: %w", err)
	}

	d.Logger.Info(ctx, "program generated", "covered_mutants", len(stats.CoveredMutants))

	d.coveredMutants = len(stats.CoveredMutants)

	attempts := 0
	consecutiveFailures := 0

	for attempts < d.Options.MaxAttemptsPerProgram &&
		consecutiveFailures < d.Options.MaxConsecutiveFailedAttemptsPerProgram {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		candidates := d.Scheduler.Select(d.Maps, stats.CoveredMutants)
		if len(candidates) == 0 {
			// Nothing left to try against this (or any) program; stop early
			// rather than spinning through the remaining attempt budget.
			break
		}

		killedSomething, err := d.Searcher.Search(ctx, stats, candidates)
		if err != nil {
			return fmt.Errorf("driver: searching candidate set %v: %w", candidates, err)
		}

		attempts++

		if killedSomething {
			consecutiveFailures = 0
		} else {
			consecutiveFailures++
		}

		if err := d.saveAndReport(ctx); err != nil {
			return err
		}
	}

	return nil
}

func (d *Driver) saveAndReport(ctx context.Context) error {
	if d.History != nil {
		if err := d.History.Save(d.Maps, d.Tree.NumMutations); err != nil {
			return fmt.Errorf("driver: persisting history: %w", err)
		}
	}

	if d.Reporter != nil {
		if err := d.Reporter.Progress(d.Scheduler.Round(), d.Tree.NumMutations, d.coveredMutants, d.Maps); err != nil {
			d.Logger.Warn(ctx, err, "failed to write progress report")
		}
	}

	return nil
}

func (d *Driver) finish(ctx context.Context, start time.Time) error {
	if d.Reporter == nil {
		return nil
	}

	if err := d.Reporter.Final(d.Maps, d.Tree.NumMutations, time.Since(start)); err != nil {
		d.Logger.Warn(ctx, err, "failed to write final summary")
	}

	return nil
}
