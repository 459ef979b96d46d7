// Package consolidate implements the kill consolidator of spec.md §4.G:
// once a mutant is killed, probe its incompatibility cone for cheap
// follow-on kills, and drive reduction for any miscompilation found.
package consolidate

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sivchari/dredd/internal/ddlerrors"
	"github.com/sivchari/dredd/internal/kill"
	"github.com/sivchari/dredd/internal/logging"
	"github.com/sivchari/dredd/internal/mutationtree"
	"github.com/sivchari/dredd/internal/procrun"
	"github.com/sivchari/dredd/internal/program"
	"github.com/sivchari/dredd/internal/reduce"
)

// Oracle is the narrow surface consolidate needs from internal/oracle.Oracle.
type Oracle interface {
	AttemptKill(ctx context.Context, stats program.Stats, selected []int) (kill.ExecutionStatus, error)
}

// Consolidator drives §4.G's consolidate(killed_m, status, program_stats)
// operation against one tree, one oracle, and one set of kill bookkeeping.
type Consolidator struct {
	Tree     *mutationtree.Tree
	Maps     *kill.Maps
	Oracle   Oracle
	Reducer  reduce.Reducer
	Renderer reduce.ScriptRenderer

	MutatedCompiler string
	CsmithRoot      string

	// WorkingDir is where the reduced working copy and interestingness
	// script are written and the archived __kills_<ids>.c files are placed.
	WorkingDir string

	// Logger emits the log line spec.md §7 requires when a ReducerFailure
	// drops a miscompilation from the reduce queue. Nil is treated as a
	// discard logger.
	Logger logging.Logger
}

func (c *Consolidator) logger() logging.Logger {
	if c.Logger == nil {
		return logging.NewDiscard()
	}

	return c.Logger
}

// Consolidate implements spec.md §4.G.
func (c *Consolidator) Consolidate(ctx context.Context, killedM int, status kill.ExecutionStatus, stats program.Stats) error {
	relatives, err := c.Tree.Incompatible(killedM)
	if err != nil {
		return fmt.Errorf("consolidate: incompatible(%d): %w", killedM, err)
	}

	var toReduce []int
	if status == kill.MiscompilationKill {
		toReduce = append(toReduce, killedM)
	}

	for _, relative := range relatives {
		if relative == killedM {
			continue
		}

		if !c.Maps.IsUnkilled(relative) {
			continue
		}

		if !stats.CoveredMutants[relative] {
			continue
		}

		relStatus, err := c.Oracle.AttemptKill(ctx, stats, []int{relative})
		if err != nil {
			return fmt.Errorf("consolidate: probing relative %d: %w", relative, err)
		}

		if !relStatus.IsKill() {
			c.Maps.IncrementRound(relative)

			continue
		}

		c.Maps.Commit(relative, relStatus)

		if relStatus == kill.MiscompilationKill {
			toReduce = append(toReduce, relative)
		}
	}

	return c.drainReduceQueue(ctx, toReduce, stats)
}

// drainReduceQueue implements spec.md §4.G step 2: reduce one id at a time,
// then test the remaining queue against the reduced file before moving on.
func (c *Consolidator) drainReduceQueue(ctx context.Context, toReduce []int, stats program.Stats) error {
	for len(toReduce) > 0 {
		m := toReduce[0]
		toReduce = toReduce[1:]

		workingFile, err := c.copyToWorkingFile(stats.Name)
		if err != nil {
			return fmt.Errorf("consolidate: preparing reduction working copy for mutant %d: %w", m, err)
		}

		scriptPath, err := c.renderScript(stats, []int{m})
		if err != nil {
			return fmt.Errorf("consolidate: rendering interestingness script for mutant %d: %w", m, err)
		}

		if err := c.Reducer.Reduce(ctx, scriptPath, workingFile, filepath.Join(c.CsmithRoot, "runtime")); err != nil {
			// ReducerFailure (spec.md §7): drop this miscompilation from the
			// queue with a log line; the underlying kill record is preserved.
			c.logger().Warn(ctx, fmt.Errorf("%w: %v", ddlerrors.ErrReducerFailure, err),
				"dropping mutant from reduce queue", "mutant", m)

			continue
		}

		group := []int{m}

		remaining := toReduce[:0:0]

		for _, other := range toReduce {
			ok, err := c.reducedFileStillKills(ctx, workingFile, stats, other)
			if err != nil {
				return fmt.Errorf("consolidate: re-testing mutant %d against reduced file: %w", other, err)
			}

			if ok {
				group = append(group, other)
			} else {
				remaining = append(remaining, other)
			}
		}

		toReduce = remaining

		if err := c.archive(workingFile, group); err != nil {
			return fmt.Errorf("consolidate: archiving reduced file for %v: %w", group, err)
		}
	}

	return nil
}

// reducedFileStillKills re-renders the interestingness predicate against
// other's id and directly executes it against the already-reduced file
// (spec.md §4.G step 2 / original_source/runner/main.py's
// is_killed_by_reduced_test_case): a single compile+run+compare, not another
// reduction pass. reducedFile is always the reducer's own working-file path
// (copyToWorkingFile's dest), which the rendered script assumes in place.
func (c *Consolidator) reducedFileStillKills(ctx context.Context, reducedFile string, stats program.Stats, other int) (bool, error) {
	scriptPath, err := c.renderScript(stats, []int{other})
	if err != nil {
		return false, err
	}

	result, err := procrun.Run(ctx, procrun.Spec{
		Name:    scriptPath,
		Env:     os.Environ(),
		Timeout: stats.CompileTimeout() + stats.RunTimeout(),
	})
	if err != nil {
		return false, fmt.Errorf("executing interestingness script for mutant %d against %s: %w", other, reducedFile, err)
	}

	return !result.TimedOut && result.ExitCode == 0, nil
}

func (c *Consolidator) copyToWorkingFile(source string) (string, error) {
	data, err := os.ReadFile(source)
	if err != nil {
		return "", err
	}

	dest := c.WorkingDir + "/__prog_to_reduce.c"
	if err := os.WriteFile(dest, data, 0o644); err != nil {
		return "", err
	}

	return dest, nil
}

func (c *Consolidator) renderScript(stats program.Stats, ids []int) (string, error) {
	path := c.WorkingDir + "/__interesting.py"

	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	err = c.Renderer.Render(f, reduce.ScriptParams{
		MutatedCompiler: c.MutatedCompiler,
		CsmithRoot:      c.CsmithRoot,
		EnabledIDs:      ids,
		ExpectedOutput:  string(stats.ExpectedOutput),
	})
	if err != nil {
		return "", err
	}

	if err := os.Chmod(path, 0o755); err != nil {
		return "", err
	}

	return path, nil
}

// archive renames the reduced file to __kills_<id1>_<id2>_....c, per spec.md §6.
func (c *Consolidator) archive(reducedFile string, ids []int) error {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}

	dest := c.WorkingDir + "/__kills_" + strings.Join(parts, "_") + ".c"

	return os.Rename(reducedFile, dest)
}
