// Package generator implements the program-generation orchestrator of
// spec.md §4.D: produce a self-consistent reference program, retrying any
// attempt in which a sub-step times out or exits non-zero.
package generator

import (
	"bufio"
	"context"
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary (spec.md §4.D)
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/sivchari/dredd/internal/compiler"
	"github.com/sivchari/dredd/internal/ddlerrors"
	"github.com/sivchari/dredd/internal/logging"
	"github.com/sivchari/dredd/internal/procrun"
	"github.com/sivchari/dredd/internal/program"
)

// ProgramSource generates a fresh source file at path (spec.md §6: csmith,
// invoked as `<csmith_root>/build/src/csmith -o <path>`, 10s timeout).
type ProgramSource interface {
	Generate(ctx context.Context, path string) error
}

// SourcePreparer inlines a fixed set of generator headers into path
// in-place (spec.md §6's opaque source-preparation collaborator).
type SourcePreparer interface {
	Prepare(ctx context.Context, path, csmithRoot string) error
}

const (
	sourceFile            = "__prog.c"
	referenceArtifact     = "__prog"
	mutantTrackingFile    = "__dredd_covered_mutants"
	coverageTrackingImage = "__prog_covered_mutants"
)

// Generator drives next_program() against one compiler pair and one pair of
// external collaborators.
type Generator struct {
	Source   ProgramSource
	Preparer SourcePreparer

	MutatedCompiler        string
	MutantTrackingCompiler string
	CsmithRoot             string

	// Logger emits the ReferenceGenerationFailure log line (spec.md §7) at
	// every discard-and-retry point. Defaults to a discard logger.
	Logger logging.Logger
}

// New returns a Generator wired to the given collaborators and compiler
// executables.
func New(source ProgramSource, preparer SourcePreparer, mutatedCompiler, trackingCompiler, csmithRoot string) *Generator {
	return &Generator{
		Source:                 source,
		Preparer:               preparer,
		MutatedCompiler:        mutatedCompiler,
		MutantTrackingCompiler: trackingCompiler,
		CsmithRoot:             csmithRoot,
		Logger:                 logging.NewDiscard(),
	}
}

func (g *Generator) logger() logging.Logger {
	if g.Logger == nil {
		return logging.NewDiscard()
	}

	return g.Logger
}

// NextProgram implements spec.md §4.D: loop until a self-consistent
// reference is obtained.
func (g *Generator) NextProgram(ctx context.Context) (program.Stats, error) {
	for {
		stats, ok, err := g.attempt(ctx)
		if err != nil {
			return program.Stats{}, err
		}

		if ok {
			return stats, nil
		}
	}
}

// attempt runs one generation attempt. The boolean result reports whether
// the attempt succeeded; a false result with a nil error means the caller
// should simply try again (spec.md §4.D's discard-and-retry policy).
func (g *Generator) attempt(ctx context.Context) (program.Stats, bool, error) {
	if err := g.Source.Generate(ctx, sourceFile); err != nil {
		g.logger().Warn(ctx, fmt.Errorf("%w: %v", ddlerrors.ErrReferenceGenerationFailure, err),
			"discarding attempt: program generation failed")

		return program.Stats{}, false, nil
	}

	if err := g.Preparer.Prepare(ctx, sourceFile, g.CsmithRoot); err != nil {
		g.logger().Warn(ctx, fmt.Errorf("%w: %v", ddlerrors.ErrReferenceGenerationFailure, err),
			"discarding attempt: source preparation failed")

		return program.Stats{}, false, nil
	}

	referenceStart := time.Now()

	refResult, err := compiler.Compile(ctx, compiler.Invocation{
		Executable: g.MutatedCompiler,
		CsmithRoot: g.CsmithRoot,
		Source:     sourceFile,
		Artifact:   referenceArtifact,
		Timeout:    10 * time.Second,
		// Empty DREDD_ENABLED_MUTATION yields reference behaviour.
		ExtraEnvKey:   compiler.EnabledMutationEnv,
		ExtraEnvValue: "",
	})
	if err != nil {
		return program.Stats{}, false, fmt.Errorf("generator: reference compile: %w", err)
	}

	if refResult.TimedOut || refResult.ExitCode != 0 {
		g.logger().Warn(ctx, ddlerrors.ErrReferenceGenerationFailure,
			"discarding attempt: reference compile failed", "exit", refResult.ExitCode, "timedOut", refResult.TimedOut)

		return program.Stats{}, false, nil
	}

	compileTime := time.Since(referenceStart)

	executeStart := time.Now()

	runResult, err := procrun.Run(ctx, procrun.Spec{
		Name:    "./" + referenceArtifact,
		Env:     os.Environ(),
		Timeout: 10 * time.Second,
	})
	if err != nil {
		return program.Stats{}, false, fmt.Errorf("generator: reference execution: %w", err)
	}

	if runResult.TimedOut || runResult.ExitCode != 0 {
		g.logger().Warn(ctx, ddlerrors.ErrReferenceGenerationFailure,
			"discarding attempt: reference execution failed", "exit", runResult.ExitCode, "timedOut", runResult.TimedOut)

		return program.Stats{}, false, nil
	}

	executionTime := time.Since(executeStart)

	hash, err := hashFile(referenceArtifact)
	if err != nil {
		return program.Stats{}, false, fmt.Errorf("generator: hashing reference artifact: %w", err)
	}

	covered, err := g.trackCoverage(ctx)
	if err != nil {
		// The reference compile already succeeded, so a coverage-tracking
		// compile failure is an invariant violation, not a discard-and-retry
		// condition (spec.md §4.D step 5).
		return program.Stats{}, false, fmt.Errorf("generator: coverage-tracking compile must succeed: %w", err)
	}

	return program.Stats{
		Name:           sourceFile,
		CompileTime:    compileTime,
		ExecutionTime:  executionTime,
		ExpectedOutput: runResult.Stdout,
		ExecutableHash: hash,
		CoveredMutants: covered,
	}, true, nil
}

// trackCoverage compiles with the coverage-tracking compiler, directing it
// to append reached mutation ids to mutantTrackingFile, then parses them.
func (g *Generator) trackCoverage(ctx context.Context) (map[int]bool, error) {
	_ = os.Remove(mutantTrackingFile)

	result, err := compiler.Compile(ctx, compiler.Invocation{
		Executable:    g.MutantTrackingCompiler,
		CsmithRoot:    g.CsmithRoot,
		Source:        sourceFile,
		Artifact:      coverageTrackingImage,
		Timeout:       10 * time.Second,
		ExtraEnvKey:   compiler.MutantTrackingFileEnv,
		ExtraEnvValue: mutantTrackingFile,
	})
	if err != nil {
		return nil, err
	}

	if result.TimedOut || result.ExitCode != 0 {
		return nil, fmt.Errorf("coverage-tracking compile failed (exit=%d timeout=%v)", result.ExitCode, result.TimedOut)
	}

	return parseCoveredMutants(mutantTrackingFile)
}

// parseCoveredMutants reads a newline-separated list of decimal mutation
// ids from path.
func parseCoveredMutants(path string) (map[int]bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[int]bool{}, nil
		}

		return nil, err
	}
	defer f.Close()

	covered := make(map[int]bool)

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}

		id, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("parsing covered-mutant id %q: %w", line, err)
		}

		covered[id] = true
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return covered, nil
}

// hashFile returns the MD5 digest of filename's contents (mirrors
// internal/oracle's hashFile; kept local to avoid a cross-package helper
// import for a small utility).
func hashFile(filename string) (string, error) {
	f, err := os.Open(filename)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := md5.New() //nolint:gosec // see import comment
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}

	return fmt.Sprintf("%x", h.Sum(nil)), nil
}
