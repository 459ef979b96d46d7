package generator

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sivchari/dredd/internal/procrun"
)

// CsmithSource is the concrete ProgramSource: it execs csmith exactly as
// spec.md §6 requires (`<csmith_root>/build/src/csmith -o <path>`, 10s
// timeout; any non-zero exit or timeout rejects the attempt).
type CsmithSource struct {
	CsmithRoot string
}

// Generate writes a fresh random C program to path.
func (c CsmithSource) Generate(ctx context.Context, path string) error {
	executable := c.CsmithRoot + "/build/src/csmith"

	result, err := procrun.Run(ctx, procrun.Spec{
		Name:    executable,
		Args:    []string{"-o", path},
		Env:     os.Environ(),
		Timeout: 10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("csmith: %w", err)
	}

	if result.TimedOut || result.ExitCode != 0 {
		return fmt.Errorf("csmith: exit=%d timeout=%v", result.ExitCode, result.TimedOut)
	}

	return nil
}

// ExecPreparer is the concrete SourcePreparer: spec.md §6 treats header
// inlining as an opaque external collaborator, so this simply execs the
// configured binary, which is expected to take (source-in, source-out,
// csmith-root) and inline the fixed set of generator headers.
type ExecPreparer struct {
	Executable string
}

// Prepare inlines generator headers into path in place, via a scratch
// output file the external binary writes and this adapter renames over
// path (the driver's own SourcePreparer contract operates in place, per
// generator.SourcePreparer).
func (p ExecPreparer) Prepare(ctx context.Context, path, csmithRoot string) error {
	prepared := path + ".prepared"
	defer os.Remove(prepared)

	result, err := procrun.Run(ctx, procrun.Spec{
		Name:    p.Executable,
		Args:    []string{path, prepared, csmithRoot},
		Env:     os.Environ(),
		Timeout: 10 * time.Second,
	})
	if err != nil {
		return fmt.Errorf("source preparer: %w", err)
	}

	if result.TimedOut || result.ExitCode != 0 {
		return fmt.Errorf("source preparer: exit=%d timeout=%v", result.ExitCode, result.TimedOut)
	}

	return os.Rename(prepared, path)
}
