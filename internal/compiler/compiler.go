// Package compiler builds the fixed compiler invocation shape shared by the
// oracle and the program-generation orchestrator (spec §6): the mutated and
// mutation-tracking compilers are always invoked with the same flags, and
// only the one extra environment variable set for the compile differs.
package compiler

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/sivchari/dredd/internal/procrun"
)

// EnabledMutationEnv is the environment variable carrying the comma-separated
// enable-set passed to the mutated compiler.
const EnabledMutationEnv = "DREDD_ENABLED_MUTATION"

// MutantTrackingFileEnv is the environment variable naming the file the
// mutation-tracking compiler appends reached mutation ids to.
const MutantTrackingFileEnv = "DREDD_MUTANT_TRACKING_FILE"

// Invocation describes one compile: which executable, which source, where to
// place the artifact, and against which Csmith checkout to resolve runtime
// headers.
type Invocation struct {
	Executable string
	CsmithRoot string
	Source     string
	Artifact   string
	Timeout    time.Duration

	// ExtraEnvKey=ExtraEnvValue is merged onto a snapshot of the current process environment
	// (never mutated process-wide, per Design Notes), one key=value per
	// compile: DREDD_ENABLED_MUTATION for the oracle, or
	// DREDD_MUTANT_TRACKING_FILE for the coverage-tracking compile.
	ExtraEnvKey   string
	ExtraEnvValue string
}

// Compile invokes inv and returns the raw subprocess result.
func Compile(ctx context.Context, inv Invocation) (procrun.Result, error) {
	args := []string{
		"-O3",
		"-I", filepath.Join(inv.CsmithRoot, "runtime"),
		"-I", filepath.Join(inv.CsmithRoot, "build", "runtime"),
		inv.Source,
		"-o", inv.Artifact,
	}

	env := os.Environ()
	if inv.ExtraEnvKey != "" {
		env = procrun.EnvWith(env, inv.ExtraEnvKey, inv.ExtraEnvValue)
	}

	return procrun.Run(ctx, procrun.Spec{
		Name:    inv.Executable,
		Args:    args,
		Env:     env,
		Timeout: inv.Timeout,
	})
}
