// Package oracle invokes the mutated compiler with a chosen enable-set and
// classifies the result (spec §4.C).
package oracle

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // content fingerprint, not a security boundary (spec §4.D: "need not be cryptographic")
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/sivchari/dredd/internal/compiler"
	"github.com/sivchari/dredd/internal/kill"
	"github.com/sivchari/dredd/internal/program"
)

// Oracle wraps the mutated compiler executable and the scratch filenames it
// writes to.
type Oracle struct {
	CompilerExecutable string
	CsmithRoot         string

	// MutatedArtifact names the scratch file the oracle overwrites on every
	// attempt (spec §5's stable scratch names).
	MutatedArtifact string
}

// New returns an Oracle that writes its mutated artifact to the standard
// __prog_mutated scratch path.
func New(compilerExecutable, csmithRoot string) *Oracle {
	return &Oracle{
		CompilerExecutable: compilerExecutable,
		CsmithRoot:         csmithRoot,
		MutatedArtifact:    "__prog_mutated",
	}
}

// AttemptKill is the oracle's single operation (spec §4.C): compile with
// selected enabled, hash-compare against the reference, and on a binary
// difference, execute and compare output.
func (o *Oracle) AttemptKill(ctx context.Context, stats program.Stats, selected []int) (kill.ExecutionStatus, error) {
	_ = os.Remove(o.MutatedArtifact)

	ids := make([]string, len(selected))
	for i, m := range selected {
		ids[i] = strconv.Itoa(m)
	}

	compileResult, err := compiler.Compile(ctx, compiler.Invocation{
		Executable:    o.CompilerExecutable,
		CsmithRoot:    o.CsmithRoot,
		Source:        stats.Name,
		Artifact:      o.MutatedArtifact,
		Timeout:       stats.CompileTimeout(),
		ExtraEnvKey:   compiler.EnabledMutationEnv,
		ExtraEnvValue: strings.Join(ids, ","),
	})
	if err != nil {
		return kill.NoEffect, fmt.Errorf("invoking mutated compiler: %w", err)
	}

	if compileResult.TimedOut {
		return kill.CompileTimeoutKill, nil
	}

	if compileResult.ExitCode != 0 {
		return kill.CompileFailKill, nil
	}

	mutatedHash, err := hashFile(o.MutatedArtifact)
	if err != nil {
		return kill.NoEffect, fmt.Errorf("hashing mutated artifact: %w", err)
	}

	if mutatedHash == stats.ExecutableHash {
		return kill.NoEffect, nil
	}

	runResult, err := runArtifact(ctx, o.MutatedArtifact, stats.RunTimeout())
	if err != nil {
		return kill.NoEffect, fmt.Errorf("running mutated artifact: %w", err)
	}

	if runResult.TimedOut {
		return kill.RunTimeoutKill, nil
	}

	if runResult.ExitCode != 0 {
		return kill.RunFailKill, nil
	}

	if !bytes.Equal(runResult.Stdout, stats.ExpectedOutput) {
		return kill.MiscompilationKill, nil
	}

	return kill.DifferentBinariesSameResult, nil
}

// hashFile returns the MD5 digest of filename's contents (a 128-bit content
// hash is adequate per spec §4.D; it need not be cryptographic).
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
