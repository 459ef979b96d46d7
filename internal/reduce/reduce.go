// Package reduce wraps the external test-case reducer and the
// interestingness-script renderer that the kill consolidator drives
// (spec.md §4.G, §6). Both the reducer binary and the templating of the
// script are out-of-scope external collaborators per spec.md §1; this
// package only defines the narrow contracts the driver calls through.
package reduce

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/sivchari/dredd/internal/procrun"
)

// Reducer drives an external test-case reducer (creduce) against a
// candidate program and an interestingness script.
type Reducer interface {
	Reduce(ctx context.Context, scriptPath, programPath, includePath string) error
}

// CreduceReducer invokes creduce via internal/procrun, per spec.md §6:
// `creduce <interestingness-script> <program>` with CREDUCE_INCLUDE_PATH
// pointing at the generator's runtime headers.
type CreduceReducer struct {
	Executable string
	Timeout    time.Duration
}

// NewCreduceReducer returns a CreduceReducer invoking the given binary
// (normally "creduce" resolved from PATH) with a generous default timeout.
func NewCreduceReducer(executable string) *CreduceReducer {
	return &CreduceReducer{Executable: executable, Timeout: 5 * time.Minute}
}

// Reduce runs creduce to completion; spec.md §5 states cancellation outside
// of timeouts is not supported once a child has begun, so the timeout here
// is generous and not meant to interrupt healthy progress.
func (r *CreduceReducer) Reduce(ctx context.Context, scriptPath, programPath, includePath string) error {
	timeout := r.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}

	env := procrun.EnvWith(os.Environ(), "CREDUCE_INCLUDE_PATH", includePath)

	result, err := procrun.Run(ctx, procrun.Spec{
		Name:    r.Executable,
		Args:    []string{scriptPath, programPath},
		Env:     env,
		Timeout: timeout,
	})
	if err != nil {
		return fmt.Errorf("invoking creduce: %w", err)
	}

	if result.TimedOut || result.ExitCode != 0 {
		return fmt.Errorf("creduce failed (exit=%d timeout=%v)", result.ExitCode, result.TimedOut)
	}

	return nil
}

// ScriptRenderer emits an interestingness script for a given enable-set: an
// executable that compiles the candidate program with the mutated compiler
// while DREDD_ENABLED_MUTATION names the mutant(s) of interest, executes it,
// and exits zero iff the classification is MiscompilationKill.
//
// Templating the script body is explicitly out of scope (spec.md §1); this
// is a thin, fixed template, not a templating subsystem.
type ScriptRenderer interface {
	Render(w io.Writer, params ScriptParams) error
}

// ScriptParams parametrizes one interestingness script.
type ScriptParams struct {
	MutatedCompiler string
	CsmithRoot      string
	EnabledIDs      []int
	ExpectedOutput  string
}

const interestingnessScriptTemplate = `#!/bin/sh
set -e
rm -f __prog_to_reduce
DREDD_ENABLED_MUTATION="{{.EnabledIDs}}" {{.MutatedCompiler}} -O3 \
  -I {{.CsmithRoot}}/runtime -I {{.CsmithRoot}}/build/runtime \
  __prog_to_reduce.c -o __prog_to_reduce || exit 1
actual=$(./__prog_to_reduce)
expected=$(cat <<'DREDD_EXPECTED_OUTPUT'
{{.ExpectedOutput}}
DREDD_EXPECTED_OUTPUT
)
[ "$actual" = "$expected" ] && exit 1
exit 0
`

// TemplateRenderer renders the fixed interestingness-script template with
// text/template, mirroring the teacher's internal/report use of
// text/template for its own fixed-shape output.
type TemplateRenderer struct {
	tmpl *template.Template
}

// NewTemplateRenderer parses the fixed interestingness-script template once.
func NewTemplateRenderer() (*TemplateRenderer, error) {
	tmpl, err := template.New("interestingness").Parse(interestingnessScriptTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing interestingness script template: %w", err)
	}

	return &TemplateRenderer{tmpl: tmpl}, nil
}

// Render writes the interestingness script for params to w.
func (t *TemplateRenderer) Render(w io.Writer, params ScriptParams) error {
	ids := make([]string, len(params.EnabledIDs))
	for i, id := range params.EnabledIDs {
		ids[i] = strconv.Itoa(id)
	}

	data := struct {
		MutatedCompiler string
		CsmithRoot      string
		EnabledIDs      string
		ExpectedOutput  string
	}{
		MutatedCompiler: params.MutatedCompiler,
		CsmithRoot:      params.CsmithRoot,
		EnabledIDs:      strings.Join(ids, ","),
		ExpectedOutput:  params.ExpectedOutput,
	}

	if err := t.tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("rendering interestingness script: %w", err)
	}

	return nil
}
