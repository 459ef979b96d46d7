package generator_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sivchari/dredd/internal/generator"
)

func TestCsmithSourceGeneratesViaConfiguredRoot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "build", "src"), 0o755))

	script := "#!/bin/sh\nwhile [ \"$#\" -gt 0 ]; do\n  if [ \"$1\" = \"-o\" ]; then shift; echo int main > \"$1\"; fi\n  shift\ndone\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "build", "src", "csmith"), []byte(script), 0o755))

	out := filepath.Join(dir, "prog.c")
	src := generator.CsmithSource{CsmithRoot: dir}

	require.NoError(t, src.Generate(context.Background(), out))
	assert.FileExists(t, out)
}

func TestCsmithSourceFailsOnNonZeroExit(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "build", "src"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "build", "src", "csmith"), []byte("#!/bin/sh\nexit 1\n"), 0o755))

	src := generator.CsmithSource{CsmithRoot: dir}
	err := src.Generate(context.Background(), filepath.Join(dir, "prog.c"))
	assert.Error(t, err)
}

func TestExecPreparerRenamesPreparedOutputOverSource(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "prog.c")
	require.NoError(t, os.WriteFile(source, []byte("original"), 0o644))

	script := "#!/bin/sh\nprintf 'prepared' > \"$2\"\n"
	exe := filepath.Join(dir, "prepare")
	require.NoError(t, os.WriteFile(exe, []byte(script), 0o755))

	p := generator.ExecPreparer{Executable: exe}
	require.NoError(t, p.Prepare(context.Background(), source, dir))

	data, err := os.ReadFile(source)
	require.NoError(t, err)
	assert.Equal(t, "prepared", string(data))
}

func TestExecPreparerFailsOnNonZeroExit(t *testing.T) {
	dir := t.TempDir()
	source := filepath.Join(dir, "prog.c")
	require.NoError(t, os.WriteFile(source, []byte("original"), 0o644))

	exe := filepath.Join(dir, "prepare")
	require.NoError(t, os.WriteFile(exe, []byte("#!/bin/sh\nexit 2\n"), 0o755))

	p := generator.ExecPreparer{Executable: exe}
	err := p.Prepare(context.Background(), source, dir)
	assert.Error(t, err)

	data, err := os.ReadFile(source)
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}
