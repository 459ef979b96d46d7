package oracle

import (
	"context"
	"os"
	"time"

	"github.com/sivchari/dredd/internal/procrun"
)

// runArtifact executes the compiled program at path, capped at timeout.
func runArtifact(ctx context.Context, path string, timeout time.Duration) (procrun.Result, error) {
	abs, err := absExecutable(path)
	if err != nil {
		return procrun.Result{}, err
	}

	return procrun.Run(ctx, procrun.Spec{
		Name:    abs,
		Env:     os.Environ(),
		Timeout: timeout,
	})
}

func absExecutable(path string) (string, error) {
	if len(path) > 0 && path[0] == '/' {
		return path, nil
	}

	return "./" + path, nil
}
