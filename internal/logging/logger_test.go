package logging_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sivchari/dredd/internal/logging"
)

func TestInfoWritesTextRecordWithFields(t *testing.T) {
	var buf bytes.Buffer
	l := logging.New(&logging.Config{Level: logging.LevelInfo, Format: "text", Output: &buf})

	l.Info(context.Background(), "round advanced", "round", 3)

	out := buf.String()
	assert.Contains(t, out, "round advanced")
	assert.Contains(t, out, "round=3")
}

func TestDebugSuppressedBelowConfiguredLevel(t *testing.T) {
	var buf bytes.Buffer
	l := logging.New(&logging.Config{Level: logging.LevelInfo, Format: "text", Output: &buf})

	l.Debug(context.Background(), "should not appear")

	assert.Empty(t, strings.TrimSpace(buf.String()))
}

func TestWithComponentTagsRecords(t *testing.T) {
	var buf bytes.Buffer
	l := logging.New(&logging.Config{Level: logging.LevelInfo, Format: "text", Output: &buf})

	scoped := l.WithComponent("search")
	scoped.Error(context.Background(), errors.New("boom"), "kill search failed")

	out := buf.String()
	assert.Contains(t, out, "component=search")
	assert.Contains(t, out, "error=boom")
}

func TestJSONFormatProducesJSONRecord(t *testing.T) {
	var buf bytes.Buffer
	l := logging.New(&logging.Config{Level: logging.LevelInfo, Format: "json", Output: &buf})

	l.Info(context.Background(), "hello")

	assert.True(t, strings.HasPrefix(strings.TrimSpace(buf.String()), "{"))
}
