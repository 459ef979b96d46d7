// Package logging provides the driver's structured logger, trimmed down
// from the teacher pack's log/slog wrapper (conneroisu-templar/internal
// /logging.Logger) to the leveled, component-scoped shape this driver
// actually needs.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// Level mirrors slog's levels under the driver's own name, matching the
// teacher's LogLevel wrapper.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) slogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Logger is the structured logging surface used throughout the driver.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...any)
	Info(ctx context.Context, msg string, fields ...any)
	Warn(ctx context.Context, err error, msg string, fields ...any)
	Error(ctx context.Context, err error, msg string, fields ...any)

	WithComponent(component string) Logger
}

// DriverLogger is the Logger implementation backed by log/slog.
type DriverLogger struct {
	logger    *slog.Logger
	level     Level
	component string
}

// Config controls handler format and verbosity.
type Config struct {
	Level  Level
	Format string // "json" or "text"
	Output io.Writer
}

// DefaultConfig returns text-formatted, info-level logging to stdout.
func DefaultConfig() *Config {
	return &Config{Level: LevelInfo, Format: "text", Output: os.Stdout}
}

// New creates a Logger from cfg, falling back to DefaultConfig when nil.
func New(cfg *Config) *DriverLogger {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	opts := &slog.HandlerOptions{Level: cfg.Level.slogLevel()}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(cfg.Output, opts)
	} else {
		handler = slog.NewTextHandler(cfg.Output, opts)
	}

	return &DriverLogger{logger: slog.New(handler), level: cfg.Level}
}

func (l *DriverLogger) Debug(ctx context.Context, msg string, fields ...any) {
	l.log(ctx, slog.LevelDebug, nil, msg, fields...)
}

func (l *DriverLogger) Info(ctx context.Context, msg string, fields ...any) {
	l.log(ctx, slog.LevelInfo, nil, msg, fields...)
}

func (l *DriverLogger) Warn(ctx context.Context, err error, msg string, fields ...any) {
	l.log(ctx, slog.LevelWarn, err, msg, fields...)
}

func (l *DriverLogger) Error(ctx context.Context, err error, msg string, fields ...any) {
	l.log(ctx, slog.LevelError, err, msg, fields...)
}

// WithComponent returns a logger that tags every record with component,
// matching the teacher's per-package logger scoping.
func (l *DriverLogger) WithComponent(component string) Logger {
	return &DriverLogger{logger: l.logger, level: l.level, component: component}
}

func (l *DriverLogger) log(ctx context.Context, level slog.Level, err error, msg string, fields ...any) {
	if !l.logger.Enabled(ctx, level) {
		return
	}

	attrs := make([]slog.Attr, 0, len(fields)/2+2)

	if l.component != "" {
		attrs = append(attrs, slog.String("component", l.component))
	}

	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}

	for i := 0; i+1 < len(fields); i += 2 {
		key, ok := fields[i].(string)
		if !ok || key == "" {
			continue
		}

		attrs = append(attrs, slog.Any(key, fields[i+1]))
	}

	record := slog.NewRecord(time.Now(), level, msg, 0)
	record.AddAttrs(attrs...)

	if handler := l.logger.Handler(); handler != nil {
		if handleErr := handler.Handle(ctx, record); handleErr != nil {
			fmt.Fprintf(os.Stderr, "logging: failed to write record: %v (message: %s)\n", handleErr, msg)
		}
	}
}

// NewDiscard returns a Logger that drops everything, for tests.
func NewDiscard() Logger {
	return New(&Config{Level: LevelError, Format: "text", Output: io.Discard})
}
