// Package logging provides the structured logger shared by every component.
// Call sites attach context with WithField/WithFields; records are written
// through a slog tint handler.
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/lmittmann/tint"
)

type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

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

// ParseLevel maps a config string to a Level, defaulting to info.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Fields is a set of key/value pairs attached to a single log record.
type Fields map[string]interface{}

func WithField(key string, value interface{}) Fields {
	return Fields{key: value}
}

func WithFields(fields map[string]interface{}) Fields {
	return Fields(fields)
}

type Logger struct {
	base  *slog.Logger
	level Level
}

// New creates a logger writing to stderr.
func New(level Level) *Logger {
	return NewWithWriter(os.Stderr, level)
}

func NewWithWriter(w io.Writer, level Level) *Logger {
	handler := tint.NewHandler(w, &tint.Options{
		Level:      level.slogLevel(),
		TimeFormat: time.RFC3339,
		NoColor:    os.Getenv("NO_COLOR") != "",
	})
	return &Logger{base: slog.New(handler), level: level}
}

func (l *Logger) Level() Level {
	return l.level
}

// With returns a child logger that adds fields to every record.
func (l *Logger) With(fields Fields) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{base: l.base.With(attrs(fields)...), level: l.level}
}

func (l *Logger) Debug(msg string, fields ...Fields) {
	l.log(slog.LevelDebug, msg, fields)
}

func (l *Logger) Info(msg string, fields ...Fields) {
	l.log(slog.LevelInfo, msg, fields)
}

func (l *Logger) Warn(msg string, fields ...Fields) {
	l.log(slog.LevelWarn, msg, fields)
}

func (l *Logger) Error(msg string, fields ...Fields) {
	l.log(slog.LevelError, msg, fields)
}

func (l *Logger) log(level slog.Level, msg string, fields []Fields) {
	if l == nil {
		return
	}
	ctx := context.Background()
	if !l.base.Enabled(ctx, level) {
		return
	}

	merged := make(Fields)
	for _, f := range fields {
		for k, v := range f {
			merged[k] = v
		}
	}
	l.base.Log(ctx, level, msg, attrs(merged)...)
}

// attrs flattens fields in key order so output is stable.
func attrs(fields Fields) []any {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]any, 0, len(keys))
	for _, k := range keys {
		out = append(out, slog.Any(k, fields[k]))
	}
	return out
}
