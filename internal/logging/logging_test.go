package logging

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLogger_RespectsLevel(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelWarn)

	logger.Info("hidden message")
	logger.Warn("visible message", WithField("issue", 101))

	out := buf.String()
	if strings.Contains(out, "hidden message") {
		t.Errorf("Info() should be suppressed at warn level, got %q", out)
	}
	if !strings.Contains(out, "visible message") {
		t.Errorf("Warn() output missing message, got %q", out)
	}
	if !strings.Contains(out, "issue=101") {
		t.Errorf("Warn() output missing field, got %q", out)
	}
}

func TestLogger_WithFields(t *testing.T) {
	t.Setenv("NO_COLOR", "1")
	var buf bytes.Buffer
	logger := NewWithWriter(&buf, LevelDebug).With(WithField("page", "homepage"))

	logger.Debug("loaded", WithFields(map[string]interface{}{
		"count": 4,
		"feed":  "recent",
	}))

	out := buf.String()
	for _, want := range []string{"page=homepage", "count=4", "feed=recent"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q, got %q", want, out)
		}
	}
}

func TestLogger_NilSafe(t *testing.T) {
	var logger *Logger
	logger.Info("no panic")
}
