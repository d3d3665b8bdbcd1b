package util

import (
	"bytes"
	"strings"
	"testing"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"trace":   LevelTrace,
		"TRACE":   LevelTrace,
		"debug":   LevelDebug,
		"info":    LevelInfo,
		" warn ":  LevelWarn,
		"error":   LevelError,
		"unknown": LevelInfo,
	}

	for input, want := range tests {
		if got := ParseLogLevel(input); got != want {
			t.Fatalf("ParseLogLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(LevelWarn, &buf)
	logger.Infof("hidden %d", 1)
	logger.Warnf("shown %d", 2)
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info message should be filtered: %q", out)
	}
	if !strings.Contains(out, "[WARN] shown 2") {
		t.Fatalf("expected warn message, got %q", out)
	}
}

func TestLoggerWithSharesLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLoggerWithWriter(LevelError, &buf)
	child := logger.With("engine").With("registry")
	child.Infof("dropped")
	logger.SetLevel(LevelDebug)
	child.Debugf("registered %s", "code")
	out := buf.String()
	if strings.Contains(out, "dropped") {
		t.Fatalf("child should honour parent level: %q", out)
	}
	if !strings.Contains(out, "[DEBUG] engine.registry: registered code") {
		t.Fatalf("expected prefixed debug line, got %q", out)
	}
}
