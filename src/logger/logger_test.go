package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, "WARNING", "test")

	l.Debug("debug %d", 1)
	l.Info("info %d", 2)
	l.Warning("warn %d", 3)
	l.Error("error %d", 4)

	out := buf.String()
	if strings.Contains(out, "debug 1") || strings.Contains(out, "info 2") {
		t.Errorf("messages below WARNING were written: %q", out)
	}
	if !strings.Contains(out, "[test] WARNING: warn 3") {
		t.Errorf("missing warning line in %q", out)
	}
	if !strings.Contains(out, "[test] ERROR: error 4") {
		t.Errorf("missing error line in %q", out)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warn", LevelWarning},
		{" Error ", LevelError},
		{"", LevelInfo},
		{"verbose", LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %d; want %d", tt.in, got, tt.want)
		}
	}
}

func TestCriticalExits(t *testing.T) {
	var buf bytes.Buffer
	l := NewLoggerTo(&buf, "INFO", "svc").Named("child")
	code := -1
	l.exit = func(c int) { code = c }

	l.Critical("boom")

	if code != 1 {
		t.Errorf("exit code = %d; want 1", code)
	}
	if !strings.Contains(buf.String(), "[child] CRITICAL: boom") {
		t.Errorf("unexpected output %q", buf.String())
	}
}
