package logging

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerFiltersByLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WARN, false)
	l.SetOutput(&buf)

	l.Info("hidden")
	l.Warn("shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info message should be filtered at WARN level: %q", out)
	}
	if !strings.Contains(out, "WARN: shown") {
		t.Fatalf("expected warn message, got %q", out)
	}
}

func TestLoggerJSONIncludesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(DEBUG, true)
	l.SetOutput(&buf)

	l.WithField("model", "linear").Info("call", map[string]interface{}{"step": 3})

	var entry LogEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log entry %q: %v", buf.String(), err)
	}
	if entry.Level != "INFO" || entry.Message != "call" {
		t.Fatalf("unexpected entry %+v", entry)
	}
	if entry.Fields["model"] != "linear" || entry.Fields["step"] != float64(3) {
		t.Fatalf("unexpected fields %v", entry.Fields)
	}
}

func TestWithFieldDoesNotMutateParent(t *testing.T) {
	var buf bytes.Buffer
	parent := NewLogger(DEBUG, false)
	parent.SetOutput(&buf)

	_ = parent.WithField("engine", "native")
	parent.Info("plain")

	if strings.Contains(buf.String(), "engine") {
		t.Fatalf("child field leaked into parent: %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]Level{
		"debug":   DEBUG,
		"INFO":    INFO,
		"warning": WARN,
		"error":   ERROR,
		"fatal":   FATAL,
		"bogus":   INFO,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewFileLogger(t *testing.T) {
	dir := t.TempDir()

	l, err := NewFileLogger(dir, "runner", "guard", INFO, false)
	if err != nil {
		t.Fatalf("NewFileLogger: %v", err)
	}
	l.SetConsole(io.Discard)
	l.Info("written to file")
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "runner", "guard.log"))
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Fatalf("expected message in log file, got %q", data)
	}
}

func TestGenerateLogrotateConfig(t *testing.T) {
	cfg := GenerateLogrotateConfig("/srv/logs", "runner")
	if !strings.Contains(cfg, "/srv/logs/runner/*.log {") {
		t.Fatalf("unexpected logrotate config:\n%s", cfg)
	}
}
