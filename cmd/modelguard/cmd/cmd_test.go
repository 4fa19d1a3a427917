package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/psantana5/modelguard/pkg/models"
)

func sampleRun() *models.RunRecord {
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return &models.RunRecord{
		ID:         "run-1",
		Model:      "linear",
		Engine:     "native",
		Status:     models.RunStatusCompleted,
		Steps:      10,
		Failures:   2,
		Masked:     10,
		StartedAt:  start,
		FinishedAt: start.Add(1500 * time.Millisecond),
		Error:      "injected forward failure",
	}
}

func TestWriteStructured(t *testing.T) {
	tests := []struct {
		format     string
		structured bool
		contains   string
	}{
		{"json", true, `"engine": "native"`},
		{"yaml", true, "engine: native"},
		{"table", false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			structured, err := writeStructured(&buf, tt.format, sampleRun())
			if err != nil {
				t.Fatalf("writeStructured: %v", err)
			}
			if structured != tt.structured {
				t.Fatalf("structured = %v, want %v", structured, tt.structured)
			}
			if !strings.Contains(buf.String(), tt.contains) {
				t.Fatalf("expected %q in output:\n%s", tt.contains, buf.String())
			}
			if !tt.structured && buf.Len() != 0 {
				t.Fatalf("table format must not write anything, got %q", buf.String())
			}
		})
	}
}

func TestWriteStructuredYAMLRoundTrips(t *testing.T) {
	var buf bytes.Buffer
	if _, err := writeStructured(&buf, "yaml", sampleRun()); err != nil {
		t.Fatalf("writeStructured: %v", err)
	}
	var got models.RunRecord
	if err := yaml.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("yaml.Unmarshal: %v", err)
	}
	if got.ID != "run-1" || got.Failures != 2 {
		t.Fatalf("unexpected decoded run: %+v", got)
	}
}

func TestWriteRunsTable(t *testing.T) {
	var buf bytes.Buffer
	writeRunsTable(&buf, nil)
	if !strings.Contains(buf.String(), "No runs recorded") {
		t.Fatalf("unexpected empty output: %q", buf.String())
	}

	buf.Reset()
	writeRunsTable(&buf, []*models.RunRecord{sampleRun()})
	out := buf.String()
	for _, want := range []string{"run-1", "linear", "completed", "1.5s", "Total runs: 1"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in table:\n%s", want, out)
		}
	}
}

func TestWriteRunDetail(t *testing.T) {
	var buf bytes.Buffer
	writeRunDetail(&buf, sampleRun())
	out := buf.String()
	if !strings.Contains(out, "Steps:      10 (2 failed)") {
		t.Errorf("missing steps line:\n%s", out)
	}
	if !strings.Contains(out, "Last error: injected forward failure") {
		t.Errorf("missing error line:\n%s", out)
	}
}

func TestNewHardwareReport(t *testing.T) {
	caps := &models.NodeCapabilities{
		CPUThreads:        4,
		RAMTotalBytes:     8 << 30,
		RAMAvailableBytes: 4 << 30,
	}
	r := newHardwareReport(caps, 16)
	if r.SuggestedEngine != "cached" {
		t.Fatalf("expected cached engine with 4 GiB available, got %s", r.SuggestedEngine)
	}
	if r.Reason == "" {
		t.Fatalf("expected a selection reason")
	}
}

func TestRunCommandJSON(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	content := "log:\n  level: error\nstore:\n  driver: memory\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"run", "--config", cfgPath, "-o", "json", "--engine", "native", "--steps", "5", "--fail-every", "5"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	if err := Execute(); err != nil {
		t.Fatalf("Execute: %v", err)
	}

	var summary runSummary
	if err := json.Unmarshal(out.Bytes(), &summary); err != nil {
		t.Fatalf("invalid json output %q: %v", out.String(), err)
	}
	if summary.Run.Engine != "native" || summary.Run.Steps != 5 || summary.Run.Failures != 1 {
		t.Fatalf("unexpected run: %+v", summary.Run)
	}
	if summary.Run.Violations != 0 {
		t.Fatalf("expected no violations, got %d", summary.Run.Violations)
	}
}
