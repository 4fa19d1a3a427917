package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/psantana5/modelguard/pkg/models"
)

func testRunOperations(t *testing.T, s Store) {
	t.Helper()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		run := &models.RunRecord{
			ID:        fmt.Sprintf("run-%d-%d", time.Now().UnixNano(), i),
			Model:     "linear",
			Engine:    "native",
			Status:    models.RunStatusRunning,
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if err := s.SaveRun(run); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}

		run.Status = models.RunStatusCompleted
		run.Steps = 10 * (i + 1)
		run.Failures = i
		run.Masked = run.Steps
		run.Checksum = 1.5
		run.FinishedAt = run.StartedAt.Add(time.Second)
		if i == 2 {
			run.Status = models.RunStatusFailed
			run.Error = "forward failed"
		}
		if err := s.SaveRun(run); err != nil {
			t.Fatalf("SaveRun (update): %v", err)
		}

		got, err := s.GetRun(run.ID)
		if err != nil {
			t.Fatalf("GetRun: %v", err)
		}
		if got.Status != run.Status || got.Steps != run.Steps || got.Failures != run.Failures {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, run)
		}
		if got.Error != run.Error || got.Checksum != run.Checksum {
			t.Fatalf("round trip mismatch: got %+v, want %+v", got, run)
		}
		if !got.StartedAt.Equal(run.StartedAt) || !got.FinishedAt.Equal(run.FinishedAt) {
			t.Fatalf("time mismatch: got %v-%v, want %v-%v", got.StartedAt, got.FinishedAt, run.StartedAt, run.FinishedAt)
		}
		if got.Duration() != time.Second {
			t.Fatalf("expected 1s duration, got %v", got.Duration())
		}
	}

	runs, err := s.ListRuns(2)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if runs[0].StartedAt.Before(runs[1].StartedAt) {
		t.Fatalf("expected newest run first")
	}

	if _, err := s.GetRun("does-not-exist"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}

	testDeleteRunsBefore(t, s, base)
}

func testDeleteRunsBefore(t *testing.T, s Store, base time.Time) {
	t.Helper()
	prefix := fmt.Sprintf("prune-%d", time.Now().UnixNano())

	old := &models.RunRecord{ID: prefix + "-old", Model: "linear", Engine: "native",
		Status: models.RunStatusCompleted, StartedAt: base.Add(-time.Hour), FinishedAt: base.Add(-time.Hour + time.Second)}
	recent := &models.RunRecord{ID: prefix + "-recent", Model: "linear", Engine: "native",
		Status: models.RunStatusFailed, StartedAt: base.Add(time.Hour), FinishedAt: base.Add(time.Hour + time.Second)}
	running := &models.RunRecord{ID: prefix + "-running", Model: "linear", Engine: "native",
		Status: models.RunStatusRunning, StartedAt: base.Add(-2 * time.Hour)}
	for _, r := range []*models.RunRecord{old, recent, running} {
		if err := s.SaveRun(r); err != nil {
			t.Fatalf("SaveRun: %v", err)
		}
	}

	n, err := s.DeleteRunsBefore(base.Add(-30 * time.Minute))
	if err != nil {
		t.Fatalf("DeleteRunsBefore: %v", err)
	}
	if n < 1 {
		t.Fatalf("expected at least the old run to be deleted, got %d", n)
	}
	if _, err := s.GetRun(old.ID); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected old run deleted, got %v", err)
	}
	if _, err := s.GetRun(recent.ID); err != nil {
		t.Fatalf("recent run must be kept: %v", err)
	}
	if _, err := s.GetRun(running.ID); err != nil {
		t.Fatalf("running run must be kept: %v", err)
	}
}

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()
	defer s.Close()
	testRunOperations(t, s)
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	s := NewMemoryStore()
	run := &models.RunRecord{ID: "a", Steps: 1}
	if err := s.SaveRun(run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	run.Steps = 99

	got, _ := s.GetRun("a")
	if got.Steps != 1 {
		t.Fatalf("store must keep its own copy, got steps=%d", got.Steps)
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()
	testRunOperations(t, s)
}

func TestSQLiteUnfinishedRun(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "runs.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	defer s.Close()

	run := &models.RunRecord{ID: "open", Model: "m", Engine: "native", Status: models.RunStatusRunning, StartedAt: time.Now()}
	if err := s.SaveRun(run); err != nil {
		t.Fatalf("SaveRun: %v", err)
	}
	got, err := s.GetRun("open")
	if err != nil {
		t.Fatalf("GetRun: %v", err)
	}
	if !got.FinishedAt.IsZero() || got.Duration() != 0 {
		t.Fatalf("expected unfinished run, got %+v", got)
	}
}

// Set MODELGUARD_TEST_POSTGRES_DSN to run: export MODELGUARD_TEST_POSTGRES_DSN="postgres://..."
func TestPostgreSQLIntegration(t *testing.T) {
	dsn := os.Getenv("MODELGUARD_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("Skipping PostgreSQL integration test: MODELGUARD_TEST_POSTGRES_DSN not set")
	}

	s, err := NewStore(Config{Type: "postgres", DSN: dsn})
	if err != nil {
		t.Fatalf("Failed to create PostgreSQL store: %v", err)
	}
	defer s.Close()
	testRunOperations(t, s)
}

func TestNewStore(t *testing.T) {
	s, err := NewStore(Config{Type: "memory"})
	if err != nil {
		t.Fatalf("NewStore(memory): %v", err)
	}
	if _, ok := s.(*MemoryStore); !ok {
		t.Fatalf("expected *MemoryStore, got %T", s)
	}

	s, err = NewStore(Config{Type: "sqlite", DSN: filepath.Join(t.TempDir(), "x.db")})
	if err != nil {
		t.Fatalf("NewStore(sqlite): %v", err)
	}
	s.Close()

	if _, err := NewStore(Config{Type: "postgres"}); err == nil {
		t.Fatalf("expected error for postgres without DSN")
	}
	if _, err := NewStore(Config{Type: "mongo"}); !errors.Is(err, ErrUnsupportedDatabase) {
		t.Fatalf("expected ErrUnsupportedDatabase, got %v", err)
	}
}

func TestRebindDollar(t *testing.T) {
	got := rebindDollar("SELECT a FROM t WHERE x = ? AND y = ?")
	if got != "SELECT a FROM t WHERE x = $1 AND y = $2" {
		t.Fatalf("unexpected rebind: %s", got)
	}
}
