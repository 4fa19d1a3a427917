package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/psantana5/modelguard/pkg/models"
)

// SQLiteStore is a SQLite-based implementation of the data store
type SQLiteStore struct {
	db *sql.DB
	q  runQueries
}

// NewSQLiteStore creates a new SQLite store
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	// WAL and a busy timeout let the CLI read runs while another process writes
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=10000&_synchronous=NORMAL", dbPath)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Single writer for SQLite to avoid lock contention
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(30 * time.Minute)

	store := &SQLiteStore{
		db: db,
		q: newRunQueries(`INSERT OR REPLACE INTO runs (`+runColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, false),
	}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		model TEXT NOT NULL,
		engine TEXT NOT NULL,
		status TEXT NOT NULL,
		steps INTEGER NOT NULL,
		failures INTEGER NOT NULL,
		masked INTEGER NOT NULL,
		violations INTEGER NOT NULL,
		checksum REAL NOT NULL DEFAULT 0,
		started_at DATETIME NOT NULL,
		finished_at DATETIME,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun inserts or replaces a run record
func (s *SQLiteStore) SaveRun(run *models.RunRecord) error {
	return saveRun(s.db, s.q, run)
}

// GetRun retrieves a run by ID
func (s *SQLiteStore) GetRun(id string) (*models.RunRecord, error) {
	return getRun(s.db, s.q, id)
}

// ListRuns returns runs newest first
func (s *SQLiteStore) ListRuns(limit int) ([]*models.RunRecord, error) {
	return listRuns(s.db, s.q, limit)
}

// DeleteRunsBefore removes finished runs older than cutoff
func (s *SQLiteStore) DeleteRunsBefore(cutoff time.Time) (int, error) {
	return deleteRunsBefore(s.db, s.q, cutoff)
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
