package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/psantana5/modelguard/pkg/models"
	"github.com/psantana5/modelguard/pkg/retry"
)

// PostgreSQLStore implements Store interface using PostgreSQL
type PostgreSQLStore struct {
	db *sql.DB
	q  runQueries
}

// NewPostgreSQLStore creates a new PostgreSQL store
func NewPostgreSQLStore(config Config) (*PostgreSQLStore, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("PostgreSQL DSN is required")
	}

	db, err := sql.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if config.MaxOpenConns > 0 {
		db.SetMaxOpenConns(config.MaxOpenConns)
	} else {
		db.SetMaxOpenConns(10)
	}
	if config.MaxIdleConns > 0 {
		db.SetMaxIdleConns(config.MaxIdleConns)
	} else {
		db.SetMaxIdleConns(2)
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	} else {
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	err = retry.Do(context.Background(), config.Retry, func(ctx context.Context) error {
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		return db.PingContext(pingCtx)
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := &PostgreSQLStore{
		db: db,
		q: newRunQueries(`INSERT INTO runs (`+runColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT (id) DO UPDATE SET
				model = EXCLUDED.model,
				engine = EXCLUDED.engine,
				status = EXCLUDED.status,
				steps = EXCLUDED.steps,
				failures = EXCLUDED.failures,
				masked = EXCLUDED.masked,
				violations = EXCLUDED.violations,
				checksum = EXCLUDED.checksum,
				started_at = EXCLUDED.started_at,
				finished_at = EXCLUDED.finished_at,
				error = EXCLUDED.error`, true),
	}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

func (s *PostgreSQLStore) initSchema() error {
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
		checksum DOUBLE PRECISION NOT NULL DEFAULT 0,
		started_at TIMESTAMPTZ NOT NULL,
		finished_at TIMESTAMPTZ,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

// SaveRun inserts or updates a run record
func (s *PostgreSQLStore) SaveRun(run *models.RunRecord) error {
	return saveRun(s.db, s.q, run)
}

// GetRun retrieves a run by ID
func (s *PostgreSQLStore) GetRun(id string) (*models.RunRecord, error) {
	return getRun(s.db, s.q, id)
}

// ListRuns returns runs newest first
func (s *PostgreSQLStore) ListRuns(limit int) ([]*models.RunRecord, error) {
	return listRuns(s.db, s.q, limit)
}

// DeleteRunsBefore removes finished runs older than cutoff
func (s *PostgreSQLStore) DeleteRunsBefore(cutoff time.Time) (int, error) {
	return deleteRunsBefore(s.db, s.q, cutoff)
}

// Close closes the database
func (s *PostgreSQLStore) Close() error {
	return s.db.Close()
}
