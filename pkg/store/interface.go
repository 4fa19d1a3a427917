package store

import (
	"errors"
	"time"

	"github.com/psantana5/modelguard/pkg/models"
	"github.com/psantana5/modelguard/pkg/retry"
)

// Store defines the interface for run record persistence.
// Memory, SQLite and PostgreSQL implement this interface.
type Store interface {
	// SaveRun inserts or replaces a run record
	SaveRun(run *models.RunRecord) error
	// GetRun retrieves a run by ID
	GetRun(id string) (*models.RunRecord, error)
	// ListRuns returns runs newest first; limit <= 0 means all
	ListRuns(limit int) ([]*models.RunRecord, error)
	// DeleteRunsBefore removes finished runs that finished before cutoff
	// and returns how many were removed. Running runs are kept.
	DeleteRunsBefore(cutoff time.Time) (int, error)
	// Close releases the underlying resources
	Close() error
}

// Config holds database configuration
type Config struct {
	Type string // "memory", "sqlite" or "postgres"
	DSN  string // file path for sqlite, connection string for postgres

	// PostgreSQL specific
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	Retry           retry.Config // connection attempts at startup; zero value tries once
}

var (
	ErrRunNotFound         = errors.New("run not found")
	ErrUnsupportedDatabase = errors.New("unsupported database type")
)

// NewStore creates a store based on configuration
func NewStore(config Config) (Store, error) {
	switch config.Type {
	case "memory":
		return NewMemoryStore(), nil
	case "sqlite", "":
		path := config.DSN
		if path == "" {
			path = "modelguard.db"
		}
		return NewSQLiteStore(path)
	case "postgres", "postgresql":
		return NewPostgreSQLStore(config)
	default:
		return nil, ErrUnsupportedDatabase
	}
}
