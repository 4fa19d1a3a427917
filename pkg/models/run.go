package models

import (
	"time"
)

// RunStatus represents the outcome of a guarded run
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusCanceled  RunStatus = "canceled"
)

// RunRecord is the persisted summary of one runner execution
type RunRecord struct {
	ID         string    `json:"id" yaml:"id"`
	Model      string    `json:"model" yaml:"model"`
	Engine     string    `json:"engine" yaml:"engine"`
	Status     RunStatus `json:"status" yaml:"status"`
	Steps      int       `json:"steps" yaml:"steps"`
	Failures   int       `json:"failures" yaml:"failures"`
	Masked     int       `json:"masked" yaml:"masked"`        // calls where the backend was masked
	Violations int       `json:"violations" yaml:"violations"` // steps that ended without the backend attached
	Checksum   float64   `json:"checksum" yaml:"checksum"`     // sum of all outputs
	StartedAt  time.Time `json:"started_at" yaml:"started_at"`
	FinishedAt time.Time `json:"finished_at,omitempty" yaml:"finished_at,omitempty"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`
}

// Duration returns how long the run took
func (r *RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
