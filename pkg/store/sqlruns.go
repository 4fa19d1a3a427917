package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/psantana5/modelguard/pkg/models"
)

// runQueries holds the run table statements for one SQL dialect
type runQueries struct {
	upsert string
	get    string
	list   string
	prune  string
}

const runColumns = `id, model, engine, status, steps, failures, masked, violations, checksum,
	started_at, finished_at, error`

func newRunQueries(upsert string, dollar bool) runQueries {
	q := runQueries{
		upsert: upsert,
		get:    `SELECT ` + runColumns + ` FROM runs WHERE id = ?`,
		list:   `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC`,
		prune:  `DELETE FROM runs WHERE status <> ? AND finished_at IS NOT NULL AND finished_at < ?`,
	}
	if dollar {
		q.upsert = rebindDollar(q.upsert)
		q.get = rebindDollar(q.get)
		q.prune = rebindDollar(q.prune)
	}
	return q
}

// rebindDollar turns ? placeholders into $1, $2, ... for PostgreSQL
func rebindDollar(query string) string {
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func saveRun(db *sql.DB, q runQueries, run *models.RunRecord) error {
	var finished sql.NullTime
	if !run.FinishedAt.IsZero() {
		finished = sql.NullTime{Time: run.FinishedAt.UTC(), Valid: true}
	}

	_, err := db.Exec(q.upsert,
		run.ID, run.Model, run.Engine, string(run.Status), run.Steps, run.Failures, run.Masked,
		run.Violations, run.Checksum, run.StartedAt.UTC(), finished, run.Error)
	if err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.ID, err)
	}
	return nil
}

func getRun(db *sql.DB, q runQueries, id string) (*models.RunRecord, error) {
	run, err := scanRun(db.QueryRow(q.get, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run %s: %w", id, err)
	}
	return run, nil
}

func listRuns(db *sql.DB, q runQueries, limit int) ([]*models.RunRecord, error) {
	query := q.list
	if limit > 0 {
		query += " LIMIT " + strconv.Itoa(limit)
	}

	rows, err := db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []*models.RunRecord
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func deleteRunsBefore(db *sql.DB, q runQueries, cutoff time.Time) (int, error) {
	res, err := db.Exec(q.prune, string(models.RunStatusRunning), cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count deleted runs: %w", err)
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*models.RunRecord, error) {
	var (
		run      models.RunRecord
		status   string
		started  time.Time
		finished sql.NullTime
		errMsg   sql.NullString
	)
	err := row.Scan(&run.ID, &run.Model, &run.Engine, &status, &run.Steps, &run.Failures,
		&run.Masked, &run.Violations, &run.Checksum, &started, &finished, &errMsg)
	if err != nil {
		return nil, err
	}
	run.Status = models.RunStatus(status)
	run.StartedAt = started
	if finished.Valid {
		run.FinishedAt = finished.Time
	}
	run.Error = errMsg.String
	return &run, nil
}
