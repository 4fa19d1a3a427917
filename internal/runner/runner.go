package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/psantana5/modelguard/pkg/attrmask"
	"github.com/psantana5/modelguard/pkg/engine"
	"github.com/psantana5/modelguard/pkg/logging"
	"github.com/psantana5/modelguard/pkg/models"
	"github.com/psantana5/modelguard/pkg/store"
	"github.com/psantana5/modelguard/pkg/tracing"
)

// Options controls a single run
type Options struct {
	Steps          int
	InputSize      int
	CallsPerSecond float64 // 0 disables throttling
}

// Runner executes guarded runs and persists their records
type Runner struct {
	opts  Options
	store store.Store
	inst  engine.Instrumentation
}

// New creates a runner. A nil store keeps records in memory only.
func New(opts Options, st store.Store, inst engine.Instrumentation) *Runner {
	if st == nil {
		st = store.NewMemoryStore()
	}
	if opts.InputSize <= 0 {
		opts.InputSize = 8
	}
	return &Runner{opts: opts, store: st, inst: inst}
}

func (r *Runner) logger() *logging.Logger {
	if r.inst.Logger == nil {
		return logging.Nop()
	}
	return r.inst.Logger
}

// Run attaches e to m, calls the model Steps times and returns the record.
// Forward failures are counted, not returned. The returned error is only
// set when the record cannot be persisted.
func (r *Runner) Run(ctx context.Context, m *models.Module, e engine.Engine) (*models.RunRecord, error) {
	rec := &models.RunRecord{
		ID:        uuid.NewString(),
		Model:     m.Name(),
		Engine:    e.Name(),
		Status:    models.RunStatusRunning,
		StartedAt: time.Now(),
	}
	if err := r.store.SaveRun(rec); err != nil {
		return nil, fmt.Errorf("failed to save run: %w", err)
	}

	log := r.logger().WithField("run_id", rec.ID)
	defer func() {
		if p := recover(); p != nil {
			rec.Status = models.RunStatusFailed
			rec.FinishedAt = time.Now()
			rec.Error = fmt.Sprintf("panic: %v", p)
			if err := r.store.SaveRun(rec); err != nil {
				log.Error("Failed to save panicked run", map[string]interface{}{"error": err.Error()})
			}
			panic(p)
		}
	}()
	log.Info("Run started", map[string]interface{}{
		"model":  rec.Model,
		"engine": rec.Engine,
		"steps":  r.opts.Steps,
	})

	ctx, span := r.inst.Tracer.StartSpan(ctx, "runner.run",
		attribute.String("run.id", rec.ID),
		attribute.String("model.name", rec.Model),
		attribute.String("engine.name", rec.Engine),
	)
	defer span.End()

	var limiter *rate.Limiter
	if r.opts.CallsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(r.opts.CallsPerSecond), 1)
	}

	var before engine.Stats
	if reporter, ok := e.(engine.StatsReporter); ok {
		before = reporter.Stats()
	}
	defer attach(m, e)()

	var lastErr error
	for step := 0; step < r.opts.Steps; step++ {
		if limiter != nil {
			if err := limiter.Wait(ctx); err != nil {
				lastErr = err
				break
			}
		}
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}

		out, err := m.Call(ctx, inputFor(step, r.opts.InputSize))
		rec.Steps++
		if err != nil {
			rec.Failures++
			lastErr = err
			log.Debug("Step failed", map[string]interface{}{"step": step, "error": err.Error()})
		} else {
			rec.Checksum += float64(out.Sum())
		}

		if b, ok := m.Backend(); !ok || b != e {
			rec.Violations++
			r.inst.Metrics.RecordViolation(rec.Model)
			log.Error("Backend not restored after step", map[string]interface{}{"step": step})
			m.AttachBackend(e)
		}
	}

	if reporter, ok := e.(engine.StatsReporter); ok {
		rec.Masked = int(reporter.Stats().Masked - before.Masked)
	}

	rec.FinishedAt = time.Now()
	switch {
	case errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded):
		rec.Status = models.RunStatusCanceled
	case rec.Steps > 0 && rec.Failures == rec.Steps:
		rec.Status = models.RunStatusFailed
	default:
		rec.Status = models.RunStatusCompleted
	}
	if lastErr != nil {
		rec.Error = lastErr.Error()
		if rec.Status != models.RunStatusCompleted {
			tracing.SetError(ctx, lastErr)
		}
	}
	span.SetAttributes(
		attribute.Int("run.steps", rec.Steps),
		attribute.Int("run.failures", rec.Failures),
		attribute.Int("run.violations", rec.Violations),
		attribute.String("run.status", string(rec.Status)),
	)

	if err := r.store.SaveRun(rec); err != nil {
		return rec, fmt.Errorf("failed to save run: %w", err)
	}

	log.Info("Run finished", map[string]interface{}{
		"status":      string(rec.Status),
		"steps":       rec.Steps,
		"failures":    rec.Failures,
		"masked":      rec.Masked,
		"violations":  rec.Violations,
		"duration_ms": rec.Duration().Milliseconds(),
	})
	return rec, nil
}

// attach makes e the backend of m and returns a func that puts back
// whatever m held before, or removes the attribute if it held nothing.
func attach(m *models.Module, e engine.Engine) (restore func()) {
	prev, had := m.Attr(attrmask.BackendAttr)
	m.AttachBackend(e)
	return func() {
		if had {
			m.SetAttr(attrmask.BackendAttr, prev)
			return
		}
		m.DeleteAttr(attrmask.BackendAttr)
	}
}
