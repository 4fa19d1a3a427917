package engine

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/psantana5/modelguard/pkg/attrmask"
	"github.com/psantana5/modelguard/pkg/logging"
	"github.com/psantana5/modelguard/pkg/metrics"
	"github.com/psantana5/modelguard/pkg/models"
	"github.com/psantana5/modelguard/pkg/tracing"
)

// Engine is a backend that can be attached to a model
type Engine = models.Backend

// EngineType represents the type of model engine
type EngineType string

const (
	EngineTypeAuto   EngineType = "auto"
	EngineTypeNative EngineType = "native"
	EngineTypeCached EngineType = "cached"
)

// ErrUnknownEngine is returned for engine names New does not know
var ErrUnknownEngine = errors.New("unknown engine")

// Instrumentation carries the observability hooks shared by all engines.
// Every field may be nil.
type Instrumentation struct {
	Logger  *logging.Logger
	Metrics *metrics.GuardMetrics
	Tracer  *tracing.Provider
}

func (i Instrumentation) logger() *logging.Logger {
	if i.Logger == nil {
		return logging.Nop()
	}
	return i.Logger
}

// Stats are cumulative counters kept by every engine
type Stats struct {
	Calls   int64 // guarded calls, cache hits excluded
	Masked  int64 // calls that found a backend and hid it
	Skipped int64 // calls that found nothing to hide
	Failed  int64
}

// StatsReporter is implemented by engines that keep Stats
type StatsReporter interface {
	Stats() Stats
}

type counters struct {
	calls, masked, skipped, failed atomic.Int64
}

func (c *counters) snapshot() Stats {
	return Stats{
		Calls:   c.calls.Load(),
		Masked:  c.masked.Load(),
		Skipped: c.skipped.Load(),
		Failed:  c.failed.Load(),
	}
}

func (c *counters) record(masked bool, err error) {
	c.calls.Add(1)
	if masked {
		c.masked.Add(1)
	} else {
		c.skipped.Add(1)
	}
	if err != nil {
		c.failed.Add(1)
	}
}

// New creates an engine by type. EngineTypeAuto is resolved by Selector, not here.
func New(t EngineType, cacheSize int, inst Instrumentation) (Engine, error) {
	switch t {
	case EngineTypeNative:
		return NewNative(inst), nil
	case EngineTypeCached:
		return NewCached(cacheSize, inst), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEngine, t)
	}
}

// guardedCall runs m.Call with the backend attribute masked, so the call
// falls through to the model's own forward instead of re-entering the engine.
func guardedCall(ctx context.Context, inst Instrumentation, c *counters, name string, m *models.Module, in models.Tensor) (models.Tensor, error) {
	ctx, span := inst.Tracer.StartSpan(ctx, "engine.run",
		attribute.String("engine", name),
		attribute.String("model", m.Name()),
	)
	defer span.End()

	start := time.Now()
	var (
		out    models.Tensor
		masked bool
	)
	err := func() error {
		g := attrmask.New(m)
		g.Acquire()
		defer g.Release()
		masked = g.Masked()

		var err error
		out, err = m.Call(ctx, in)
		return err
	}()
	elapsed := time.Since(start)

	c.record(masked, err)

	inst.Metrics.RecordScope(name, masked, err)
	inst.Metrics.RecordCall(name, m.Name(), elapsed, err)
	if err != nil {
		tracing.SetError(ctx, err)
	}

	inst.logger().Debug("engine call", map[string]interface{}{
		"engine":   name,
		"model":    m.Name(),
		"masked":   masked,
		"duration": elapsed.String(),
		"failed":   err != nil,
	})

	return out, err
}
