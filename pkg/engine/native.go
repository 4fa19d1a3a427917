package engine

import (
	"context"

	"github.com/psantana5/modelguard/pkg/models"
)

// Native runs the model's own forward pass with itself hidden from the model
type Native struct {
	inst Instrumentation
	c    counters
}

// NewNative creates a native engine
func NewNative(inst Instrumentation) *Native {
	return &Native{inst: inst}
}

// Name returns the engine name
func (e *Native) Name() string {
	return string(EngineTypeNative)
}

// Run executes the model
func (e *Native) Run(ctx context.Context, m *models.Module, in models.Tensor) (models.Tensor, error) {
	return guardedCall(ctx, e.inst, &e.c, e.Name(), m, in)
}

// Stats returns the engine's cumulative counters
func (e *Native) Stats() Stats {
	return e.c.snapshot()
}
