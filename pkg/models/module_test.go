package models

import (
	"context"
	"errors"
	"testing"

	"github.com/psantana5/modelguard/pkg/attrmask"
)

// recursingBackend calls back into the module, the way an engine does.
type recursingBackend struct {
	calls int
	depth int
	seen  []bool // whether a backend was visible inside each call
}

func (b *recursingBackend) Name() string { return "recursing" }

func (b *recursingBackend) Run(ctx context.Context, m *Module, in Tensor) (Tensor, error) {
	b.calls++
	b.depth++
	defer func() { b.depth-- }()
	if b.depth > 3 {
		return nil, errors.New("backend recursed into itself")
	}

	var out Tensor
	err := attrmask.RunContext(ctx, m, func(ctx context.Context) error {
		_, visible := m.Backend()
		b.seen = append(b.seen, visible)
		var err error
		out, err = m.Call(ctx, in)
		return err
	})
	return out, err
}

func newDoubler(t *testing.T) *Module {
	t.Helper()
	m, err := NewLinear("doubler", [][]float32{{2, 0}, {0, 2}}, []float32{0, 0})
	if err != nil {
		t.Fatalf("NewLinear: %v", err)
	}
	return m
}

func TestCallWithoutBackendRunsForward(t *testing.T) {
	m := newDoubler(t)

	out, err := m.Call(context.Background(), Tensor{1, 2})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out[0] != 2 || out[1] != 4 {
		t.Fatalf("expected [2 4], got %v", out)
	}
}

func TestCallDispatchesToBackendWithoutRecursion(t *testing.T) {
	m := newDoubler(t)
	b := &recursingBackend{}
	m.AttachBackend(b)

	out, err := m.Call(context.Background(), Tensor{3, 4})
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out[0] != 6 || out[1] != 8 {
		t.Fatalf("expected [6 8], got %v", out)
	}
	if b.calls != 1 {
		t.Fatalf("expected backend to run once, ran %d times", b.calls)
	}
	if len(b.seen) != 1 || b.seen[0] {
		t.Fatalf("expected backend to be hidden inside its own call, got %v", b.seen)
	}

	got, ok := m.Backend()
	if !ok || got != b {
		t.Fatalf("expected backend to be attached again after the call")
	}
}

func TestBackendRestoredWhenForwardFails(t *testing.T) {
	m := NewModule("failing", func(ctx context.Context, in Tensor) (Tensor, error) {
		return nil, errors.New("forward failed")
	})
	b := &recursingBackend{}
	m.AttachBackend(b)

	_, err := m.Call(context.Background(), Tensor{1})
	if err == nil || err.Error() != "forward failed" {
		t.Fatalf("expected forward error, got %v", err)
	}
	if got, ok := m.Backend(); !ok || got != b {
		t.Fatalf("expected backend restored after failure")
	}
}

func TestAttrLifecycle(t *testing.T) {
	m := NewModule("attrs", nil)

	if m.HasAttr("x") {
		t.Fatalf("expected x to be absent")
	}
	m.SetAttr("x", 1)
	m.SetAttr("a", "b")
	m.ClearAttr("x")

	if v, ok := m.Attr("x"); !ok || v != nil {
		t.Fatalf("expected cleared x to be present and nil, got %v (present=%v)", v, ok)
	}
	names := m.AttrNames()
	if len(names) != 2 || names[0] != "a" || names[1] != "x" {
		t.Fatalf("unexpected attribute names %v", names)
	}

	m.DeleteAttr("x")
	if m.HasAttr("x") {
		t.Fatalf("expected x to be deleted")
	}
}

func TestDetachBackend(t *testing.T) {
	m := newDoubler(t)
	m.AttachBackend(&recursingBackend{})
	m.DetachBackend()

	if _, ok := m.Backend(); ok {
		t.Fatalf("expected no backend after detach")
	}
	if m.HasAttr(attrmask.BackendAttr) {
		t.Fatalf("expected backend attribute to be removed")
	}
}

func TestForwardWithoutFunction(t *testing.T) {
	m := NewModule("empty", nil)
	if _, err := m.Forward(context.Background(), Tensor{1}); err == nil {
		t.Fatalf("expected error for module without forward function")
	}
}

func TestNewLinearValidation(t *testing.T) {
	if _, err := NewLinear("bad", [][]float32{{1}}, []float32{1, 2}); err == nil {
		t.Fatalf("expected row/bias mismatch error")
	}
	if _, err := NewLinear("ragged", [][]float32{{1, 2}, {3}}, []float32{0, 0}); err == nil {
		t.Fatalf("expected ragged rows error")
	}

	m, err := NewLinear("id", Identity(3), []float32{1, 1, 1})
	if err != nil {
		t.Fatalf("NewLinear: %v", err)
	}
	if _, err := m.Forward(context.Background(), Tensor{1, 2}); err == nil {
		t.Fatalf("expected input size error")
	}
	out, err := m.Forward(context.Background(), Tensor{1, 2, 3})
	if err != nil {
		t.Fatalf("Forward: %v", err)
	}
	if out.Sum() != 9 {
		t.Fatalf("expected sum 9, got %v", out.Sum())
	}
}

func TestTensorClone(t *testing.T) {
	a := Tensor{1, 2}
	b := a.Clone()
	b[0] = 5
	if a[0] != 1 {
		t.Fatalf("clone shares storage with original")
	}
	if Tensor(nil).Clone() != nil {
		t.Fatalf("expected nil clone of nil tensor")
	}
}
