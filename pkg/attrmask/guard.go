package attrmask

import "context"

// BackendAttr is the attribute under which a model keeps its attached backend.
const BackendAttr = "_modelguard_backend"

// Target is an object with named, dynamically settable attributes.
type Target interface {
	// Attr returns the current value of name and whether it is set.
	Attr(name string) (any, bool)
	// SetAttr stores value under name.
	SetAttr(name string, value any)
	// ClearAttr sets name to the inactive marker (nil).
	ClearAttr(name string)
}

// State is the lifecycle position of a Guard.
type State int

const (
	StateIdle     State = iota // not entered yet
	StateMasked                // entered, value captured and cleared on the target
	StateSkipped               // entered, nothing to mask
	StateRestored              // exited
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMasked:
		return "masked"
	case StateSkipped:
		return "skipped"
	case StateRestored:
		return "restored"
	default:
		return "unknown"
	}
}

// Guard masks BackendAttr on one target for the duration of a scope.
// The zero value is not usable; create guards with New.
type Guard struct {
	target Target
	saved  any
	state  State
}

// New creates a guard over target. Nothing is read or written until Acquire.
func New(target Target) *Guard {
	return &Guard{target: target}
}

// Acquire captures the backend value and clears it on the target.
// Calling Acquire on a guard that is already masked does nothing.
func (g *Guard) Acquire() {
	if g.state == StateMasked {
		return
	}

	v, ok := g.target.Attr(BackendAttr)
	if !ok || v == nil {
		g.saved = nil
		g.state = StateSkipped
		return
	}

	g.saved = v
	g.target.ClearAttr(BackendAttr)
	g.state = StateMasked
}

// Release writes the captured value back. It is a no-op when nothing was
// captured or when the guard has already been released.
func (g *Guard) Release() {
	if g.state == StateMasked {
		g.target.SetAttr(BackendAttr, g.saved)
	}
	if g.state != StateIdle {
		g.state = StateRestored
	}
	g.saved = nil
}

// Masked reports whether the guard currently holds a captured value.
func (g *Guard) Masked() bool {
	return g.state == StateMasked
}

// State returns the guard's lifecycle position.
func (g *Guard) State() State {
	return g.state
}

// Run executes fn with BackendAttr masked on target. The error from fn is
// returned as is; a panic in fn propagates after the value is restored.
func Run(target Target, fn func() error) error {
	g := New(target)
	g.Acquire()
	defer g.Release()
	return fn()
}

// RunContext is Run for bodies that take a context. ctx is passed through
// unchanged; cancellation is up to fn.
func RunContext(ctx context.Context, target Target, fn func(context.Context) error) error {
	g := New(target)
	g.Acquire()
	defer g.Release()
	return fn(ctx)
}
