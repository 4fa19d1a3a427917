package engine

import (
	"fmt"

	"github.com/psantana5/modelguard/pkg/models"
)

// MinCacheRAMBytes is the available memory below which auto selection avoids
// the cached engine
const MinCacheRAMBytes = 1 << 30

// Selector picks the engine to attach to a model
type Selector struct {
	inst      Instrumentation
	cacheSize int
	caps      *models.NodeCapabilities
}

// NewSelector creates a selector for a host. caps may be nil when hardware
// detection failed.
func NewSelector(caps *models.NodeCapabilities, cacheSize int, inst Instrumentation) *Selector {
	return &Selector{
		inst:      inst,
		cacheSize: cacheSize,
		caps:      caps,
	}
}

// SelectEngine returns the engine for an explicit preference, or the best
// engine for this host when the preference is empty or "auto". It also
// returns a human readable reason.
func (s *Selector) SelectEngine(preference string) (Engine, string) {
	var (
		e      Engine
		reason string
	)
	switch EngineType(preference) {
	case "", EngineTypeAuto:
		e, reason = s.autoSelectEngine()
	case EngineTypeNative, EngineTypeCached:
		e, _ = New(EngineType(preference), s.cacheSize, s.inst)
		reason = fmt.Sprintf("Engine explicitly set to %s", preference)
	default:
		e, reason = s.autoSelectEngine()
		reason = fmt.Sprintf("Unknown engine preference '%s', using auto selection: %s", preference, reason)
	}

	s.inst.logger().Info("Engine selection", map[string]interface{}{
		"engine": e.Name(),
		"reason": reason,
	})
	return e, reason
}

func (s *Selector) autoSelectEngine() (Engine, string) {
	if s.caps == nil {
		return NewNative(s.inst), "Hardware unknown, using native engine"
	}
	if s.caps.RAMAvailableBytes >= MinCacheRAMBytes {
		return NewCached(s.cacheSize, s.inst),
			fmt.Sprintf("%d MiB available, output cache enabled", s.caps.RAMAvailableBytes>>20)
	}
	return NewNative(s.inst),
		fmt.Sprintf("Only %d MiB available, using native engine", s.caps.RAMAvailableBytes>>20)
}
