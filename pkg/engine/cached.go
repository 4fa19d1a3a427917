package engine

import (
	"context"
	"encoding/binary"
	"math"
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/psantana5/modelguard/pkg/models"
)

// DefaultCacheSize is used when a cached engine is created with size <= 0
const DefaultCacheSize = 128

// Cached runs models like Native and memoizes outputs per input.
// Errors are never cached. The oldest entry is evicted when full.
type Cached struct {
	inst Instrumentation
	size int
	c    counters
	hits atomic.Int64

	mu      sync.Mutex
	entries map[entryKey]models.Tensor
	order   []entryKey
}

// entryKey scopes an input hash to one module, so modules sharing a name
// never share outputs.
type entryKey struct {
	model *models.Module
	input uint64
}

// NewCached creates a cached engine holding at most size outputs
func NewCached(size int, inst Instrumentation) *Cached {
	if size <= 0 {
		size = DefaultCacheSize
	}
	return &Cached{
		inst:    inst,
		size:    size,
		entries: make(map[entryKey]models.Tensor, size),
	}
}

// Name returns the engine name
func (e *Cached) Name() string {
	return string(EngineTypeCached)
}

// Run returns a cached output when the same model saw the same input before
func (e *Cached) Run(ctx context.Context, m *models.Module, in models.Tensor) (models.Tensor, error) {
	key := entryKey{model: m, input: cacheKey(m.Name(), in)}

	e.mu.Lock()
	out, ok := e.entries[key]
	e.mu.Unlock()
	e.inst.Metrics.RecordCacheLookup(e.Name(), ok)
	if ok {
		e.hits.Add(1)
		return out.Clone(), nil
	}

	out, err := guardedCall(ctx, e.inst, &e.c, e.Name(), m, in)
	if err != nil {
		return nil, err
	}

	e.store(key, out.Clone())
	return out, nil
}

// Stats returns the engine's cumulative counters
func (e *Cached) Stats() Stats {
	return e.c.snapshot()
}

// Hits returns how many calls were served from the cache
func (e *Cached) Hits() int64 {
	return e.hits.Load()
}

// Len returns the number of cached outputs
func (e *Cached) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.entries)
}

// Reset drops every cached output
func (e *Cached) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.entries = make(map[entryKey]models.Tensor, e.size)
	e.order = nil
}

func (e *Cached) store(key entryKey, out models.Tensor) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, exists := e.entries[key]; exists {
		e.entries[key] = out
		return
	}
	if len(e.order) >= e.size {
		oldest := e.order[0]
		e.order = e.order[1:]
		delete(e.entries, oldest)
	}
	e.entries[key] = out
	e.order = append(e.order, key)
}

func cacheKey(model string, in models.Tensor) uint64 {
	d := xxhash.New()
	d.WriteString(model)
	d.Write([]byte{0})
	var buf [4]byte
	for _, v := range in {
		binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
		d.Write(buf[:])
	}
	return d.Sum64()
}
