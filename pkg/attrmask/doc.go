// Package attrmask provides a scoped guard that hides a model's attached
// backend while the backend itself runs the model.
//
// A model whose call path dispatches into an attached backend would recurse
// forever if the backend simply called the model again. The guard fixes the
// call environment: on Acquire it captures the value stored under BackendAttr
// and replaces it with the inactive marker (nil), and on Release it writes
// the captured value back.
//
// Typical use:
//
//	g := attrmask.New(model)
//	g.Acquire()
//	defer g.Release()
//	out, err := model.Call(ctx, in) // sees no backend, runs the plain forward
//
// or, equivalently, attrmask.Run / attrmask.RunContext.
//
// Notes:
//   - A target with no value (or a nil value) under BackendAttr is left
//     untouched: nothing is written on entry or on exit.
//   - Release runs on every exit path when deferred, including panics, and
//     never alters the error or panic coming out of the guarded body.
//   - The guard does no locking. Guarding the same target from two goroutines,
//     or nesting two guards over one target, is unsupported.
package attrmask
