package attrmask

// Optional is an explicit optional field, for types that keep their backend
// in a typed slot rather than an attribute table.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// Get returns the value and whether it is set.
func (o *Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// Set stores v.
func (o *Optional[T]) Set(v T) {
	o.value = v
	o.set = true
}

// Clear resets the slot to unset.
func (o *Optional[T]) Clear() {
	var zero T
	o.value = zero
	o.set = false
}

// MaskOptional clears o and returns a func that restores the previous value.
// When o is unset the returned func does nothing, so o stays unset.
func MaskOptional[T any](o *Optional[T]) (restore func()) {
	v, ok := o.Get()
	if !ok {
		return func() {}
	}
	o.Clear()
	return func() {
		o.Set(v)
	}
}
