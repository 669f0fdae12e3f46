package derive

import "slices"

// Opt holds a value that may not have been supplied yet.
//
// The zero value is empty. Generated builders use one Opt per record field.
type Opt[T any] struct {
	val T
	set bool
}

// Some returns an Opt holding v.
func Some[T any](v T) Opt[T] { return Opt[T]{val: v, set: true} }

// Set stores v, replacing any previous value.
func (o *Opt[T]) Set(v T) {
	o.val = v
	o.set = true
}

// Clear empties the holder.
func (o *Opt[T]) Clear() {
	var zero T
	o.val = zero
	o.set = false
}

// IsSet reports whether a value has been supplied.
func (o Opt[T]) IsSet() bool { return o.set }

// Get returns the held value and whether it was supplied.
func (o Opt[T]) Get() (T, bool) { return o.val, o.set }

// Value returns the held value, or the zero value when empty.
func (o Opt[T]) Value() T { return o.val }

// GetOr returns the held value, or def when empty.
func (o Opt[T]) GetOr(def T) T {
	if !o.set {
		return def
	}
	return o.val
}

// Ptr returns a pointer to a copy of the held value, or nil when empty.
//
// Generated Build methods use it to hand optional (pointer) fields through
// unchanged: an empty holder becomes a nil field.
func (o Opt[T]) Ptr() *T {
	if !o.set {
		return nil
	}
	v := o.val
	return &v
}

// Append adds e to a sequence holder, first initialising an empty holder to an
// empty slice.
func Append[E any](o *Opt[[]E], e E) {
	if !o.set {
		o.val = []E{}
		o.set = true
	}
	o.val = append(o.val, e)
}

// Replace stores a copy of v in a sequence holder. Later Append calls never
// write through to the caller's backing array.
func Replace[E any](o *Opt[[]E], v []E) {
	o.Set(slices.Clone(v))
}

// Elements returns a copy of the held sequence. An empty holder yields an empty,
// non-nil slice: a repeated field that was never touched is legal.
func Elements[E any](o Opt[[]E]) []E {
	if !o.set {
		return []E{}
	}
	return slices.Clone(o.val)
}
