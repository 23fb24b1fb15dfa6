package cache

import "sync"

// View is a read-only projection of a cell's value. It holds no state of its
// own beyond a memo keyed by the generation it was computed from.
type View[S, V any] struct {
	cell *Cell[S]
	fn   func(S) V

	mu      sync.Mutex
	memoGen uint64
	memo    V
	has     bool
}

// Derive builds a view over cell. fn must be pure and total: it is invoked
// with the default value before the first load and must handle absent fields.
func Derive[S, V any](cell *Cell[S], fn func(S) V) *View[S, V] {
	return &View[S, V]{cell: cell, fn: fn}
}

// Get returns fn applied to the cell's current value.
func (v *View[S, V]) Get() V {
	return v.At(v.cell.Snapshot())
}

// Subscribe calls fn with the recomputed view whenever the underlying value
// changes generation. The current view is delivered immediately.
func (v *View[S, V]) Subscribe(fn func(V)) (unsubscribe func()) {
	var (
		last uint64
		seen bool
	)
	return v.cell.Subscribe(func(s Snapshot[S]) {
		if seen && s.Generation == last {
			return
		}
		seen = true
		last = s.Generation
		fn(v.At(s))
	})
}

// At applies fn to the value of s. Projecting several views from the same
// snapshot keeps them consistent with each other.
func (v *View[S, V]) At(s Snapshot[S]) V {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.has && v.memoGen == s.Generation {
		return v.memo
	}
	v.memo = v.fn(s.Value)
	v.memoGen = s.Generation
	v.has = true
	return v.memo
}
