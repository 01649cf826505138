// Package ring provides a fixed-capacity FIFO sequence backed by a circular
// buffer.
//
// A Ring is not safe for concurrent use. Callers serialize access with their
// own lock; the delay queue keeps one Ring under its store mutex.
package ring

// Ring is a generic FIFO with a capacity fixed at construction. Storage is
// allocated once by New and never grows. The zero value has capacity zero and
// rejects every PushBack.
type Ring[T any] struct {
	buf  []T
	head int
	n    int
}

// New creates a ring that holds at most capacity elements.
// A negative capacity is treated as zero.
func New[T any](capacity int) *Ring[T] {
	if capacity < 0 {
		capacity = 0
	}
	return &Ring[T]{buf: make([]T, capacity)}
}

// PushBack appends v to the tail.
//
// Returns false, leaving the ring unchanged, when the ring is full.
// Complexity: O(1).
func (r *Ring[T]) PushBack(v T) bool {
	if r.n == len(r.buf) {
		return false
	}
	r.buf[r.index(r.n)] = v
	r.n++
	return true
}

// PopFront removes and returns the head value.
//
// The second result is false when the ring is empty. The vacated slot is
// zeroed so the ring does not pin the removed value. Complexity: O(1).
func (r *Ring[T]) PopFront() (T, bool) {
	var zero T
	if r.n == 0 {
		return zero, false
	}
	v := r.buf[r.head]
	r.buf[r.head] = zero
	r.head = r.index(1)
	r.n--
	if r.n == 0 {
		r.head = 0
	}
	return v, true
}

// Front returns the head value without removing it.
// The second result is false when the ring is empty. Complexity: O(1).
func (r *Ring[T]) Front() (T, bool) {
	var zero T
	if r.n == 0 {
		return zero, false
	}
	return r.buf[r.head], true
}

// At returns the i-th element from the head, 0 being the front.
// The second result is false when i is out of range.
func (r *Ring[T]) At(i int) (T, bool) {
	var zero T
	if i < 0 || i >= r.n {
		return zero, false
	}
	return r.buf[r.index(i)], true
}

// Len returns the number of elements currently held.
func (r *Ring[T]) Len() int { return r.n }

// Cap returns the fixed capacity.
func (r *Ring[T]) Cap() int { return len(r.buf) }

// IsEmpty reports whether the ring is empty.
func (r *Ring[T]) IsEmpty() bool { return r.n == 0 }

// IsFull reports whether another PushBack would be rejected.
func (r *Ring[T]) IsFull() bool { return r.n == len(r.buf) }

func (r *Ring[T]) index(offset int) int {
	return (r.head + offset) % len(r.buf)
}
