package delayqueue

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xyhelper/delayqueue/internal/cond"
	"github.com/xyhelper/delayqueue/internal/ring"
	"go.opentelemetry.io/otel/trace"
	"k8s.io/utils/clock"
)

// Queue is a handle to a bounded, concurrency-safe FIFO whose items carry
// individual delays. Handles returned by Clone share one underlying store.
//
// All methods are safe for concurrent use by multiple goroutines.
type Queue[T any] struct {
	s *store[T]
}

// Stats is a point-in-time snapshot of queue counters.
type Stats struct {
	Name     string
	Len      int
	Due      int // queued values whose delay has elapsed
	Cap      int
	Pushed   uint64 // values appended
	Popped   uint64 // values delivered by Wait or TryTake
	Canceled uint64 // Wait calls that returned a context error
	Released uint64 // reservations cleared by an abandoned Wait
}

// store is the state shared by every handle.
type store[T any] struct {
	name   string
	clock  clock.Clock
	logger *slog.Logger
	tracer trace.Tracer

	mu       sync.Mutex
	items    *ring.Ring[*delayItem[T]] // guarded by mu
	capacity int

	// notEmpty is signaled once per append and pops wait on it while the
	// queue is empty. notFull is signaled once per removal and pushes wait
	// on it while the queue is full. reserved is broadcast whenever the front
	// item loses its reservation or leaves the queue.
	notEmpty cond.Cond
	notFull  cond.Cond
	reserved cond.Cond

	nextID atomic.Uint64

	pushed   atomic.Uint64
	popped   atomic.Uint64
	canceled atomic.Uint64
	released atomic.Uint64
}

const defaultName = "default"

// New creates a queue holding at most capacity items. Storage is allocated
// once; the queue never grows.
//
// Returns ErrInvalidCapacity if capacity < 1, or the first option error.
func New[T any](capacity int, opt ...Opt) (*Queue[T], error) {
	if capacity < 1 {
		return nil, ErrInvalidCapacity
	}
	o, err := applyOpts(opt)
	if err != nil {
		return nil, err
	}
	s := &store[T]{
		name:     o.name,
		clock:    o.clock,
		logger:   o.logger.With(slog.String("queue", o.name)),
		tracer:   o.tracer,
		items:    ring.New[*delayItem[T]](capacity),
		capacity: capacity,
	}
	s.nextID.Store(1)
	return &Queue[T]{s: s}, nil
}

// Clone returns another handle to the same queue. It is cheap: both handles
// observe the same items, counters and waiters.
func (q *Queue[T]) Clone() *Queue[T] {
	return &Queue[T]{s: q.s}
}

// Push appends v to the tail. v becomes eligible for retrieval once delay has
// elapsed, measured from the call to Push. A zero or negative delay makes it
// eligible at once.
//
// Push blocks while the queue is full. It only fails when ctx ends first, in
// which case it returns ctx.Err() and the queue is unchanged.
func (q *Queue[T]) Push(ctx context.Context, v T, delay time.Duration) error {
	s := q.s
	due := s.clock.Now().Add(delay)

	s.mu.Lock()
	for s.items.IsFull() {
		if err := s.notFull.Wait(ctx, &s.mu); err != nil {
			return err
		}
		s.mu.Lock()
	}
	if !s.items.PushBack(newDelayItem(v, due)) {
		s.mu.Unlock()
		panic("delayqueue: push into full queue after capacity check")
	}
	s.mu.Unlock()

	s.pushed.Add(1)
	s.notEmpty.Signal()
	return nil
}

// Pop returns a new retrieval operation bound to this queue. It never blocks;
// call Wait on the result to receive a value.
func (q *Queue[T]) Pop() *PopOperation[T] {
	return &PopOperation[T]{
		s:  q.s,
		id: q.s.nextID.Add(1) - 1,
	}
}

// Take blocks until the front value is due and returns it. On cancellation
// returns the zero value and ctx.Err().
func (q *Queue[T]) Take(ctx context.Context) (T, error) {
	return q.Pop().Wait(ctx)
}

// TryTake removes and returns the front value without blocking.
// ok is false when the queue is empty, the front value is not yet due, or a
// pending Wait has reserved it.
func (q *Queue[T]) TryTake() (v T, ok bool) {
	s := q.s
	s.mu.Lock()
	front, exists := s.items.Front()
	if !exists || front.res.owner != unclaimed || !front.ready(s.clock.Now()) {
		s.mu.Unlock()
		return v, false
	}
	item := s.removeFrontLocked()
	s.mu.Unlock()

	s.popped.Add(1)
	s.notFull.Signal()
	s.reserved.Broadcast()
	return item.value, true
}

// Len returns the number of items currently queued, due or not.
func (q *Queue[T]) Len() int {
	q.s.mu.Lock()
	defer q.s.mu.Unlock()
	return q.s.items.Len()
}

// Cap returns the fixed capacity.
func (q *Queue[T]) Cap() int { return q.s.capacity }

// IsEmpty reports whether the queue is empty.
func (q *Queue[T]) IsEmpty() bool { return q.Len() == 0 }

// Name returns the queue name set with WithName.
func (q *Queue[T]) Name() string { return q.s.name }

// Stats returns a snapshot of the queue counters.
func (q *Queue[T]) Stats() Stats {
	s := q.s
	s.mu.Lock()
	n, due := s.items.Len(), s.dueLocked(s.clock.Now())
	s.mu.Unlock()
	return Stats{
		Name:     s.name,
		Len:      n,
		Due:      due,
		Cap:      s.capacity,
		Pushed:   s.pushed.Load(),
		Popped:   s.popped.Load(),
		Canceled: s.canceled.Load(),
		Released: s.released.Load(),
	}
}

// removeFrontLocked pops the front item and detaches its reservation so any
// guard still observing it becomes a no-op. s.mu must be held.
func (s *store[T]) removeFrontLocked() *delayItem[T] {
	item, ok := s.items.PopFront()
	if !ok {
		panic("delayqueue: front item vanished after a validated check")
	}
	item.res.detached = true
	return item
}

// dueLocked counts queued items that are ready at now. s.mu must be held.
func (s *store[T]) dueLocked(now time.Time) int {
	n := 0
	for i := 0; i < s.items.Len(); i++ {
		if item, _ := s.items.At(i); item.ready(now) {
			n++
		}
	}
	return n
}
