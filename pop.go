package delayqueue

import (
	"context"
	"log/slog"
	"sync/atomic"

	"go.opentelemetry.io/otel/trace"
)

// PopState is the stage a PopOperation has reached.
type PopState int32

const (
	// StateInit: not waiting on anything. New and abandoned operations are
	// in this state.
	StateInit PopState = iota
	// StateWaitOccupancy: the queue was empty.
	StateWaitOccupancy
	// StateWaitReservation: another operation holds the front item.
	StateWaitReservation
	// StateWaitDue: this operation holds the front item and sleeps until it
	// is due.
	StateWaitDue
	// StateDone: a value was delivered.
	StateDone
)

// PopOperation is one retrieval from a Queue, created by Queue.Pop.
//
// Creating an operation has no effect on the queue. Wait drives it; a Wait
// abandoned through its context gives back anything the operation claimed,
// so the operation can be discarded or waited on again.
type PopOperation[T any] struct {
	s     *store[T]
	id    uint64
	state atomic.Int32
	busy  atomic.Bool
	guard *reservationGuard
	span  trace.Span
}

func (s PopState) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateWaitOccupancy:
		return "wait_occupancy"
	case StateWaitReservation:
		return "wait_reservation"
	case StateWaitDue:
		return "wait_due"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// ID returns the operation id. Ids are unique per queue and never zero.
func (p *PopOperation[T]) ID() uint64 { return p.id }

// State returns the current stage. It is safe to call while Wait runs in
// another goroutine.
func (p *PopOperation[T]) State() PopState { return PopState(p.state.Load()) }

// Wait blocks until the front value is due and removes it. Values are
// delivered strictly in push order.
//
// When ctx ends first, Wait returns the zero value and ctx.Err(); any
// reservation held by the operation is released and the operation returns to
// StateInit. Once a value has been delivered, Wait returns ErrDone.
//
// Wait must not be called concurrently on the same operation.
func (p *PopOperation[T]) Wait(ctx context.Context) (T, error) {
	var zero T
	if p.State() == StateDone {
		return zero, ErrDone
	}
	if !p.busy.CompareAndSwap(false, true) {
		panic("delayqueue: concurrent Wait on one pop operation")
	}
	defer p.busy.Store(false)

	ctx = p.startSpan(ctx)
	v, err := p.run(ctx)
	p.endSpan(err)
	return v, err
}

// run advances the state machine until a value is removed or a wait fails.
// Every wake goes back to the top and re-reads the front under the lock.
func (p *PopOperation[T]) run(ctx context.Context) (T, error) {
	s := p.s
	for {
		s.mu.Lock()
		front, ok := s.items.Front()
		switch {
		case !ok:
			p.enter(StateWaitOccupancy)
			if err := s.notEmpty.Wait(ctx, &s.mu); err != nil {
				return p.abandon(err)
			}

		case front.reservedByOther(p.id):
			p.enter(StateWaitReservation)
			if err := s.reserved.Wait(ctx, &s.mu); err != nil {
				return p.abandon(err)
			}

		case !front.ready(s.clock.Now()):
			// Owning the reservation already means we are back from our own
			// timer early; keep it and sleep again.
			var stale *reservationGuard
			if front.res.owner != p.id {
				stale, p.guard = p.guard, reserveLocked(&s.mu, &s.reserved, front.res, p.id)
				s.logger.Debug("reserved front item", slog.Uint64("pop_id", p.id), slog.Time("due", front.due))
			}
			due := front.due
			s.mu.Unlock()
			stale.release()

			p.enter(StateWaitDue)
			if err := sleepUntil(ctx, s.clock, due); err != nil {
				return p.abandon(err)
			}

		default:
			item := s.removeFrontLocked()
			s.mu.Unlock()

			s.popped.Add(1)
			s.notFull.Signal()
			if p.guard != nil {
				p.guard.release()
				p.guard = nil
			} else {
				s.reserved.Broadcast()
			}
			p.enter(StateDone)
			return item.value, nil
		}
	}
}

// abandon unwinds a failed wait. s.mu is not held: every wait returns with
// the lock released.
func (p *PopOperation[T]) abandon(err error) (T, error) {
	s := p.s
	from := p.State()

	if p.guard.release() {
		s.released.Add(1)
	}
	p.guard = nil

	// A push signal this operation consumed, in any earlier pass of the
	// state machine, leaves with it. Wake every pop parked on an empty queue
	// so they re-check.
	s.mu.Lock()
	nonEmpty := !s.items.IsEmpty()
	s.mu.Unlock()
	if nonEmpty {
		s.notEmpty.Broadcast()
	}

	s.canceled.Add(1)
	p.enter(StateInit)
	s.logger.Debug("pop abandoned", slog.Uint64("pop_id", p.id), slog.String("state", from.String()), slog.Any("error", err))

	var zero T
	return zero, err
}

func (p *PopOperation[T]) enter(state PopState) {
	if PopState(p.state.Swap(int32(state))) == state {
		return
	}
	if p.span != nil {
		p.span.AddEvent(state.String())
	}
}
