package delayqueue

import "time"

// unclaimed is the reservation owner of an item no pop is waiting on.
// Pop ids start at 1, so it is never issued to an operation.
const unclaimed uint64 = 0

// delayItem is one queued value. The store owns it while it is queued.
type delayItem[T any] struct {
	value T
	due   time.Time
	res   *reservation
}

// reservation records which pop, if any, is parked on the item's due time.
// Guards observe it through a weak pointer; see reservationGuard.
//
// Fields are guarded by the store mutex.
type reservation struct {
	owner    uint64
	detached bool // set once the item has left the queue
}

func newDelayItem[T any](value T, due time.Time) *delayItem[T] {
	return &delayItem[T]{
		value: value,
		due:   due,
		res:   &reservation{owner: unclaimed},
	}
}

// ready reports whether the item may leave the queue at now.
func (i *delayItem[T]) ready(now time.Time) bool {
	return !now.Before(i.due)
}

// reservedByOther reports whether a pop other than id holds the reservation.
func (i *delayItem[T]) reservedByOther(id uint64) bool {
	return i.res.owner != unclaimed && i.res.owner != id
}
