package delayqueue

import (
	"sync"
	"weak"

	// Packages
	"github.com/xyhelper/delayqueue/internal/cond"
)

// reservationGuard holds a pop's claim on the front item while the pop sleeps
// until the item's due time. It observes the reservation through a weak
// pointer so it never keeps a removed item alive.
//
// release must run exactly once on every path out of the due-time wait: after
// a successful removal it only wakes the reservation waiters, after an
// abandoned wait it also hands the item back.
type reservationGuard struct {
	mu       *sync.Mutex
	reserved *cond.Cond
	cell     weak.Pointer[reservation]
	id       uint64
	done     bool
}

// reserveLocked claims res for id and returns the guard that gives it back.
// The caller holds mu.
func reserveLocked(mu *sync.Mutex, reserved *cond.Cond, res *reservation, id uint64) *reservationGuard {
	res.owner = id
	return &reservationGuard{
		mu:       mu,
		reserved: reserved,
		cell:     weak.Make(res),
		id:       id,
	}
}

// release clears the reservation if the item is still queued and still ours,
// then wakes every reservation waiter whether or not anything was cleared.
// Reports whether the reservation was cleared. The caller must not hold mu.
func (g *reservationGuard) release() bool {
	if g == nil || g.done {
		return false
	}
	g.done = true

	cleared := false
	g.mu.Lock()
	if res := g.cell.Value(); res != nil && !res.detached && res.owner == g.id {
		res.owner = unclaimed
		cleared = true
	}
	g.mu.Unlock()

	// Every waiter parked behind this reservation re-checks the front, on
	// success as well as on abandonment.
	g.reserved.Broadcast()
	return cleared
}
