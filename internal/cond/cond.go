// Package cond provides a condition variable whose waits can be abandoned
// through a context.
//
// sync.Cond cannot be interrupted, so a goroutine parked in Wait stays parked
// until someone signals it. Cond instead parks each waiter on its own channel:
// Wait registers the waiter while the caller still holds its lock, releases
// that lock, and then blocks until Signal picks the waiter or the context is
// done. Registering before unlocking means a signal issued after the caller's
// predicate check can never be missed.
//
// Unlike sync.Cond.Wait, Cond.Wait does not reacquire the lock on return.
// Callers re-lock and re-check their predicate in a loop.
package cond

import (
	"container/list"
	"context"
	"sync"
)

// Cond is a context-aware condition variable. The zero value is ready to use.
// A Cond must not be copied after first use.
type Cond struct {
	mu      sync.Mutex
	waiters list.List // of *waiter
}

type waiter struct {
	ch       chan struct{}
	el       *list.Element
	signaled bool
}

// Wait registers the caller as a waiter, unlocks l, and blocks until the
// waiter is signaled or ctx is done. l must be held on entry; it is not held
// on return.
//
// Returns nil when signaled and ctx.Err() otherwise. A waiter that is picked by
// Signal at the same moment its context ends passes the signal on to the next
// waiter, so a wakeup is never swallowed by an abandoned wait.
func (c *Cond) Wait(ctx context.Context, l sync.Locker) error {
	w := &waiter{ch: make(chan struct{})}
	c.mu.Lock()
	w.el = c.waiters.PushBack(w)
	c.mu.Unlock()
	l.Unlock()

	select {
	case <-w.ch:
		return nil
	case <-ctx.Done():
	}

	c.mu.Lock()
	if w.signaled {
		c.signalLocked()
	} else {
		c.waiters.Remove(w.el)
	}
	c.mu.Unlock()
	return ctx.Err()
}

// Signal wakes one waiter, if any. There is no ordering guarantee beyond
// what the current registration order happens to give.
func (c *Cond) Signal() {
	c.mu.Lock()
	c.signalLocked()
	c.mu.Unlock()
}

// Broadcast wakes every registered waiter.
func (c *Cond) Broadcast() {
	c.mu.Lock()
	for c.waiters.Len() > 0 {
		c.signalLocked()
	}
	c.mu.Unlock()
}

// Waiters returns the number of goroutines currently registered.
func (c *Cond) Waiters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waiters.Len()
}

func (c *Cond) signalLocked() {
	front := c.waiters.Front()
	if front == nil {
		return
	}
	w := c.waiters.Remove(front).(*waiter)
	w.signaled = true
	close(w.ch)
}
