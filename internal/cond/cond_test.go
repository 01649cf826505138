package cond

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// waitFor polls fn until it is true or the deadline passes.
func waitFor(t *testing.T, fn func() bool) {
	t.Helper()
	require.Eventually(t, fn, time.Second, time.Millisecond)
}

func TestWaitReleasesLockAndWakes(t *testing.T) {
	var (
		c  Cond
		mu sync.Mutex
	)
	done := make(chan error, 1)
	mu.Lock()
	go func() {
		done <- c.Wait(context.Background(), &mu)
	}()
	waitFor(t, func() bool { return c.Waiters() == 1 })

	// Wait must have released mu.
	require.True(t, mu.TryLock(), "lock should be free while waiting")
	mu.Unlock()

	c.Signal()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for waiter to wake")
	}
	assert.Equal(t, 0, c.Waiters())
}

func TestWaitContextCancel(t *testing.T) {
	var (
		c  Cond
		mu sync.Mutex
	)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	mu.Lock()
	err := c.Wait(ctx, &mu)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 0, c.Waiters(), "cancelled waiter must deregister")
}

func TestSignalWakesOne(t *testing.T) {
	var (
		c  Cond
		mu sync.Mutex
	)
	const n = 3
	woke := make(chan struct{}, n)
	for i := 0; i < n; i++ {
		mu.Lock()
		go func() {
			if c.Wait(context.Background(), &mu) == nil {
				woke <- struct{}{}
			}
		}()
		waitFor(t, func() bool { return c.Waiters() == i+1 })
	}

	c.Signal()
	<-woke
	select {
	case <-woke:
		t.Fatal("signal woke more than one waiter")
	case <-time.After(20 * time.Millisecond):
	}
	assert.Equal(t, n-1, c.Waiters())

	c.Broadcast()
	for i := 0; i < n-1; i++ {
		<-woke
	}
	assert.Equal(t, 0, c.Waiters())
}

func TestSignalWithoutWaitersIsDropped(t *testing.T) {
	var (
		c  Cond
		mu sync.Mutex
	)
	c.Signal()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	mu.Lock()
	assert.Error(t, c.Wait(ctx, &mu), "a signal with no waiters must not be remembered")
}

func TestCancelledSignaledWaiterForwards(t *testing.T) {
	var (
		c  Cond
		mu sync.Mutex
	)

	// First waiter: registered, then signaled and cancelled before it can
	// observe the signal. Simulate the race by marking it signaled by hand.
	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	mu.Lock()
	go func() { first <- c.Wait(ctx, &mu) }()
	waitFor(t, func() bool { return c.Waiters() == 1 })

	second := make(chan error, 1)
	mu.Lock()
	go func() { second <- c.Wait(context.Background(), &mu) }()
	waitFor(t, func() bool { return c.Waiters() == 2 })

	// Take the first waiter off the list without closing its channel, then
	// cancel it; it must hand the signal to the second waiter.
	c.mu.Lock()
	w := c.waiters.Remove(c.waiters.Front()).(*waiter)
	w.signaled = true
	c.mu.Unlock()
	cancel()

	assert.ErrorIs(t, <-first, context.Canceled)
	select {
	case err := <-second:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("forwarded signal never reached the second waiter")
	}
}
