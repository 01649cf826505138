package delayqueue

import (
	"context"
	"errors"
)

var (
	// ErrInvalidCapacity is returned by New when capacity is not positive.
	ErrInvalidCapacity = errors.New("delayqueue: capacity must be >= 1")

	// ErrInvalidName is returned by WithName for an empty name.
	ErrInvalidName = errors.New("delayqueue: name must not be empty")

	// ErrInvalidClock is returned by WithClock for a nil clock.
	ErrInvalidClock = errors.New("delayqueue: clock must not be nil")

	// ErrDone is returned by PopOperation.Wait once the operation has
	// already delivered its value.
	ErrDone = errors.New("delayqueue: pop already completed")
)

// ErrCanceled is returned by Push and Wait when the context is canceled.
var ErrCanceled = context.Canceled

// ErrDeadlineExceeded is returned by Push and Wait when the context deadline expires.
var ErrDeadlineExceeded = context.DeadlineExceeded

// IsContextError reports whether err equals context.Canceled or context.DeadlineExceeded.
func IsContextError(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
