package delayqueue

import (
	"context"
	"time"

	// Packages
	"k8s.io/utils/clock"
)

// sleepUntil blocks until clk reaches due or ctx is done. It returns at once
// when due has already passed.
func sleepUntil(ctx context.Context, clk clock.Clock, due time.Time) error {
	d := due.Sub(clk.Now())
	if d <= 0 {
		return nil
	}
	t := clk.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
