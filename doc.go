// Package delayqueue provides a bounded, generic FIFO queue whose items become
// available only after a per-item delay.
//
// Delay never reorders delivery: values leave strictly in push order, and the
// delay of the front value only decides when it may leave. The queue has a
// fixed capacity; Push blocks while it is full.
//
// Retrieval is split in two. Queue.Pop creates a PopOperation without
// touching the queue, and PopOperation.Wait drives it:
//
//	q, _ := delayqueue.New[string](16)
//	_ = q.Push(ctx, "hello", time.Second)
//	v, err := q.Pop().Wait(ctx) // about one second later
//
// Waits are cancel-safe. When several operations wait for the same front
// value, one of them reserves it and sleeps until it is due while the others
// wait for the reservation to go away. Cancelling the context of the
// reserving Wait hands the value back to the others, so an abandoned Wait
// never loses, duplicates or strands a value.
//
// Handles are cheap to copy with Clone and all methods are safe for
// concurrent use. Options configure the clock (fake clocks in tests), a
// slog logger, and an OpenTelemetry tracer; the metrics subpackage exports
// Stats to Prometheus.
package delayqueue
