package delayqueue

import (
	"context"

	// Packages
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	popSpanName = "delayqueue.pop"
)

// startSpan opens the span for one Wait call when the queue has a tracer.
func (p *PopOperation[T]) startSpan(ctx context.Context) context.Context {
	if p.s.tracer == nil {
		return ctx
	}
	ctx, p.span = p.s.tracer.Start(ctx, popSpanName,
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("delayqueue.queue", p.s.name),
			attribute.Int64("delayqueue.pop_id", int64(p.id)),
		),
	)
	return ctx
}

func (p *PopOperation[T]) endSpan(err error) {
	if p.span == nil {
		return
	}
	if err != nil {
		p.span.RecordError(err)
		p.span.SetStatus(codes.Error, err.Error())
	}
	p.span.End()
	p.span = nil
}
