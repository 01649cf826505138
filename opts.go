package delayqueue

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"
	"k8s.io/utils/clock"
)

// Opt is a functional option for New.
type Opt func(*opts) error

type opts struct {
	name   string
	clock  clock.Clock
	logger *slog.Logger
	tracer trace.Tracer
}

// WithName sets the name used to label logs, spans and metrics.
// Returns ErrInvalidName if name is empty.
func WithName(name string) Opt {
	return func(o *opts) error {
		if name == "" {
			return ErrInvalidName
		}
		o.name = name
		return nil
	}
}

// WithClock sets the clock used for due times and timers. Tests pass a fake
// clock here. Returns ErrInvalidClock if c is nil.
func WithClock(c clock.Clock) Opt {
	return func(o *opts) error {
		if c == nil {
			return ErrInvalidClock
		}
		o.clock = c
		return nil
	}
}

// WithLogger sets the structured logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Opt {
	return func(o *opts) error {
		if l == nil {
			l = slog.New(slog.DiscardHandler)
		}
		o.logger = l
		return nil
	}
}

// WithTracer makes every pop wait run inside an OpenTelemetry span.
func WithTracer(t trace.Tracer) Opt {
	return func(o *opts) error {
		o.tracer = t
		return nil
	}
}

func applyOpts(opt []Opt) (opts, error) {
	o := opts{
		name:   defaultName,
		clock:  clock.RealClock{},
		logger: slog.New(slog.DiscardHandler),
	}
	for _, fn := range opt {
		if err := fn(&o); err != nil {
			return opts{}, err
		}
	}
	return o, nil
}
