package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/xyhelper/delayqueue"
	"github.com/xyhelper/delayqueue/metrics"
)

type RunCmd struct {
	Capacity    int           `name:"capacity" help:"Queue capacity" default:"64"`
	Producers   int           `name:"producers" help:"Number of producer goroutines" default:"4"`
	Consumers   int           `name:"consumers" help:"Number of consumer goroutines" default:"8"`
	Steady      int           `name:"steady" help:"Consumers that never abandon a pop and alone drain the queue once producers finish" default:"2"`
	Items       int           `name:"items" help:"Total items to push" default:"10000"`
	MaxDelay    time.Duration `name:"max-delay" help:"Upper bound of the random per-item delay" default:"5ms"`
	Abandon     float64       `name:"abandon" help:"Fraction of pops waited on with a short random timeout" default:"0.3"`
	Timeout     time.Duration `name:"timeout" help:"Give up if the queue is not drained in time" default:"2m"`
	MetricsAddr string        `name:"metrics-addr" env:"DQSOAK_METRICS_ADDR" help:"Serve Prometheus metrics on this address while running"`
}

type job struct {
	seq int
	due time.Time
}

type tally struct {
	sync.Mutex
	seen  []int
	early int
}

var (
	ErrInvalidArgs = errors.New("capacity, producers, consumers, steady and items must be >= 1, with steady <= consumers")
	ErrViolation   = errors.New("delivery check failed")
)

func (cmd *RunCmd) Run(g *Globals) error {
	if cmd.Capacity < 1 || cmd.Producers < 1 || cmd.Consumers < 1 || cmd.Items < 1 || cmd.Steady < 1 || cmd.Steady > cmd.Consumers {
		return ErrInvalidArgs
	}
	logger := g.Logger()

	q, err := delayqueue.New[job](cmd.Capacity,
		delayqueue.WithName("soak"),
		delayqueue.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	if cmd.MetricsAddr != "" {
		stop, err := serveMetrics(cmd.MetricsAddr, q, logger)
		if err != nil {
			return err
		}
		defer stop()
	}

	ctx, cancel := context.WithTimeout(g.ctx, cmd.Timeout)
	defer cancel()

	start := time.Now()
	t := cmd.soak(ctx, q)
	elapsed := time.Since(start)

	// Check results
	st := q.Stats()
	missing, dup := 0, 0
	for _, n := range t.seen {
		switch {
		case n == 0:
			missing++
		case n > 1:
			dup++
		}
	}
	logger.Info("soak finished",
		slog.Duration("elapsed", elapsed),
		slog.Uint64("pushed", st.Pushed),
		slog.Uint64("popped", st.Popped),
		slog.Uint64("canceled", st.Canceled),
		slog.Uint64("released", st.Released),
		slog.Int("missing", missing),
		slog.Int("duplicated", dup),
		slog.Int("early", t.early),
	)
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v with %d items undelivered", ErrViolation, ctx.Err(), missing)
	}
	if missing > 0 || dup > 0 || t.early > 0 {
		return fmt.Errorf("%w: missing=%d duplicated=%d early=%d", ErrViolation, missing, dup, t.early)
	}
	return nil
}

func (cmd *RunCmd) soak(ctx context.Context, q *delayqueue.Queue[job]) *tally {
	t := &tally{seen: make([]int, cmd.Items)}
	var next, delivered atomic.Int64

	done, stop := context.WithCancel(ctx)
	defer stop()

	var wg, pwg sync.WaitGroup
	produced := make(chan struct{})
	for i := 0; i < cmd.Producers; i++ {
		pwg.Add(1)
		go func(q *delayqueue.Queue[job], rnd *rand.Rand) {
			defer pwg.Done()
			for {
				seq := int(next.Add(1) - 1)
				if seq >= cmd.Items {
					return
				}
				delay := time.Duration(rnd.Int63n(int64(cmd.MaxDelay) + 1))
				if err := q.Push(ctx, job{seq: seq, due: time.Now().Add(delay)}, delay); err != nil {
					return
				}
			}
		}(q.Clone(), rand.New(rand.NewSource(int64(i))))
	}
	go func() {
		pwg.Wait()
		close(produced)
	}()

	// Steady consumers wait with no deadline of their own. The others abandon
	// pops at random and leave once every item is pushed, so the tail of the
	// run is drained by steady consumers alone.
	for i := 0; i < cmd.Consumers; i++ {
		wg.Add(1)
		go func(q *delayqueue.Queue[job], rnd *rand.Rand, steady bool) {
			defer wg.Done()
			for done.Err() == nil {
				if !steady {
					select {
					case <-produced:
						return
					default:
					}
				}
				wctx, wcancel := done, context.CancelFunc(func() {})
				if !steady && rnd.Float64() < cmd.Abandon {
					wctx, wcancel = context.WithTimeout(done, time.Duration(rnd.Int63n(int64(cmd.MaxDelay)+1)))
				}
				j, err := q.Pop().Wait(wctx)
				now := time.Now()
				wcancel()
				if err != nil {
					continue
				}

				t.Lock()
				t.seen[j.seq]++
				if now.Before(j.due) {
					t.early++
				}
				t.Unlock()

				if delivered.Add(1) == int64(cmd.Items) {
					stop()
				}
			}
		}(q.Clone(), rand.New(rand.NewSource(int64(1000+i))), i < cmd.Steady)
	}

	wg.Wait()
	pwg.Wait()
	return t
}

func serveMetrics(addr string, q *delayqueue.Queue[job], logger *slog.Logger) (func(), error) {
	registry := prometheus.NewRegistry()
	if err := registry.Register(metrics.NewCollector(q)); err != nil {
		return nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", slog.Any("error", err))
		}
	}()
	logger.Info("serving metrics", slog.String("addr", addr))
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
