package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Runner drives the dispatch and reconcile loops on tickers.
type Runner struct {
	Dispatcher        *Dispatcher
	Reconciler        *Reconciler
	TickInterval      time.Duration
	ReconcileInterval time.Duration
	Now               func() time.Time
}

func (r *Runner) now() time.Time {
	if r.Now != nil {
		return r.Now()
	}
	return time.Now().UTC()
}

// Run blocks until ctx is canceled. A nil Dispatcher or Reconciler disables
// its loop.
func (r *Runner) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if r.Dispatcher != nil {
		g.Go(func() error {
			loop(gctx, "dispatch", r.TickInterval, func(ctx context.Context) error {
				if _, err := r.Dispatcher.Requeue(ctx); err != nil {
					ticks.WithLabelValues("requeue", "error").Inc()
					log.Warn().Err(err).Msg("requeue failed")
				}
				_, err := r.Dispatcher.Tick(ctx, r.now())
				return err
			})
			return nil
		})
	}
	if r.Reconciler != nil {
		g.Go(func() error {
			loop(gctx, "reconcile", r.ReconcileInterval, func(ctx context.Context) error {
				_, err := r.Reconciler.Tick(ctx)
				return err
			})
			return nil
		})
	}

	log.Info().
		Dur("tick", r.TickInterval).
		Dur("reconcile_interval", r.ReconcileInterval).
		Msg("scheduler started")
	err := g.Wait()
	log.Info().Msg("scheduler stopped")
	return err
}

// loop runs fn every interval until ctx is done. Panics in fn are recovered
// and the loop continues on the next tick.
func loop(ctx context.Context, name string, interval time.Duration, fn func(context.Context) error) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runTick(ctx, name, fn)
		}
	}
}

func runTick(ctx context.Context, name string, fn func(context.Context) error) {
	defer func() {
		if rec := recover(); rec != nil {
			ticks.WithLabelValues(name, "panic").Inc()
			log.Error().Str("loop", name).Str("panic", fmt.Sprint(rec)).Msg("scheduler tick panicked, continuing")
		}
	}()
	if err := fn(ctx); err != nil {
		ticks.WithLabelValues(name, "error").Inc()
		log.Error().Err(err).Str("loop", name).Msg("scheduler tick failed")
		return
	}
	ticks.WithLabelValues(name, "ok").Inc()
}
