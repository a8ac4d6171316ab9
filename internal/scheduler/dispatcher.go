package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/linkedin-publisher/internal/domain"
	"github.com/tbourn/linkedin-publisher/internal/repo"
	"github.com/tbourn/linkedin-publisher/internal/services"
)

// Publisher runs the publish pipeline for one scheduled post.
type Publisher interface {
	Publish(ctx context.Context, scheduledPostID string) (*services.PublishOutcome, error)
}

// TickStats summarizes one dispatch tick.
type TickStats struct {
	Due     int
	Posted  int
	Failed  int
	Skipped int
	Errored int
}

// Dispatcher publishes due scheduled posts with bounded concurrency.
type Dispatcher struct {
	DB          *gorm.DB
	Publisher   Publisher
	Locker      Locker
	BatchSize   int
	Concurrency int
	LockTTL     time.Duration
}

// Tick dispatches every post due at now, up to BatchSize. Per-post failures
// are logged and counted; only listing errors are returned.
func (d *Dispatcher) Tick(ctx context.Context, now time.Time) (TickStats, error) {
	ctx, span := otel.Tracer("scheduler/Dispatcher").Start(ctx, "Tick")
	defer span.End()

	batch := d.BatchSize
	if batch <= 0 {
		batch = 50
	}
	due, err := repo.ListDueScheduledPosts(ctx, d.DB, now, batch)
	if err != nil {
		return TickStats{}, err
	}
	stats := TickStats{Due: len(due)}
	span.SetAttributes(attribute.Int("dispatch.due", len(due)))
	if len(due) == 0 {
		return stats, nil
	}

	var posted, failed, skipped, errored atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	limit := d.Concurrency
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for _, sp := range due {
		id := sp.ID
		g.Go(func() error {
			switch d.dispatch(gctx, id) {
			case "posted":
				posted.Add(1)
			case "failed":
				failed.Add(1)
			case "skipped":
				skipped.Add(1)
			default:
				errored.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.Posted = int(posted.Load())
	stats.Failed = int(failed.Load())
	stats.Skipped = int(skipped.Load())
	stats.Errored = int(errored.Load())
	log.Info().
		Int("due", stats.Due).
		Int("posted", stats.Posted).
		Int("failed", stats.Failed).
		Int("skipped", stats.Skipped).
		Int("errored", stats.Errored).
		Msg("dispatch tick finished")
	return stats, nil
}

// dispatch publishes one post under its lock and returns the result label.
func (d *Dispatcher) dispatch(ctx context.Context, id string) (result string) {
	defer func() { dispatches.WithLabelValues(result).Inc() }()

	logger := log.With().Str("scheduled_post_id", id).Logger()
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error().Str("panic", fmt.Sprint(rec)).Msg("dispatch panicked")
			result = "error"
		}
	}()

	ttl := d.LockTTL
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	if d.Locker != nil {
		unlock, err := d.Locker.Lock(ctx, "publish:"+id, ttl)
		if errors.Is(err, ErrLockHeld) {
			return "skipped"
		}
		if err != nil {
			logger.Error().Err(err).Msg("dispatch lock failed")
			return "error"
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				logger.Warn().Err(err).Msg("dispatch unlock failed")
			}
		}()
	}

	out, err := d.Publisher.Publish(ctx, id)
	switch {
	case errors.Is(err, services.ErrAlreadyClaimed), errors.Is(err, services.ErrNotDispatchable):
		return "skipped"
	case errors.Is(err, services.ErrNotConnected):
		logger.Warn().Msg("dispatch deferred: account not connected")
		return "skipped"
	case err != nil:
		logger.Error().Err(err).Msg("dispatch failed")
		return "error"
	case out == nil:
		return "error"
	case out.Status == domain.StatusPosted:
		return "posted"
	case out.Status == domain.StatusFailed:
		return "failed"
	default:
		return "skipped"
	}
}

// Requeue moves failed posts with retry budget left back to queued so the
// next tick dispatches them again. It returns how many were requeued.
func (d *Dispatcher) Requeue(ctx context.Context) (int, error) {
	batch := d.BatchSize
	if batch <= 0 {
		batch = 50
	}
	failed, err := repo.ListRetryableFailed(ctx, d.DB, batch)
	if err != nil {
		return 0, err
	}
	n := 0
	for _, sp := range failed {
		ok, err := repo.RequeueScheduledPost(ctx, d.DB, sp.ID)
		if err != nil {
			log.Warn().Err(err).Str("scheduled_post_id", sp.ID).Msg("requeue failed")
			continue
		}
		if ok {
			n++
			log.Info().Str("scheduled_post_id", sp.ID).Int("retry", sp.Retries+1).Int("max_retries", sp.MaxRetries).
				Msg("scheduled post requeued")
		}
	}
	return n, nil
}
