package scheduler

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

var (
	// ticks counts loop iterations by loop (dispatch, requeue, reconcile) and
	// result (ok, error, panic).
	ticks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_ticks_total",
			Help: "Scheduler loop iterations by loop and result.",
		},
		[]string{"loop", "result"},
	)

	// dispatches counts per-post dispatch results.
	dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_dispatches_total",
			Help: "Scheduled post dispatches by result.",
		},
		[]string{"result"},
	)

	// redisErrors counts failed Redis commands, excluding redis.Nil.
	redisErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scheduler_redis_errors_total",
			Help: "Redis command errors by command.",
		},
		[]string{"cmd"},
	)
)

func init() {
	prometheus.MustRegister(ticks, dispatches, redisErrors)
}

// metricsHook reports Redis command failures.
type metricsHook struct{}

func (metricsHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (metricsHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		if err != nil && !errors.Is(err, redis.Nil) {
			redisErrors.WithLabelValues(cmd.Name()).Inc()
		}
		return err
	}
}

func (metricsHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		if err != nil && !errors.Is(err, redis.Nil) {
			redisErrors.WithLabelValues("pipeline").Inc()
		}
		return err
	}
}
