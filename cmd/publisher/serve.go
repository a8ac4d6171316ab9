package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/tbourn/linkedin-publisher/internal/config"
	httpapi "github.com/tbourn/linkedin-publisher/internal/http"
	"github.com/tbourn/linkedin-publisher/internal/linkedin"
	"github.com/tbourn/linkedin-publisher/internal/observability"
	"github.com/tbourn/linkedin-publisher/internal/scheduler"
	"github.com/tbourn/linkedin-publisher/internal/services"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var noScheduler bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API and the background scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
			if err != nil {
				return err
			}
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := shutdownOTel(sctx); err != nil {
					log.Warn().Err(err).Msg("otel shutdown")
				}
			}()

			db, closeDB, err := openDB(cfg)
			if err != nil {
				return err
			}
			defer closeDB()
			client := linkedin.New(cfg.LinkedIn)

			// The runner is built before anything listens so a failure here
			// leaves no goroutine behind.
			var runner *scheduler.Runner
			if cfg.Scheduler.Enabled && !noScheduler {
				r, closeLocker, err := newRunner(ctx, db, client, cfg)
				if err != nil {
					return err
				}
				defer closeLocker()
				runner = r
			}

			g, gctx := errgroup.WithContext(ctx)
			srv := newServer(db, client, cfg)
			g.Go(func() error {
				log.Info().Str("addr", srv.Addr).Str("base_path", cfg.APIBasePath).Msg("http server listening")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(sctx)
			})
			if runner != nil {
				g.Go(func() error { return runner.Run(gctx) })
			}

			err = g.Wait()
			log.Info().Msg("shutdown complete")
			return err
		},
	}
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "serve the API without the dispatch and reconcile loops")
	return cmd
}

func newServer(db *gorm.DB, client linkedin.Client, cfg config.Config) *http.Server {
	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, db, client, cfg)
	return &http.Server{
		Addr:              net.JoinHostPort("", cfg.Port),
		Handler:           r,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}

// newRunner wires the dispatch and reconcile loops. The returned close func
// releases the Redis connection when one was opened.
func newRunner(ctx context.Context, db *gorm.DB, client linkedin.Client, cfg config.Config) (*scheduler.Runner, func(), error) {
	sc := cfg.Scheduler
	var (
		locker  scheduler.Locker = scheduler.NewLocalLocker()
		closeFn                  = func() {}
	)
	if sc.RedisURL != "" {
		rdb, err := scheduler.NewRedisClient(ctx, sc.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		locker = &scheduler.RedisLocker{Client: rdb, Prefix: "linkedin-publisher:lock:"}
		closeFn = func() { _ = rdb.Close() }
	}

	return &scheduler.Runner{
		Dispatcher: &scheduler.Dispatcher{
			DB:          db,
			Publisher:   services.NewPublishService(db, client, cfg),
			Locker:      locker,
			BatchSize:   sc.BatchSize,
			Concurrency: sc.Concurrency,
			LockTTL:     sc.LockTTL,
		},
		Reconciler: &scheduler.Reconciler{
			DB:     db,
			Syncer: services.NewReconcileService(db, client),
		},
		TickInterval:      sc.TickInterval,
		ReconcileInterval: sc.ReconcileInterval,
	}, closeFn, nil
}
