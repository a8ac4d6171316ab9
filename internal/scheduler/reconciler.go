package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"gorm.io/gorm"

	"github.com/tbourn/linkedin-publisher/internal/repo"
	"github.com/tbourn/linkedin-publisher/internal/services"
)

// Syncer refreshes engagement for one organization.
type Syncer interface {
	Sync(ctx context.Context, orgID string) (*services.SyncResult, error)
}

// Reconciler runs engagement sync for every organization with published
// records and purges expired idempotency records.
type Reconciler struct {
	DB     *gorm.DB
	Syncer Syncer
	Now    func() time.Time
}

// ReconcileStats summarizes one reconcile tick.
type ReconcileStats struct {
	Orgs   int
	Failed int
	Synced int
	Total  int
	Purged int64
}

// Tick syncs each organization independently; one organization failing never
// stops the rest.
func (r *Reconciler) Tick(ctx context.Context) (ReconcileStats, error) {
	ctx, span := otel.Tracer("scheduler/Reconciler").Start(ctx, "Tick")
	defer span.End()

	var stats ReconcileStats
	orgs, err := repo.ListOrgsWithPublishedPosts(ctx, r.DB)
	if err != nil {
		return stats, err
	}
	stats.Orgs = len(orgs)

	for _, org := range orgs {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		res, err := r.Syncer.Sync(ctx, org)
		if err != nil {
			stats.Failed++
			log.Warn().Err(err).Str("org_id", org).Msg("engagement sync failed")
			continue
		}
		stats.Synced += res.SyncedCount
		stats.Total += res.Total
	}

	now := time.Now().UTC()
	if r.Now != nil {
		now = r.Now()
	}
	purged, err := repo.PurgeExpiredIdempotency(ctx, r.DB, now)
	if err != nil {
		log.Warn().Err(err).Msg("idempotency purge failed")
	}
	stats.Purged = purged

	span.SetAttributes(
		attribute.Int("reconcile.orgs", stats.Orgs),
		attribute.Int("reconcile.synced", stats.Synced),
	)
	log.Info().Int("orgs", stats.Orgs).Int("failed", stats.Failed).Int("synced", stats.Synced).
		Int("total", stats.Total).Int64("purged_idempotency", stats.Purged).Msg("reconcile tick finished")
	return stats, nil
}
