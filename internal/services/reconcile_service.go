// Package services – ReconcileService
//
// ReconcileService refreshes engagement counters for everything an
// organization has published. One platform post may be mirrored by up to
// three local rows (Post, posted ScheduledPost, posted AIGeneratedPost);
// each sibling is written independently. Counters are fetched once per
// platform post id with two separate calls (reactions, comments). An
// unreachable counter degrades to zero and never aborts the batch.
package services

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/linkedin-publisher/internal/linkedin"
	"github.com/tbourn/linkedin-publisher/internal/repo"
)

// SyncResult summarizes one reconciliation pass.
type SyncResult struct {
	SyncedCount int `json:"synced_count"`
	Total       int `json:"total"`
}

// ReconcileService mirrors platform engagement into local records.
type ReconcileService struct {
	DB          *gorm.DB
	Client      linkedin.Client
	Credentials CredentialProvider
	Now         func() time.Time
}

// NewReconcileService returns a ReconcileService reading credentials from db.
func NewReconcileService(db *gorm.DB, client linkedin.Client) *ReconcileService {
	return &ReconcileService{DB: db, Client: client, Credentials: &StoreCredentialProvider{DB: db}}
}

type engagement struct {
	reactions int
	comments  int
}

// record is one local row mirroring a platform post.
type record struct {
	kind  string
	id    string
	urn   string
	write func(ctx context.Context, db *gorm.DB, id string, reactions, comments int, at time.Time) error
}

// Sync refreshes engagement for every record orgID has published. It returns
// ErrNotConnected when no valid credential exists for orgID.
func (s *ReconcileService) Sync(ctx context.Context, orgID string) (*SyncResult, error) {
	tr := otel.Tracer("services/ReconcileService")
	ctx, span := tr.Start(ctx, "Sync",
		trace.WithAttributes(attribute.String("org.id", orgID)),
	)
	defer span.End()

	creds, err := s.Credentials.Credentials(ctx, orgID)
	if err != nil {
		return nil, err
	}

	records, err := s.collect(ctx, orgID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	if s.Now != nil {
		now = s.Now()
	}

	cache := make(map[string]engagement)
	res := &SyncResult{Total: len(records)}
	for _, r := range records {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		e, ok := cache[r.urn]
		if !ok {
			e = s.fetch(ctx, creds.AccessToken, r.urn)
			cache[r.urn] = e
		}
		if err := r.write(ctx, s.DB, r.id, e.reactions, e.comments, now); err != nil {
			reconcileRecords.WithLabelValues(r.kind, "error").Inc()
			log.Warn().Err(err).Str("org_id", orgID).Str("record", r.kind).Str("id", r.id).
				Msg("engagement write failed")
			continue
		}
		reconcileRecords.WithLabelValues(r.kind, "ok").Inc()
		res.SyncedCount++
	}

	span.SetAttributes(
		attribute.Int("sync.total", res.Total),
		attribute.Int("sync.synced", res.SyncedCount),
		attribute.Int("sync.urns", len(cache)),
	)
	log.Info().Str("org_id", orgID).Int("synced", res.SyncedCount).Int("total", res.Total).
		Msg("engagement sync finished")
	return res, nil
}

// collect lists the sibling records of orgID across the three tables.
func (s *ReconcileService) collect(ctx context.Context, orgID string) ([]record, error) {
	var out []record

	posts, err := repo.ListSyncablePosts(ctx, s.DB, orgID)
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		out = append(out, record{kind: "post", id: p.ID, urn: p.PlatformPostID, write: repo.UpdatePostEngagement})
	}

	scheduled, err := repo.ListPostedScheduledPosts(ctx, s.DB, orgID)
	if err != nil {
		return nil, err
	}
	for _, sp := range scheduled {
		out = append(out, record{kind: "scheduled_post", id: sp.ID, urn: sp.PlatformPostID, write: repo.UpdateScheduledPostEngagement})
	}

	generated, err := repo.ListPostedGeneratedPosts(ctx, s.DB, orgID)
	if err != nil {
		return nil, err
	}
	for _, g := range generated {
		out = append(out, record{kind: "ai_generated_post", id: g.ID, urn: g.PlatformPostID, write: repo.UpdateGeneratedPostEngagement})
	}
	return out, nil
}

// fetch reads both counters for urn. Either failing reads as zero.
func (s *ReconcileService) fetch(ctx context.Context, token, urn string) engagement {
	var e engagement
	if strings.HasPrefix(urn, unidentifiedPrefix) {
		return e
	}
	n, err := s.Client.ReactionCount(ctx, token, urn)
	if err != nil {
		log.Warn().Err(err).Str("platform_post_id", urn).Msg("reaction count unavailable, using 0")
	} else {
		e.reactions = n
	}
	n, err = s.Client.CommentCount(ctx, token, urn)
	if err != nil {
		log.Warn().Err(err).Str("platform_post_id", urn).Msg("comment count unavailable, using 0")
	} else {
		e.comments = n
	}
	return e
}
