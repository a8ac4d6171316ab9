// Package services – PublishService
//
// PublishService owns the scheduled-post lifecycle:
//
//	scheduled|queued -> posting -> posted | failed
//	scheduled|queued -> cancelled
//
// Publish resolves credentials before claiming the post, so a missing or
// expired connection leaves the status untouched. The claim is a conditional
// UPDATE that only one caller can win; once it succeeds the post is never
// re-dispatched by this invocation. Pipeline failures after the claim are
// recorded as status=failed and reported in the outcome rather than returned
// as errors, so a batch of dispatches never aborts on one post.
//
// Observability: public methods are OpenTelemetry-instrumented with the
// scheduled post and organization identifiers.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/linkedin-publisher/internal/config"
	"github.com/tbourn/linkedin-publisher/internal/domain"
	"github.com/tbourn/linkedin-publisher/internal/linkedin"
	"github.com/tbourn/linkedin-publisher/internal/repo"
	"github.com/tbourn/linkedin-publisher/internal/utils"
)

// PublishOutcome is the result of one publish invocation.
type PublishOutcome struct {
	ScheduledPostID string            `json:"scheduled_post_id"`
	OrgID           string            `json:"org_id"`
	Status          domain.PostStatus `json:"status"`
	PlatformPostID  string            `json:"platform_post_id,omitempty"`
	PlatformURL     string            `json:"platform_url,omitempty"`
	Protocol        linkedin.Protocol `json:"protocol,omitempty"`
	Unidentified    bool              `json:"success_but_unidentified,omitempty"`
	MediaDegraded   bool              `json:"media_degraded,omitempty"`
	UploadFailures  int               `json:"upload_failures,omitempty"`
	Error           string            `json:"error,omitempty"`
	Retryable       bool              `json:"retryable,omitempty"` // failure came from a platform outage
}

// PublishService drives credential resolution, asset upload, composition and
// the create-post strategy for scheduled posts.
type PublishService struct {
	DB          *gorm.DB
	Credentials CredentialProvider
	Uploader    *Uploader
	Strategy    *Strategy

	// IdempotencyTTL bounds how long Remember keeps an outcome. Defaults to 24h.
	IdempotencyTTL time.Duration

	Now func() time.Time
}

// NewPublishService wires the pipeline against client using the LinkedIn and
// idempotency settings from cfg. Credentials come from the credential table.
func NewPublishService(db *gorm.DB, client linkedin.Client, cfg config.Config) *PublishService {
	li := cfg.LinkedIn
	return &PublishService{
		DB:             db,
		Credentials:    &StoreCredentialProvider{DB: db},
		Uploader:       NewUploader(client, li.SettleDelay, li.UploadWorkers),
		Strategy:       NewStrategy(client, li.RetryAttempts, li.RetryDelay, li.LegacyForMedia),
		IdempotencyTTL: cfg.IdempotencyTTL,
	}
}

func (s *PublishService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Publish runs the pipeline for one scheduled post.
//
// Returned errors: ErrScheduledPostNotFound, ErrNotConnected,
// ErrNotDispatchable, ErrAlreadyClaimed or a storage error. A post that is
// already posted yields its recorded outcome without side effects.
func (s *PublishService) Publish(ctx context.Context, scheduledPostID string) (*PublishOutcome, error) {
	tr := otel.Tracer("services/PublishService")
	ctx, span := tr.Start(ctx, "Publish",
		trace.WithAttributes(attribute.String("scheduled_post.id", scheduledPostID)),
	)
	defer span.End()

	sp, err := repo.GetScheduledPost(ctx, s.DB, scheduledPostID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrScheduledPostNotFound
	}
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("org.id", sp.OrgID))
	logger := log.With().Str("scheduled_post_id", sp.ID).Str("org_id", sp.OrgID).Logger()

	out := &PublishOutcome{ScheduledPostID: sp.ID, OrgID: sp.OrgID, Status: sp.Status}

	if sp.Status == domain.StatusPosted {
		out.PlatformPostID = sp.PlatformPostID
		out.PlatformURL = sp.PlatformURL
		publishOutcomes.WithLabelValues("skipped").Inc()
		return out, nil
	}
	if !sp.Status.Dispatchable() {
		return out, ErrNotDispatchable
	}

	creds, err := s.Credentials.Credentials(ctx, sp.OrgID)
	if err != nil {
		if errors.Is(err, ErrNotConnected) {
			publishOutcomes.WithLabelValues("not_connected").Inc()
			logger.Warn().Msg("publish skipped: account not connected")
			out.Error = ErrNotConnected.Error()
			return out, ErrNotConnected
		}
		return nil, err
	}

	claimed, err := repo.ClaimScheduledPost(ctx, s.DB, sp.ID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return out, ErrAlreadyClaimed
	}
	out.Status = domain.StatusPosting

	draft, err := repo.GetDraft(ctx, s.DB, sp.DraftID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			err = fmt.Errorf("%w: %s", ErrDraftNotFound, sp.DraftID)
		}
		return s.fail(ctx, sp, out, err), nil
	}

	authorURN, authorKind, err := resolveAuthor(draft, creds)
	if err != nil {
		return s.fail(ctx, sp, out, err), nil
	}
	span.SetAttributes(attribute.String("author.kind", string(authorKind)))

	refs, uploadErrs := s.Uploader.UploadAll(ctx, creds.AccessToken, authorURN, draft.Assets)
	out.UploadFailures = len(uploadErrs)
	if len(draft.Assets) > 0 && len(refs) == 0 {
		out.MediaDegraded = true
		mediaDegraded.Inc()
		logger.Warn().Int("assets", len(draft.Assets)).Msg("no asset uploaded, publishing text only")
	}

	payload, err := Compose(draft, refs, authorURN)
	if err != nil {
		return s.fail(ctx, sp, out, err), nil
	}

	res, err := s.Strategy.Execute(ctx, creds.AccessToken, payload)
	if err != nil {
		span.RecordError(err)
		return s.fail(ctx, sp, out, err), nil
	}

	// The platform side effect is live; persist it even if the caller gave up.
	persistCtx := context.WithoutCancel(ctx)
	if _, err := repo.MarkPosted(persistCtx, s.DB, sp, repo.PostedResult{
		PlatformPostID: res.PlatformPostID,
		PlatformURL:    res.PlatformURL,
		Unidentified:   res.Unidentified,
		PostedAt:       s.now(),
	}); err != nil {
		span.SetStatus(codes.Error, "persist posted outcome")
		logger.Error().Err(err).Str("platform_post_id", res.PlatformPostID).
			Msg("post is live but recording it failed")
		out.Status = domain.StatusPosted
		out.PlatformPostID = res.PlatformPostID
		out.PlatformURL = res.PlatformURL
		return out, fmt.Errorf("record posted outcome: %w", err)
	}

	out.Status = domain.StatusPosted
	out.PlatformPostID = res.PlatformPostID
	out.PlatformURL = res.PlatformURL
	out.Protocol = res.Protocol
	out.Unidentified = res.Unidentified
	publishOutcomes.WithLabelValues("posted").Inc()
	logger.Info().
		Str("platform_post_id", res.PlatformPostID).
		Str("protocol", string(res.Protocol)).
		Int("attempts", res.Attempts).
		Msg("scheduled post published")
	return out, nil
}

// fail records cause on the claimed post and returns the failed outcome.
func (s *PublishService) fail(ctx context.Context, sp *domain.ScheduledPost, out *PublishOutcome, cause error) *PublishOutcome {
	msg := cause.Error()
	if err := repo.MarkFailed(context.WithoutCancel(ctx), s.DB, sp.ID, msg); err != nil {
		log.Error().Err(err).Str("scheduled_post_id", sp.ID).Msg("mark failed")
	}
	publishOutcomes.WithLabelValues("failed").Inc()
	out.Status = domain.StatusFailed
	out.Error = msg
	out.Retryable = IsTransient(cause)
	log.Warn().Str("scheduled_post_id", sp.ID).Str("org_id", sp.OrgID).
		Bool("retryable", out.Retryable).Str("error", msg).Msg("publish failed")
	return out
}

// Cancel moves a scheduled or queued post to cancelled. Cancelling an
// already-cancelled post is a no-op; any other state yields ErrNotCancellable.
func (s *PublishService) Cancel(ctx context.Context, scheduledPostID string) error {
	tr := otel.Tracer("services/PublishService")
	ctx, span := tr.Start(ctx, "Cancel",
		trace.WithAttributes(attribute.String("scheduled_post.id", scheduledPostID)),
	)
	defer span.End()

	sp, err := repo.GetScheduledPost(ctx, s.DB, scheduledPostID)
	if errors.Is(err, repo.ErrNotFound) {
		return ErrScheduledPostNotFound
	}
	if err != nil {
		return err
	}
	if sp.Status == domain.StatusCancelled {
		return nil
	}
	if !sp.Status.CanTransition(domain.StatusCancelled) {
		return ErrNotCancellable
	}

	// The conditional update loses when a dispatcher claimed the post
	// after the read.
	ok, err := repo.CancelScheduledPost(ctx, s.DB, scheduledPostID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotCancellable
	}
	log.Info().Str("scheduled_post_id", scheduledPostID).Msg("scheduled post cancelled")
	return nil
}

// Get returns a scheduled post by id.
func (s *PublishService) Get(ctx context.Context, scheduledPostID string) (*domain.ScheduledPost, error) {
	tr := otel.Tracer("services/PublishService")
	ctx, span := tr.Start(ctx, "Get",
		trace.WithAttributes(attribute.String("scheduled_post.id", scheduledPostID)),
	)
	defer span.End()

	sp, err := repo.GetScheduledPost(ctx, s.DB, scheduledPostID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrScheduledPostNotFound
	}
	return sp, err
}

// ListPage returns a page of an organization's scheduled posts, optionally
// filtered by status, and the total count.
func (s *PublishService) ListPage(ctx context.Context, orgID string, status domain.PostStatus, page, pageSize int) ([]domain.ScheduledPost, int64, error) {
	tr := otel.Tracer("services/PublishService")
	ctx, span := tr.Start(ctx, "ListPage",
		trace.WithAttributes(
			attribute.String("org.id", orgID),
			attribute.String("status", string(status)),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	p := utils.NewPage(page, pageSize)

	total, err := repo.CountScheduledPosts(ctx, s.DB, orgID, status)
	if err != nil {
		return nil, 0, err
	}
	items, err := repo.ListScheduledPostsPage(ctx, s.DB, orgID, status, p.Offset(), p.Size)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// ListPostsPage returns a page of an organization's published posts and the
// total count.
func (s *PublishService) ListPostsPage(ctx context.Context, orgID string, page, pageSize int) ([]domain.Post, int64, error) {
	tr := otel.Tracer("services/PublishService")
	ctx, span := tr.Start(ctx, "ListPostsPage",
		trace.WithAttributes(
			attribute.String("org.id", orgID),
			attribute.Int("page", page),
			attribute.Int("page_size", pageSize),
		),
	)
	defer span.End()

	p := utils.NewPage(page, pageSize)

	total, err := repo.CountPosts(ctx, s.DB, orgID)
	if err != nil {
		return nil, 0, err
	}
	items, err := repo.ListPostsPage(ctx, s.DB, orgID, p.Offset(), p.Size)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

// Replay returns the outcome stored for a previous publish request made with
// key, or repo.ErrNotFound.
func (s *PublishService) Replay(ctx context.Context, scheduledPostID, key string) (*PublishOutcome, error) {
	if strings.TrimSpace(key) == "" {
		return nil, repo.ErrNotFound
	}
	sp, err := repo.GetScheduledPost(ctx, s.DB, scheduledPostID)
	if err != nil {
		return nil, err
	}
	rec, err := repo.GetIdempotency(ctx, s.DB, sp.OrgID, sp.ID, key, s.now())
	if err != nil {
		return nil, err
	}
	return &PublishOutcome{
		ScheduledPostID: rec.ScheduledPostID,
		OrgID:           rec.OrgID,
		Status:          rec.Status,
		PlatformPostID:  rec.PlatformPostID,
		PlatformURL:     rec.PlatformURL,
		Error:           rec.ErrorMessage,
	}, nil
}

// HasReplay reports whether a stored outcome exists for key.
func (s *PublishService) HasReplay(ctx context.Context, scheduledPostID, key string) (bool, error) {
	_, err := s.Replay(ctx, scheduledPostID, key)
	if errors.Is(err, repo.ErrNotFound) {
		return false, nil
	}
	return err == nil, err
}

// Remember stores out under key so that a retried request can be replayed.
// A concurrent duplicate store is not an error.
func (s *PublishService) Remember(ctx context.Context, key string, out *PublishOutcome) error {
	if out == nil || strings.TrimSpace(key) == "" {
		return nil
	}
	ttl := s.IdempotencyTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	_, err := repo.CreateIdempotency(ctx, s.DB, &domain.Idempotency{
		OrgID:           out.OrgID,
		ScheduledPostID: out.ScheduledPostID,
		Key:             key,
		Status:          out.Status,
		PlatformPostID:  out.PlatformPostID,
		PlatformURL:     out.PlatformURL,
		ErrorMessage:    out.Error,
	}, ttl)
	if errors.Is(err, repo.ErrDuplicate) {
		return nil
	}
	return err
}
