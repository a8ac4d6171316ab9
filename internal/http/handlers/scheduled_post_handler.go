// Scheduled post HTTP handlers.
//
// This file exposes REST endpoints for scheduled posts:
//   - POST /scheduled-posts/{id}/publish       (run the publish pipeline now)
//   - POST /scheduled-posts/{id}/cancel        (cancel before dispatch)
//   - GET  /scheduled-posts/{id}               (fetch one)
//   - GET  /orgs/{org_id}/scheduled-posts      (list, paginated, ETag support)
//
// Handlers are transport-thin: they validate input, call application services,
// and translate results into HTTP responses (including conditional responses).
//
// Idempotency:
// If the client supplies an Idempotency-Key header and an outcome was stored
// for (org, scheduled post, key), the handler returns that outcome without
// publishing again and sets `Idempotency-Replayed: true`.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/tbourn/linkedin-publisher/internal/domain"
	"github.com/tbourn/linkedin-publisher/internal/http/middleware"
	"github.com/tbourn/linkedin-publisher/internal/repo"
	"github.com/tbourn/linkedin-publisher/internal/services"
	"github.com/tbourn/linkedin-publisher/internal/utils"
)

//
// Service contracts (context-aware)
//

// PublishService defines the scheduled-post operations consumed by HTTP
// handlers.
//
// Implementations should be safe for concurrent use and must honor the
// provided context for cancellation and timeouts.
type PublishService interface {
	// Publish runs the publish pipeline for one scheduled post.
	Publish(ctx context.Context, scheduledPostID string) (*services.PublishOutcome, error)
	// Cancel moves a not-yet-dispatched post to cancelled.
	Cancel(ctx context.Context, scheduledPostID string) error
	// Get returns one scheduled post.
	Get(ctx context.Context, scheduledPostID string) (*domain.ScheduledPost, error)
	// ListPage returns a page of an org's scheduled posts and the total count.
	ListPage(ctx context.Context, orgID string, status domain.PostStatus, page, pageSize int) ([]domain.ScheduledPost, int64, error)
	// ListPostsPage returns a page of an org's published posts and the total count.
	ListPostsPage(ctx context.Context, orgID string, page, pageSize int) ([]domain.Post, int64, error)
	// Replay returns the outcome stored for key, if any.
	Replay(ctx context.Context, scheduledPostID, key string) (*services.PublishOutcome, error)
	// Remember stores an outcome under key.
	Remember(ctx context.Context, key string, out *services.PublishOutcome) error
}

// SyncService refreshes engagement counters for an organization.
type SyncService interface {
	Sync(ctx context.Context, orgID string) (*services.SyncResult, error)
}

//
// Handler wiring
//

// Handlers groups HTTP endpoints for scheduled posts, published posts and
// analytics. It depends on abstract service interfaces to keep transport
// concerns separate from business logic.
type Handlers struct {
	pubSvc  PublishService
	syncSvc SyncService
}

// New constructs and returns a Handlers instance bound to the given services.
func New(pubSvc PublishService, syncSvc SyncService) *Handlers {
	return &Handlers{pubSvc: pubSvc, syncSvc: syncSvc}
}

//
// DTOs
//

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	Total      int64 `json:"total"`
	TotalPages int   `json:"total_pages"`
	HasNext    bool  `json:"has_next"`
}

// ListScheduledPostsResponse wraps a page of scheduled posts and pagination
// information.
type ListScheduledPostsResponse struct {
	ScheduledPosts []domain.ScheduledPost `json:"scheduled_posts"`
	Pagination     Pagination             `json:"pagination"`
}

//
// Helpers
//

// maxIDLen matches the width of the id columns.
const maxIDLen = 64

// pathID reads and validates a path identifier.
func pathID(c *gin.Context, name string) (string, bool) {
	id := strings.TrimSpace(c.Param(name))
	if id == "" || len(id) > maxIDLen {
		return "", false
	}
	return id, true
}

// pageFrom reads the page and page_size query params.
func pageFrom(c *gin.Context) utils.Page {
	return utils.ParsePage(c.Query("page"), c.Query("page_size"))
}

func paginate(p utils.Page, total int64) Pagination {
	return Pagination{
		Page:       p.Number,
		PageSize:   p.Size,
		Total:      total,
		TotalPages: p.TotalPages(total),
		HasNext:    p.HasNext(total),
	}
}

// parseStatus validates the optional status filter. Empty means all.
func parseStatus(raw string) (domain.PostStatus, bool) {
	s := domain.PostStatus(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case "", domain.StatusScheduled, domain.StatusQueued, domain.StatusPosting,
		domain.StatusPosted, domain.StatusFailed, domain.StatusCancelled:
		return s, true
	}
	return "", false
}

// serviceDB returns the database behind the concrete publish service, used
// for best-effort ETag computation.
func (h *Handlers) serviceDB() *gorm.DB {
	if svc, ok := h.pubSvc.(*services.PublishService); ok {
		return svc.DB
	}
	return nil
}

// idempotencyKey returns the key validated by the idempotency middleware,
// falling back to the raw header when no middleware is mounted.
func idempotencyKey(c *gin.Context) (string, bool) {
	if k, ok := middleware.GetIdempotencyKey(c); ok {
		return k, true
	}
	if v := strings.TrimSpace(c.GetHeader(middleware.HeaderIdempotencyKey)); v != "" {
		return v, true
	}
	return "", false
}

//
// Handlers
//

// PublishScheduledPost godoc
// @ID          publishScheduledPost
// @Summary     Publish a scheduled post now
// @Description Runs the publish pipeline (credentials, asset upload, composition, create-post strategy)
// @Description for one scheduled post. A failed pipeline is reported in the outcome with status=failed.
// @Description Supports idempotency via the Idempotency-Key header (same key → same outcome).
// @Tags        ScheduledPosts
// @Produce     json
//
// @Param       Idempotency-Key  header  string  false "Idempotency key for safe retries"  example(7a8d9f4c-1b2a-4c3d-8e9f-0123456789ab)
// @Param       id               path    string  true  "Scheduled post ID"                 example(sp_01)
//
// @Success     200  {object}  services.PublishOutcome  "Publish outcome"
// @Header      200  {string}  Idempotency-Replayed     "true when the outcome is a replay"
// @Failure     400  {object}  handlers.ErrorResponse   "Bad request"
// @Failure     404  {object}  handlers.ErrorResponse   "Scheduled post not found"
// @Failure     409  {object}  handlers.ErrorResponse   "Not connected or not dispatchable"
// @Failure     500  {object}  handlers.ErrorResponse   "Internal error"
// @Router      /scheduled-posts/{id}/publish [post]
func (h *Handlers) PublishScheduledPost(c *gin.Context) {
	ctx := c.Request.Context()
	id, valid := pathID(c, "id")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "scheduled post id required (max 64 chars)")
		return
	}

	// Idempotency (replay path).
	key, _ := idempotencyKey(c)
	if key != "" {
		if prev, err := h.pubSvc.Replay(ctx, id, key); err == nil && prev != nil {
			replayed(c, prev)
			return
		}
	}

	out, err := h.pubSvc.Publish(ctx, id)
	if err != nil {
		if out == nil || out.Status != domain.StatusPosted {
			failErr(c, err, ErrCodePublishFailed)
			return
		}
		// The platform post exists; report it so the caller does not retry.
		middleware.LoggerFrom(c).Error().Err(err).Str("scheduled_post_id", id).
			Msg("published but local state not recorded")
	}

	// Idempotency (store path) – best effort.
	if key != "" {
		if err := h.pubSvc.Remember(ctx, key, out); err != nil {
			middleware.LoggerFrom(c).Warn().Err(err).Msg("idempotency store failed")
		}
	}

	ok(c, http.StatusOK, out)
}

// CancelScheduledPost godoc
// @ID          cancelScheduledPost
// @Summary     Cancel a scheduled post
// @Description Cancels a scheduled or queued post. Cancelling an already-cancelled post succeeds.
// @Tags        ScheduledPosts
// @Produce     json
//
// @Param       id  path  string  true  "Scheduled post ID"  example(sp_01)
//
// @Success     204  {string} string "No Content"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Scheduled post not found"
// @Failure     409  {object} handlers.ErrorResponse "Dispatch already began"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /scheduled-posts/{id}/cancel [post]
func (h *Handlers) CancelScheduledPost(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "scheduled post id required (max 64 chars)")
		return
	}

	if err := h.pubSvc.Cancel(c.Request.Context(), id); err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	noContent(c)
}

// GetScheduledPost godoc
// @ID          getScheduledPost
// @Summary     Get a scheduled post
// @Tags        ScheduledPosts
// @Produce     json
//
// @Param       id  path  string  true  "Scheduled post ID"  example(sp_01)
//
// @Success     200  {object} domain.ScheduledPost
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     404  {object} handlers.ErrorResponse "Scheduled post not found"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /scheduled-posts/{id} [get]
func (h *Handlers) GetScheduledPost(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "scheduled post id required (max 64 chars)")
		return
	}
	sp, err := h.pubSvc.Get(c.Request.Context(), id)
	if err != nil {
		failErr(c, err, ErrCodeInternal)
		return
	}
	ok(c, http.StatusOK, sp)
}

// ListScheduledPosts godoc
// @ID          listScheduledPosts
// @Summary     List an organization's scheduled posts (paginated)
// @Description Returns a page of scheduled posts, optionally filtered by status. Supports weak ETag via If-None-Match and may return 304.
// @Tags        ScheduledPosts
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"scheduled-posts:org1::1:20:3:1717232400\")
// @Param       org_id         path    string  true  "Organization ID"             example(org1)
// @Param       status         query   string  false "Status filter"               Enums(scheduled, queued, posting, posted, failed, cancelled)
// @Param       page           query   int     false "Page number"                 minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"              minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListScheduledPostsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /orgs/{org_id}/scheduled-posts [get]
func (h *Handlers) ListScheduledPosts(c *gin.Context) {
	ctx := c.Request.Context()
	orgID, valid := pathID(c, "org_id")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "org id required (max 64 chars)")
		return
	}
	status, valid := parseStatus(c.Query("status"))
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "unknown status filter")
		return
	}
	p := pageFrom(c)

	// ETag pre-check (best effort).
	if db := h.serviceDB(); db != nil {
		count, maxTS, err := repo.ScheduledPostsStats(ctx, db, orgID)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			prefix := fmt.Sprintf("scheduled-posts:%s:%s:%d:%d", orgID, status, p.Number, p.Size)
			if notModified(c, prefix, count, ts) {
				return
			}
		}
	}

	items, total, err := h.pubSvc.ListPage(ctx, orgID, status, p.Number, p.Size)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListScheduledPostsResponse{
		ScheduledPosts: items,
		Pagination:     paginate(p, total),
	})
}
