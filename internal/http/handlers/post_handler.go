// Published post and analytics HTTP handlers.
//
// This file exposes REST endpoints for published posts:
//   - GET  /orgs/{org_id}/posts            (list, paginated, ETag support)
//   - POST /orgs/{org_id}/analytics/sync   (refresh engagement counters)
package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/linkedin-publisher/internal/domain"
	"github.com/tbourn/linkedin-publisher/internal/repo"
)

// ListPostsResponse wraps a page of published posts and pagination information.
type ListPostsResponse struct {
	Posts      []domain.Post `json:"posts"`
	Pagination Pagination    `json:"pagination"`
}

// ListPosts godoc
// @ID          listPosts
// @Summary     List an organization's published posts (paginated)
// @Description Returns a page of published posts with their mirrored engagement counters. Supports weak ETag via If-None-Match and may return 304.
// @Tags        Posts
// @Produce     json
//
// @Param       If-None-Match  header  string  false "Return 304 if ETag matches"  example(W/\"posts:org1:1:20:3:1717232400\")
// @Param       org_id         path    string  true  "Organization ID"             example(org1)
// @Param       page           query   int     false "Page number"                 minimum(1) default(1)
// @Param       page_size      query   int     false "Items per page"              minimum(1) maximum(100) default(20)
//
// @Success     200  {object} handlers.ListPostsResponse
// @Header      200  {string} ETag  "Weak ETag for current result"
// @Success     304  {string} string "Not Modified"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /orgs/{org_id}/posts [get]
func (h *Handlers) ListPosts(c *gin.Context) {
	ctx := c.Request.Context()
	orgID, valid := pathID(c, "org_id")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "org id required (max 64 chars)")
		return
	}
	p := pageFrom(c)

	if db := h.serviceDB(); db != nil {
		count, maxTS, err := repo.PostsStats(ctx, db, orgID)
		if err == nil {
			var ts int64
			if maxTS != nil {
				ts = maxTS.Unix()
			}
			if notModified(c, fmt.Sprintf("posts:%s:%d:%d", orgID, p.Number, p.Size), count, ts) {
				return
			}
		}
	}

	items, total, err := h.pubSvc.ListPostsPage(ctx, orgID, p.Number, p.Size)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, err.Error())
		return
	}
	ok(c, http.StatusOK, ListPostsResponse{
		Posts:      items,
		Pagination: paginate(p, total),
	})
}

// SyncAnalytics godoc
// @ID          syncAnalytics
// @Summary     Refresh engagement counters
// @Description Fetches reaction and comment counts for everything the organization published and mirrors them locally.
// @Tags        Analytics
// @Produce     json
//
// @Param       org_id  path  string  true  "Organization ID"  example(org1)
//
// @Success     200  {object} services.SyncResult
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     409  {object} handlers.ErrorResponse "Account not connected"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /orgs/{org_id}/analytics/sync [post]
func (h *Handlers) SyncAnalytics(c *gin.Context) {
	orgID, valid := pathID(c, "org_id")
	if !valid {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "org id required (max 64 chars)")
		return
	}
	res, err := h.syncSvc.Sync(c.Request.Context(), orgID)
	if err != nil {
		failErr(c, err, ErrCodeSyncFailed)
		return
	}
	ok(c, http.StatusOK, res)
}
