// Package handlers provides the HTTP handlers of the publisher API.
//
// This file holds the response helpers every endpoint shares: the error
// envelope, the mapping from service errors to status codes, weak ETags and
// idempotent replays.
//
// Error response:
//
//	HTTP/1.1 409 Conflict
//	{
//	  "request_id": "123e4567-e89b-12d3-a456-426614174000",
//	  "code": "not_connected",
//	  "message": "linkedin account not connected"
//	}
package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/linkedin-publisher/internal/http/middleware"
	"github.com/tbourn/linkedin-publisher/internal/services"
)

// HeaderReplayed marks a response served from a stored idempotent outcome.
const HeaderReplayed = "Idempotency-Replayed"

// ErrorResponse is the standard error envelope returned by all endpoints.
type ErrorResponse struct {
	// Correlates server logs and client errors
	RequestID string `json:"request_id,omitempty" example:"123e4567-e89b-12d3-a456-426614174000"`
	// Stable, machine-readable code (see errors.go constants)
	Code string `json:"code" example:"not_found"`
	// Human-readable message (safe to show to users)
	Message string `json:"message" example:"resource not found"`
}

// fail aborts with an ErrorResponse. 5xx responses are logged through the
// request-scoped logger.
func fail(c *gin.Context, status int, code, msg string) {
	if status >= http.StatusInternalServerError {
		middleware.LoggerFrom(c).Error().
			Int("status", status).
			Str("code", code).
			Str("message", msg).
			Msg("api error")
	}
	c.AbortWithStatusJSON(status, ErrorResponse{
		RequestID: c.Writer.Header().Get("X-Request-ID"),
		Code:      code,
		Message:   msg,
	})
}

// Fail is the exported variant of fail for the router fallbacks.
func Fail(c *gin.Context, status int, code, msg string) { fail(c, status, code, msg) }

// failErr maps a service error onto the envelope. Errors outside the known
// taxonomy become 500 with fallbackCode.
func failErr(c *gin.Context, err error, fallbackCode string) {
	switch {
	case errors.Is(err, services.ErrScheduledPostNotFound):
		fail(c, http.StatusNotFound, ErrCodeNotFound, "scheduled post not found")
	case errors.Is(err, services.ErrNotConnected):
		fail(c, http.StatusConflict, ErrCodeNotConnected, err.Error())
	case errors.Is(err, services.ErrNotDispatchable), errors.Is(err, services.ErrAlreadyClaimed):
		fail(c, http.StatusConflict, ErrCodeNotDispatchable, err.Error())
	case errors.Is(err, services.ErrNotCancellable):
		fail(c, http.StatusConflict, ErrCodeNotCancellable, err.Error())
	default:
		fail(c, http.StatusInternalServerError, fallbackCode, err.Error())
	}
}

func ok(c *gin.Context, status int, body any) {
	c.JSON(status, body)
}

func noContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// replayed writes a stored outcome and flags it as a replay.
func replayed(c *gin.Context, body any) {
	c.Header(HeaderReplayed, "true")
	c.JSON(http.StatusOK, body)
}

// weakETag formats the list validator from a row count and the newest
// updated_at in Unix seconds.
func weakETag(prefix string, count, maxTS int64) string {
	return fmt.Sprintf(`W/"%s:%d:%d"`, prefix, count, maxTS)
}

// notModified sets the ETag header and, when If-None-Match already matches,
// writes 304 and reports true.
func notModified(c *gin.Context, prefix string, count, maxTS int64) bool {
	etag := weakETag(prefix, count, maxTS)
	c.Header("ETag", etag)
	if inm := c.GetHeader("If-None-Match"); inm != "" && inm == etag {
		c.Status(http.StatusNotModified)
		return true
	}
	return false
}
