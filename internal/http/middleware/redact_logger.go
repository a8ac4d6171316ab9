// Package middleware contains the Gin middleware of the publisher API.
//
// This file implements RedactingLogger, the access log. Bodies are never
// logged. OAuth secrets in query strings (access_token, refresh_token,
// client_secret, code) are masked, as are Authorization, cookies and any
// extra headers named in RedactOptions. Emails, phone numbers and UUIDs in
// the remaining query and header values are replaced with typed markers.
package middleware

import (
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RedactOptions configures RedactingLogger. MaskHeaders are matched
// case-insensitively and fully replaced with "[REDACTED]".
type RedactOptions struct {
	MaskHeaders []string
}

const redacted = "[REDACTED]"

var (
	secretRE = regexp.MustCompile(`(?i)\b(access_token|refresh_token|client_secret|code)=[^&]*`)
	uuidRE   = regexp.MustCompile(`(?i)\b[0-9a-f]{8}\-[0-9a-f]{4}\-[1-5][0-9a-f]{3}\-[89ab][0-9a-f]{3}\-[0-9a-f]{12}\b`)
	emailRE  = regexp.MustCompile(`(?i)\b[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}\b`)
	// Digits only, so UUID hex segments never match.
	phoneRE = regexp.MustCompile(`\b(?:\+?\d{1,3}[ .-]?)?(?:\(?\d{2,4}\)?[ .-]?)?\d{3,4}[ .-]?\d{4}\b`)
)

type redactor struct {
	masked map[string]struct{}
}

func newRedactor(extra []string) redactor {
	r := redactor{masked: map[string]struct{}{
		"authorization": {},
		"cookie":        {},
		"set-cookie":    {},
	}}
	for _, h := range extra {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			r.masked[h] = struct{}{}
		}
	}
	return r
}

// scrub masks secrets first and UUIDs before phones; the phone pattern is the
// loosest and would otherwise eat UUID digits.
func (redactor) scrub(s string) string {
	if s == "" {
		return s
	}
	s = secretRE.ReplaceAllString(s, "${1}="+redacted)
	s = uuidRE.ReplaceAllString(s, "[REDACTED:id]")
	s = emailRE.ReplaceAllString(s, "[REDACTED:email]")
	return phoneRE.ReplaceAllString(s, "[REDACTED:phone]")
}

func (r redactor) headers(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, vv := range h {
		if _, ok := r.masked[strings.ToLower(k)]; ok {
			out[k] = redacted
			continue
		}
		out[k] = r.scrub(strings.Join(vv, ", "))
	}
	return out
}

// RedactingLogger attaches the request-scoped logger (see LoggerFrom) and
// writes one access log line per request: info below 400, warn for 4xx and
// error for 5xx.
func RedactingLogger(opts RedactOptions) gin.HandlerFunc {
	red := newRedactor(opts.MaskHeaders)
	return func(c *gin.Context) {
		start := time.Now()
		attachLogger(c)
		query := red.scrub(c.Request.URL.RawQuery)
		headers := red.headers(c.Request.Header)

		c.Next()

		status := c.Writer.Status()
		reqID := c.Writer.Header().Get(requestIDHeader)
		if reqID == "" {
			reqID = c.GetHeader(requestIDHeader)
		}
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		var ev *zerolog.Event
		switch {
		case status >= 500:
			ev = log.Error()
		case status >= 400:
			ev = log.Warn()
		default:
			ev = log.Info()
		}
		for _, p := range scopeParams {
			if v := c.Param(p.param); v != "" {
				ev = ev.Str(p.field, v)
			}
		}
		if len(c.Errors) > 0 {
			ev = ev.Str("errors", c.Errors.String())
		}
		ev.Str("request_id", reqID).
			Str("method", c.Request.Method).
			Str("path", route).
			Str("query", query).
			Int("status", status).
			Int("bytes", c.Writer.Size()).
			Dur("latency", time.Since(start)).
			Interface("headers", headers).
			Msg("http_request")
	}
}
