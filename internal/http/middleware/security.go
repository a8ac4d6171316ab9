// Package middleware contains the Gin middleware of the publisher API.
//
// This file provides SecurityHeaders: baseline hardening headers for a JSON
// API, opt-in HSTS for HTTPS traffic and a cache policy matched to how the
// API is used. Reads carry weak ETags and must be revalidated; publish,
// cancel and sync responses describe side effects and must never be cached.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

const defaultHSTSMaxAge = 180 * 24 * time.Hour

// SecurityOptions configures SecurityHeaders.
type SecurityOptions struct {
	EnableHSTS   bool          // only when traffic is HTTPS end-to-end
	HSTSMaxAge   time.Duration // 180 days when <= 0
	CachePolicy  bool          // revalidate reads, no-store for writes
	EnablePolicy bool          // Permissions-Policy and cross-domain policy
}

// SecurityHeaders sets:
//   - X-Content-Type-Options, X-Frame-Options and Referrer-Policy always;
//   - Permissions-Policy and X-Permitted-Cross-Domain-Policies with EnablePolicy;
//   - "Cache-Control: private, no-cache" on GET/HEAD and "no-store" otherwise
//     with CachePolicy;
//   - Strict-Transport-Security with EnableHSTS on HTTPS requests.
//
// X-Request-ID is appended to Access-Control-Expose-Headers when present.
func SecurityHeaders(opt SecurityOptions) gin.HandlerFunc {
	maxAge := opt.HSTSMaxAge
	if maxAge <= 0 {
		maxAge = defaultHSTSMaxAge
	}
	hsts := "max-age=" + strconv.Itoa(int(maxAge.Seconds())) + "; includeSubDomains; preload"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "no-referrer")

		if opt.EnablePolicy {
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=(), payment=()")
			h.Set("X-Permitted-Cross-Domain-Policies", "none")
		}
		if opt.CachePolicy {
			setCachePolicy(h, c.Request.Method)
		}
		if opt.EnableHSTS && isHTTPS(c.Request) {
			h.Set("Strict-Transport-Security", hsts)
		}
		if h.Get(requestIDHeader) != "" {
			exposeHeader(h, requestIDHeader)
		}
		c.Next()
	}
}

func setCachePolicy(h http.Header, method string) {
	if method == http.MethodGet || method == http.MethodHead {
		h.Set("Cache-Control", "private, no-cache")
		return
	}
	h.Set("Cache-Control", "no-store")
	h.Set("Pragma", "no-cache")
}

// exposeHeader appends name to Access-Control-Expose-Headers unless listed.
func exposeHeader(h http.Header, name string) {
	const hdr = "Access-Control-Expose-Headers"
	cur := h.Get(hdr)
	switch {
	case cur == "":
		h.Set(hdr, name)
	case !strings.Contains(cur, name):
		h.Set(hdr, cur+", "+name)
	}
}

// isHTTPS reports TLS on the connection or X-Forwarded-Proto: https from a
// proxy.
func isHTTPS(r *http.Request) bool {
	if r.TLS != nil {
		return true
	}
	return strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
