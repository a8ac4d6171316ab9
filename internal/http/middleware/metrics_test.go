package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_RoutesStatusesAndReplays(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(Metrics())
	r.GET("/orgs/:org_id/posts", func(c *gin.Context) { c.String(http.StatusOK, "[]") })
	r.POST("/scheduled-posts/:id/cancel", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.POST("/scheduled-posts/:id/publish", func(c *gin.Context) {
		c.Header("Idempotency-Replayed", "true")
		c.String(http.StatusOK, "{}")
	})

	const (
		listRoute    = "/orgs/:org_id/posts"
		publishRoute = "/scheduled-posts/:id/publish"
	)
	baseList := testutil.ToFloat64(httpReqs.WithLabelValues("GET", listRoute, "200"))
	baseMiss := testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedRoute, "404"))
	baseReplay := testutil.ToFloat64(httpReplays.WithLabelValues(publishRoute))

	serve := func(method, path string) int {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
		return w.Code
	}
	if code := serve(http.MethodGet, "/orgs/org1/posts"); code != http.StatusOK {
		t.Fatalf("list -> %d", code)
	}
	if code := serve(http.MethodGet, "/orgs/org2/posts"); code != http.StatusOK {
		t.Fatalf("list -> %d", code)
	}
	if code := serve(http.MethodGet, "/wp-admin/setup.php"); code != http.StatusNotFound {
		t.Fatalf("miss -> %d", code)
	}
	if code := serve(http.MethodPost, "/scheduled-posts/sp1/cancel"); code != http.StatusNoContent {
		t.Fatalf("cancel -> %d", code)
	}
	if code := serve(http.MethodPost, "/scheduled-posts/sp1/publish"); code != http.StatusOK {
		t.Fatalf("publish -> %d", code)
	}

	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", listRoute, "200")); got != baseList+2 {
		t.Fatalf("list counter = %v; want %v (one series for both orgs)", got, baseList+2)
	}
	if got := testutil.ToFloat64(httpReqs.WithLabelValues("GET", unmatchedRoute, "404")); got != baseMiss+1 {
		t.Fatalf("unmatched counter = %v; want %v", got, baseMiss+1)
	}
	if got := testutil.ToFloat64(httpReplays.WithLabelValues(publishRoute)); got != baseReplay+1 {
		t.Fatalf("replay counter = %v; want %v", got, baseReplay+1)
	}
	if inFlight := testutil.ToFloat64(httpInflight); inFlight != 0 {
		t.Fatalf("httpInflight = %v; want 0", inFlight)
	}
}
