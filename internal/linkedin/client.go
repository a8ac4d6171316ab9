// Package linkedin is the platform boundary of the publisher. It defines the
// Client capability used by every pipeline component (media fetch, asset
// upload, post creation, engagement reads) and provides two implementations:
// LiveClient talks to the LinkedIn REST APIs, FakeClient returns canned,
// scriptable responses for local runs and tests. Components receive a Client
// by injection and never branch on which implementation they hold.
package linkedin

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tbourn/linkedin-publisher/internal/domain"
)

// Protocol selects one of the two mutually incompatible post-creation APIs.
type Protocol string

const (
	// ProtocolModern is the versioned /rest/posts API.
	ProtocolModern Protocol = "modern"
	// ProtocolLegacy is the /v2/ugcPosts API.
	ProtocolLegacy Protocol = "legacy"
)

// Header names used on the wire.
const (
	HeaderRestliID       = "X-RestLi-Id"
	HeaderVersion        = "LinkedIn-Version"
	HeaderRestliProtocol = "X-Restli-Protocol-Version"
	restliProtocolV2     = "2.0.0"
)

// UploadRegistration is the result of registering an asset upload.
type UploadRegistration struct {
	UploadURL string // one-time byte upload target
	AssetURN  string // permanent asset reference
}

// CreateResponse is the raw result of a create-post call. A non-2xx status is
// not an error at this level; the strategy layer interprets it.
type CreateResponse struct {
	StatusCode int
	RestliID   string
	Body       []byte
}

// Client is the platform capability consumed by the publish pipeline and the
// reconciliation service.
type Client interface {
	// FetchMedia downloads source bytes for a media URL and reports its content type.
	FetchMedia(ctx context.Context, url string) ([]byte, string, error)
	// RegisterUpload registers an upload owned by ownerURN for the given asset kind.
	RegisterUpload(ctx context.Context, token, ownerURN string, kind domain.AssetKind) (*UploadRegistration, error)
	// PutAsset transfers raw bytes to a registered upload URL.
	PutAsset(ctx context.Context, token, uploadURL string, data []byte, contentType string) error
	// CreatePost submits an encoded post body through the given protocol.
	CreatePost(ctx context.Context, token string, protocol Protocol, body []byte) (*CreateResponse, error)
	// ReactionCount returns the number of reactions on a published post.
	ReactionCount(ctx context.Context, token, postURN string) (int, error)
	// CommentCount returns the number of comments on a published post.
	CommentCount(ctx context.Context, token, postURN string) (int, error)
}

// APIError describes a non-2xx response from a non-create call.
type APIError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("linkedin %s: status %d: %s", e.Op, e.StatusCode, truncate(e.Body, 300))
}

// VersionHeader formats the date-versioned API header value (YYYYMM) for t.
func VersionHeader(t time.Time) string {
	return t.UTC().Format("200601")
}

// NormalizePostURN turns a raw created-post id into a URN. Ids that already
// carry a "urn:" prefix are returned unchanged.
func NormalizePostURN(protocol Protocol, id string) string {
	id = strings.TrimSpace(id)
	if id == "" || strings.HasPrefix(id, "urn:") {
		return id
	}
	if protocol == ProtocolLegacy {
		return "urn:li:ugcPost:" + id
	}
	return "urn:li:share:" + id
}

// PostURL returns the public feed URL of a post URN.
func PostURL(urn string) string {
	return "https://www.linkedin.com/feed/update/" + urn + "/"
}

// IsSuccess reports whether status is a 2xx code.
func IsSuccess(status int) bool {
	return status >= http.StatusOK && status < http.StatusMultipleChoices
}

// truncate caps s to max bytes for error messages and logs.
func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	return s[:max] + "…"
}

var (
	_ Client = (*LiveClient)(nil)
	_ Client = (*FakeClient)(nil)
)
