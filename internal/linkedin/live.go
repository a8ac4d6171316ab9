package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/tbourn/linkedin-publisher/internal/config"
	"github.com/tbourn/linkedin-publisher/internal/domain"
)

const (
	imageRecipe         = "urn:li:digitalmediaRecipe:feedshare-image"
	uploadMechanismKey  = "com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"
	maxMediaBytes int64 = 100 << 20
)

var tracer = otel.Tracer("linkedin/client")

// ErrBodyTooLarge is returned when a response exceeds the client's byte cap.
// Bodies are never silently truncated.
var ErrBodyTooLarge = errors.New("response body too large")

// LiveClient talks to the LinkedIn REST APIs over HTTP.
//
// Reads (media fetch, engagement) use ReadTimeout; writes (register, PUT,
// create post) use PostTimeout, which is expected to be longer since the
// platform processes assets synchronously on create. An optional token-bucket
// limiter bounds the outbound request rate across all goroutines.
type LiveClient struct {
	BaseURL     string
	HTTP        *http.Client
	ReadTimeout time.Duration
	PostTimeout time.Duration
	Limiter     *rate.Limiter

	// MaxBodyBytes caps any response body; zero means 100 MiB.
	MaxBodyBytes int64

	// Now is used for the date-versioned header; defaults to time.Now.
	Now func() time.Time
}

// NewLiveClient builds a LiveClient from configuration.
func NewLiveClient(cfg config.LinkedInConfig) *LiveClient {
	c := &LiveClient{
		BaseURL:     strings.TrimRight(cfg.APIBaseURL, "/"),
		HTTP:        &http.Client{},
		ReadTimeout: cfg.ReadTimeout,
		PostTimeout: cfg.PostTimeout,
		Now:         time.Now,
	}
	if cfg.RPS > 0 {
		burst := int(cfg.RPS)
		if burst < 1 {
			burst = 1
		}
		c.Limiter = rate.NewLimiter(rate.Limit(cfg.RPS), burst)
	}
	return c
}

// New returns the Client selected by cfg.Mode: a FakeClient for "fake" and a
// LiveClient otherwise.
func New(cfg config.LinkedInConfig) Client {
	if strings.EqualFold(cfg.Mode, "fake") {
		return NewFakeClient()
	}
	return NewLiveClient(cfg)
}

func (c *LiveClient) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// do sends req with a per-call timeout after waiting on the limiter, and
// returns the status, headers and the full body.
func (c *LiveClient) do(ctx context.Context, op string, timeout time.Duration, req *http.Request) (int, http.Header, []byte, error) {
	ctx, span := tracer.Start(ctx, "linkedin."+op)
	defer span.End()
	span.SetAttributes(attribute.String("http.method", req.Method), attribute.String("linkedin.op", op))

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if c.Limiter != nil {
		if err := c.Limiter.Wait(ctx); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "rate limiter")
			return 0, nil, nil, err
		}
	}

	start := time.Now()
	resp, err := c.HTTP.Do(req.WithContext(ctx))
	if err != nil {
		observeCall(op, "transport_error", time.Since(start))
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		return 0, nil, nil, fmt.Errorf("linkedin %s: %w", op, err)
	}
	defer resp.Body.Close()

	limit := c.maxBodyBytes()
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	observeCall(op, fmt.Sprint(resp.StatusCode), time.Since(start))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if err != nil {
		span.RecordError(err)
		return resp.StatusCode, resp.Header, nil, fmt.Errorf("linkedin %s: read body: %w", op, err)
	}
	if int64(len(body)) > limit {
		span.RecordError(ErrBodyTooLarge)
		span.SetStatus(codes.Error, "body too large")
		return resp.StatusCode, resp.Header, nil, fmt.Errorf("linkedin %s: %w (limit %d bytes)", op, ErrBodyTooLarge, limit)
	}
	return resp.StatusCode, resp.Header, body, nil
}

func (c *LiveClient) maxBodyBytes() int64 {
	if c.MaxBodyBytes > 0 {
		return c.MaxBodyBytes
	}
	return maxMediaBytes
}

func (c *LiveClient) jsonRequest(method, endpoint, token string, payload any, versioned bool) (*http.Request, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(HeaderRestliProtocol, restliProtocolV2)
	if versioned {
		req.Header.Set(HeaderVersion, VersionHeader(c.now()))
	}
	return req, nil
}

// FetchMedia downloads a media source URL. The response content type is
// returned as sent; callers apply their own default.
func (c *LiveClient) FetchMedia(ctx context.Context, mediaURL string) ([]byte, string, error) {
	req, err := http.NewRequest(http.MethodGet, mediaURL, nil)
	if err != nil {
		return nil, "", err
	}
	status, hdr, body, err := c.do(ctx, "fetch_media", c.ReadTimeout, req)
	if err != nil {
		return nil, "", err
	}
	if !IsSuccess(status) {
		return nil, "", &APIError{Op: "fetch_media", StatusCode: status, Body: string(body)}
	}
	return body, hdr.Get("Content-Type"), nil
}

type registerUploadRequest struct {
	RegisterUploadRequest struct {
		Recipes              []string              `json:"recipes"`
		Owner                string                `json:"owner"`
		ServiceRelationships []serviceRelationship `json:"serviceRelationships"`
	} `json:"registerUploadRequest"`
}

type serviceRelationship struct {
	RelationshipType string `json:"relationshipType"`
	Identifier       string `json:"identifier"`
}

type registerUploadResponse struct {
	Value struct {
		UploadMechanism map[string]struct {
			UploadURL string `json:"uploadUrl"`
		} `json:"uploadMechanism"`
		Asset string `json:"asset"`
	} `json:"value"`
}

type initializeDocumentRequest struct {
	InitializeUploadRequest struct {
		Owner string `json:"owner"`
	} `json:"initializeUploadRequest"`
}

type initializeDocumentResponse struct {
	Value struct {
		UploadURL string `json:"uploadUrl"`
		Document  string `json:"document"`
	} `json:"value"`
}

// RegisterUpload registers an upload for ownerURN. Images go through the
// assets API with the feed-share recipe, documents through the versioned
// documents API.
func (c *LiveClient) RegisterUpload(ctx context.Context, token, ownerURN string, kind domain.AssetKind) (*UploadRegistration, error) {
	if kind == domain.AssetDocument {
		return c.registerDocument(ctx, token, ownerURN)
	}

	var payload registerUploadRequest
	payload.RegisterUploadRequest.Recipes = []string{imageRecipe}
	payload.RegisterUploadRequest.Owner = ownerURN
	payload.RegisterUploadRequest.ServiceRelationships = []serviceRelationship{
		{RelationshipType: "OWNER", Identifier: "urn:li:userGeneratedContent"},
	}
	req, err := c.jsonRequest(http.MethodPost, c.BaseURL+"/v2/assets?action=registerUpload", token, payload, false)
	if err != nil {
		return nil, err
	}
	status, _, body, err := c.do(ctx, "register_upload", c.PostTimeout, req)
	if err != nil {
		return nil, err
	}
	if !IsSuccess(status) {
		return nil, &APIError{Op: "register_upload", StatusCode: status, Body: string(body)}
	}

	var out registerUploadResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("linkedin register_upload: decode: %w", err)
	}
	reg := &UploadRegistration{
		UploadURL: out.Value.UploadMechanism[uploadMechanismKey].UploadURL,
		AssetURN:  out.Value.Asset,
	}
	if reg.UploadURL == "" || reg.AssetURN == "" {
		return nil, errors.New("linkedin register_upload: response missing upload url or asset")
	}
	return reg, nil
}

func (c *LiveClient) registerDocument(ctx context.Context, token, ownerURN string) (*UploadRegistration, error) {
	var payload initializeDocumentRequest
	payload.InitializeUploadRequest.Owner = ownerURN
	req, err := c.jsonRequest(http.MethodPost, c.BaseURL+"/rest/documents?action=initializeUpload", token, payload, true)
	if err != nil {
		return nil, err
	}
	status, _, body, err := c.do(ctx, "register_document", c.PostTimeout, req)
	if err != nil {
		return nil, err
	}
	if !IsSuccess(status) {
		return nil, &APIError{Op: "register_document", StatusCode: status, Body: string(body)}
	}

	var out initializeDocumentResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("linkedin register_document: decode: %w", err)
	}
	if out.Value.UploadURL == "" || out.Value.Document == "" {
		return nil, errors.New("linkedin register_document: response missing upload url or document")
	}
	return &UploadRegistration{UploadURL: out.Value.UploadURL, AssetURN: out.Value.Document}, nil
}

// PutAsset uploads raw bytes to a registered upload URL.
func (c *LiveClient) PutAsset(ctx context.Context, token, uploadURL string, data []byte, contentType string) error {
	req, err := http.NewRequest(http.MethodPut, uploadURL, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", contentType)
	status, _, body, err := c.do(ctx, "put_asset", c.PostTimeout, req)
	if err != nil {
		return err
	}
	if !IsSuccess(status) {
		return &APIError{Op: "put_asset", StatusCode: status, Body: string(body)}
	}
	return nil
}

// CreatePost submits an encoded post. Modern calls carry the date-versioned
// header. Any HTTP status is returned in CreateResponse; only transport
// failures yield an error.
func (c *LiveClient) CreatePost(ctx context.Context, token string, protocol Protocol, body []byte) (*CreateResponse, error) {
	endpoint := c.BaseURL + "/rest/posts"
	if protocol == ProtocolLegacy {
		endpoint = c.BaseURL + "/v2/ugcPosts"
	}
	req, err := http.NewRequest(http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderRestliProtocol, restliProtocolV2)
	if protocol == ProtocolModern {
		req.Header.Set(HeaderVersion, VersionHeader(c.now()))
	}

	status, hdr, respBody, err := c.do(ctx, "create_post_"+string(protocol), c.PostTimeout, req)
	if err != nil {
		return nil, err
	}
	id := hdr.Get(HeaderRestliID)
	if id == "" {
		id = hdr.Get("X-LinkedIn-Id")
	}
	return &CreateResponse{StatusCode: status, RestliID: id, Body: respBody}, nil
}

type pagedTotal struct {
	Paging struct {
		Total int `json:"total"`
	} `json:"paging"`
}

// ReactionCount reads the total likes of a post.
func (c *LiveClient) ReactionCount(ctx context.Context, token, postURN string) (int, error) {
	return c.socialTotal(ctx, token, postURN, "likes")
}

// CommentCount reads the total comments of a post.
func (c *LiveClient) CommentCount(ctx context.Context, token, postURN string) (int, error) {
	return c.socialTotal(ctx, token, postURN, "comments")
}

func (c *LiveClient) socialTotal(ctx context.Context, token, postURN, kind string) (int, error) {
	endpoint := fmt.Sprintf("%s/v2/socialActions/%s/%s?count=0", c.BaseURL, url.QueryEscape(postURN), kind)
	req, err := c.jsonRequest(http.MethodGet, endpoint, token, nil, false)
	if err != nil {
		return 0, err
	}
	op := "social_" + kind
	status, _, body, err := c.do(ctx, op, c.ReadTimeout, req)
	if err != nil {
		return 0, err
	}
	if !IsSuccess(status) {
		return 0, &APIError{Op: op, StatusCode: status, Body: string(body)}
	}
	var out pagedTotal
	if err := json.Unmarshal(body, &out); err != nil {
		return 0, fmt.Errorf("linkedin %s: decode: %w", op, err)
	}
	return out.Paging.Total, nil
}
