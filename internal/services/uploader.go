// Package services – Uploader
//
// Uploader runs the platform upload protocol for one media item:
// resolve source bytes (inline data URI or HTTP GET), register an upload
// owned by the author URN, PUT the bytes to the returned URL and hand back the
// permanent asset URN. Images additionally wait a settling delay before the
// reference is returned, since the platform indexes them asynchronously.
//
// UploadAll fans out across a draft's assets with a bounded errgroup. A
// failed asset is logged and skipped; the surviving references keep the
// draft's order.
package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/tbourn/linkedin-publisher/internal/domain"
	"github.com/tbourn/linkedin-publisher/internal/linkedin"
)

const (
	defaultImageType    = "image/jpeg"
	defaultDocumentType = "application/pdf"
)

// Uploader uploads draft assets through a linkedin.Client.
type Uploader struct {
	Client      linkedin.Client
	SettleDelay time.Duration
	Workers     int

	// Sleep waits for d or until ctx is done. Defaults to a timer-based wait.
	Sleep func(ctx context.Context, d time.Duration) error
}

// NewUploader returns an Uploader with the default sleep.
func NewUploader(c linkedin.Client, settle time.Duration, workers int) *Uploader {
	return &Uploader{Client: c, SettleDelay: settle, Workers: workers, Sleep: sleepCtx}
}

// Upload uploads one media item owned by ownerURN and returns its reference.
// Failures are reported as *UploadError.
func (u *Uploader) Upload(ctx context.Context, token, ownerURN, mediaURL string, kind domain.AssetKind) (*domain.AssetReference, error) {
	ctx, span := otel.Tracer("services/Uploader").Start(ctx, "Upload",
		trace.WithAttributes(
			attribute.String("asset.kind", string(kind)),
			attribute.String("owner.urn", ownerURN),
		),
	)
	defer span.End()

	data, contentType, err := u.resolve(ctx, mediaURL, kind)
	if err != nil {
		return nil, &UploadError{Reason: UploadFetchFailed, URL: redactDataURI(mediaURL), Err: err}
	}

	reg, err := u.Client.RegisterUpload(ctx, token, ownerURN, kind)
	if err != nil {
		return nil, &UploadError{Reason: UploadRegisterFailed, URL: redactDataURI(mediaURL), Err: err}
	}

	if err := u.Client.PutAsset(ctx, token, reg.UploadURL, data, contentType); err != nil {
		return nil, &UploadError{Reason: UploadPutFailed, URL: redactDataURI(mediaURL), Err: err}
	}

	if kind == domain.AssetImage && u.SettleDelay > 0 {
		if err := u.sleep(ctx, u.SettleDelay); err != nil {
			return nil, &UploadError{Reason: UploadSettleInterrupted, URL: redactDataURI(mediaURL), Err: err}
		}
	}

	return &domain.AssetReference{
		SourceURL:   mediaURL,
		PlatformURN: reg.AssetURN,
		ContentType: contentType,
		Kind:        kind,
	}, nil
}

// UploadAll uploads every asset concurrently and returns the successful
// references in draft order plus one error per failed asset.
func (u *Uploader) UploadAll(ctx context.Context, token, ownerURN string, assets []domain.DraftAsset) ([]domain.AssetReference, []error) {
	if len(assets) == 0 {
		return nil, nil
	}

	refs := make([]*domain.AssetReference, len(assets))
	errs := make([]error, len(assets))

	g, gctx := errgroup.WithContext(ctx)
	workers := u.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)

	for i, a := range assets {
		i, a := i, a
		g.Go(func() error {
			ref, err := u.Upload(gctx, token, ownerURN, a.URL, a.Type)
			if err != nil {
				errs[i] = err
				var ue *UploadError
				reason := "error"
				if errors.As(err, &ue) {
					reason = string(ue.Reason)
				}
				assetUploads.WithLabelValues(reason).Inc()
				log.Warn().Err(err).Int("asset_index", i).Str("asset_kind", string(a.Type)).Msg("asset upload failed, skipping")
				return nil // one asset never aborts the rest
			}
			assetUploads.WithLabelValues("ok").Inc()
			refs[i] = ref
			return nil
		})
	}
	_ = g.Wait()

	var (
		out    []domain.AssetReference
		failed []error
	)
	for i := range assets {
		if refs[i] != nil {
			out = append(out, *refs[i])
		}
		if errs[i] != nil {
			failed = append(failed, errs[i])
		}
	}
	return out, failed
}

func (u *Uploader) sleep(ctx context.Context, d time.Duration) error {
	if u.Sleep != nil {
		return u.Sleep(ctx, d)
	}
	return sleepCtx(ctx, d)
}

// resolve returns the raw bytes and content type for a source URL.
func (u *Uploader) resolve(ctx context.Context, mediaURL string, kind domain.AssetKind) ([]byte, string, error) {
	def := defaultImageType
	if kind == domain.AssetDocument {
		def = defaultDocumentType
	}
	if strings.HasPrefix(mediaURL, "data:") {
		data, ct, err := decodeDataURI(mediaURL)
		if err != nil {
			return nil, "", err
		}
		if ct == "" {
			ct = def
		}
		return data, ct, nil
	}
	if _, err := url.ParseRequestURI(mediaURL); err != nil {
		return nil, "", fmt.Errorf("invalid media url: %w", err)
	}
	data, ct, err := u.Client.FetchMedia(ctx, mediaURL)
	if err != nil {
		return nil, "", err
	}
	if len(data) == 0 {
		return nil, "", errors.New("empty media body")
	}
	if mt, _, perr := mime.ParseMediaType(ct); perr == nil && mt != "" {
		ct = mt
	} else {
		ct = def
	}
	return data, ct, nil
}

// decodeDataURI decodes "data:[<mediatype>][;base64],<data>". Non-base64
// payloads are percent-decoded.
func decodeDataURI(uri string) ([]byte, string, error) {
	rest := strings.TrimPrefix(uri, "data:")
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", errors.New("malformed data uri")
	}

	isBase64 := false
	var ct string
	for i, part := range strings.Split(meta, ";") {
		part = strings.TrimSpace(part)
		switch {
		case i == 0:
			ct = strings.ToLower(part)
		case strings.EqualFold(part, "base64"):
			isBase64 = true
		}
	}

	if !isBase64 {
		s, err := url.PathUnescape(payload)
		if err != nil {
			return nil, "", fmt.Errorf("data uri: %w", err)
		}
		return []byte(s), ct, nil
	}

	payload = strings.TrimSpace(payload)
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		// Some producers omit padding.
		data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		if err != nil {
			return nil, "", fmt.Errorf("data uri: %w", err)
		}
	}
	if len(data) == 0 {
		return nil, "", errors.New("data uri: empty payload")
	}
	return data, ct, nil
}

// redactDataURI keeps error messages and logs short for inline payloads.
func redactDataURI(u string) string {
	if strings.HasPrefix(u, "data:") {
		if meta, _, ok := strings.Cut(u, ","); ok {
			return meta + ",…"
		}
	}
	return u
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
