// Package services – Composer
//
// Compose turns a draft and the asset references that survived upload into a
// protocol-neutral linkedin.Payload. It performs no I/O.
//
// Shape selection:
//   - no references            -> none
//   - any document reference   -> document (first document only)
//   - exactly one image        -> image
//   - two or more images       -> carousel, each slide titled "Slide N"
package services

import (
	"fmt"
	"net/url"
	"path"
	"strings"

	"golang.org/x/text/cases"

	"github.com/tbourn/linkedin-publisher/internal/domain"
	"github.com/tbourn/linkedin-publisher/internal/linkedin"
)

const defaultDocumentTitle = "Document"

var hashtagFold = cases.Fold()

// Compose builds the publish payload for draft d authored by authorURN.
func Compose(d *domain.Draft, refs []domain.AssetReference, authorURN string) (linkedin.Payload, error) {
	if d == nil {
		return linkedin.Payload{}, &ComposeError{Detail: "draft is nil"}
	}
	if strings.TrimSpace(authorURN) == "" {
		return linkedin.Payload{}, &ComposeError{Detail: "author urn is empty"}
	}

	text := composeText(d.Content)
	if text == "" && len(refs) == 0 {
		return linkedin.Payload{}, &ComposeError{Detail: fmt.Sprintf("draft %s has no text and no media", d.ID)}
	}

	p := linkedin.Payload{
		Author:         authorURN,
		Commentary:     text,
		Visibility:     "PUBLIC",
		LifecycleState: "PUBLISHED",
	}

	var images []domain.AssetReference
	for _, r := range refs {
		if r.PlatformURN == "" {
			continue
		}
		if r.Kind == domain.AssetDocument {
			p.Shape = linkedin.ShapeDocument
			p.Media = []linkedin.MediaItem{{
				URN:   r.PlatformURN,
				Title: documentTitle(r.SourceURL),
				Kind:  domain.AssetDocument,
			}}
			return p, nil
		}
		images = append(images, r)
	}

	switch len(images) {
	case 0:
		p.Shape = linkedin.ShapeNone
	case 1:
		p.Shape = linkedin.ShapeImage
		p.Media = []linkedin.MediaItem{{URN: images[0].PlatformURN, Kind: domain.AssetImage}}
	default:
		p.Shape = linkedin.ShapeCarousel
		p.Media = make([]linkedin.MediaItem, 0, len(images))
		for i, r := range images {
			p.Media = append(p.Media, linkedin.MediaItem{
				URN:   r.PlatformURN,
				Title: fmt.Sprintf("Slide %d", i+1),
				Kind:  domain.AssetImage,
			})
		}
	}
	return p, nil
}

// composeText joins the body and the hashtag paragraph.
func composeText(c domain.DraftContent) string {
	body := strings.TrimSpace(c.Body)
	tags := normalizeHashtags(c.Hashtags)
	if len(tags) == 0 {
		return body
	}
	line := strings.Join(tags, " ")
	if body == "" {
		return line
	}
	return body + "\n\n" + line
}

// normalizeHashtags trims, prefixes '#' and drops case-insensitive duplicates
// while keeping the first spelling and the original order.
func normalizeHashtags(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, t := range in {
		t = strings.TrimSpace(t)
		t = strings.TrimLeft(t, "#")
		t = strings.Join(strings.Fields(t), "")
		if t == "" {
			continue
		}
		key := hashtagFold.String(t)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, "#"+t)
	}
	return out
}

// documentTitle derives a title from the source file name.
func documentTitle(src string) string {
	if src == "" || strings.HasPrefix(src, "data:") {
		return defaultDocumentTitle
	}
	u, err := url.Parse(src)
	if err != nil {
		return defaultDocumentTitle
	}
	base := path.Base(u.Path)
	if base == "." || base == "/" || base == "" {
		return defaultDocumentTitle
	}
	if name, err := url.PathUnescape(base); err == nil {
		base = name
	}
	if ext := path.Ext(base); ext != "" && len(ext) < len(base) {
		base = strings.TrimSuffix(base, ext)
	}
	return base
}
