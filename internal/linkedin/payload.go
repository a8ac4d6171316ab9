package linkedin

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/tbourn/linkedin-publisher/internal/domain"
)

// Shape is the content shape of a publish payload.
type Shape string

const (
	ShapeNone     Shape = "none"
	ShapeImage    Shape = "image"
	ShapeCarousel Shape = "carousel"
	ShapeDocument Shape = "document"
)

const (
	visibilityPublic = "PUBLIC"
	lifecyclePublish = "PUBLISHED"
)

// ErrLegacyUnsupported is returned when a payload shape cannot be expressed
// through the legacy protocol.
var ErrLegacyUnsupported = errors.New("legacy protocol does not support this content shape")

// MediaItem is one uploaded asset referenced by a payload.
type MediaItem struct {
	URN   string
	Title string
	Kind  domain.AssetKind
}

// Payload is the protocol-neutral description of a post. It is encoded into a
// wire body by EncodeModern or EncodeLegacy at call time.
type Payload struct {
	Author         string
	Commentary     string
	Shape          Shape
	Media          []MediaItem
	Visibility     string
	LifecycleState string
}

// HasMedia reports whether the payload references at least one asset.
func (p Payload) HasMedia() bool { return len(p.Media) > 0 }

// AuthorKind derives the author kind from the author URN.
func (p Payload) AuthorKind() domain.AuthorKind {
	if strings.HasPrefix(p.Author, "urn:li:organization:") {
		return domain.KindOrganization
	}
	return domain.KindPerson
}

// LegacyCompatible reports whether the legacy protocol can carry this shape.
func (p Payload) LegacyCompatible() bool {
	return p.Shape != ShapeDocument
}

// ---- modern (/rest/posts) ----

type modernDistribution struct {
	FeedDistribution               string   `json:"feedDistribution"`
	TargetEntities                 []string `json:"targetEntities"`
	ThirdPartyDistributionChannels []string `json:"thirdPartyDistributionChannels"`
}

type modernMedia struct {
	ID      string `json:"id"`
	Title   string `json:"title,omitempty"`
	AltText string `json:"altText,omitempty"`
}

type modernMultiImage struct {
	Images []modernMedia `json:"images"`
}

type modernContent struct {
	Media      *modernMedia      `json:"media,omitempty"`
	MultiImage *modernMultiImage `json:"multiImage,omitempty"`
}

type modernPost struct {
	Author                    string             `json:"author"`
	Commentary                string             `json:"commentary"`
	Visibility                string             `json:"visibility"`
	Distribution              modernDistribution `json:"distribution"`
	Content                   *modernContent     `json:"content,omitempty"`
	LifecycleState            string             `json:"lifecycleState"`
	IsReshareDisabledByAuthor bool               `json:"isReshareDisabledByAuthor"`
}

// EncodeModern renders p as a /rest/posts request body.
func EncodeModern(p Payload) ([]byte, error) {
	body := modernPost{
		Author:     p.Author,
		Commentary: p.Commentary,
		Visibility: orDefault(p.Visibility, visibilityPublic),
		Distribution: modernDistribution{
			FeedDistribution:               "MAIN_FEED",
			TargetEntities:                 []string{},
			ThirdPartyDistributionChannels: []string{},
		},
		LifecycleState: orDefault(p.LifecycleState, lifecyclePublish),
	}

	switch p.Shape {
	case ShapeNone:
	case ShapeImage:
		if len(p.Media) != 1 {
			return nil, errors.New("image shape requires exactly one media item")
		}
		body.Content = &modernContent{Media: &modernMedia{ID: p.Media[0].URN, AltText: p.Media[0].Title}}
	case ShapeDocument:
		if len(p.Media) == 0 {
			return nil, errors.New("document shape requires a media item")
		}
		body.Content = &modernContent{Media: &modernMedia{ID: p.Media[0].URN, Title: p.Media[0].Title}}
	case ShapeCarousel:
		if len(p.Media) < 2 {
			return nil, errors.New("carousel shape requires at least two media items")
		}
		imgs := make([]modernMedia, 0, len(p.Media))
		for _, m := range p.Media {
			imgs = append(imgs, modernMedia{ID: m.URN, AltText: m.Title})
		}
		body.Content = &modernContent{MultiImage: &modernMultiImage{Images: imgs}}
	default:
		return nil, errors.New("unknown payload shape " + string(p.Shape))
	}
	return json.Marshal(body)
}

// ---- legacy (/v2/ugcPosts) ----

type legacyText struct {
	Text string `json:"text"`
}

type legacyMedia struct {
	Status string      `json:"status"`
	Media  string      `json:"media"`
	Title  *legacyText `json:"title,omitempty"`
}

type legacyShareContent struct {
	ShareCommentary    legacyText    `json:"shareCommentary"`
	ShareMediaCategory string        `json:"shareMediaCategory"`
	Media              []legacyMedia `json:"media,omitempty"`
}

type legacySpecificContent struct {
	ShareContent legacyShareContent `json:"com.linkedin.ugc.ShareContent"`
}

type legacyVisibility struct {
	MemberNetworkVisibility string `json:"com.linkedin.ugc.MemberNetworkVisibility"`
}

type legacyPost struct {
	Author          string                `json:"author"`
	LifecycleState  string                `json:"lifecycleState"`
	SpecificContent legacySpecificContent `json:"specificContent"`
	Visibility      legacyVisibility      `json:"visibility"`
}

// EncodeLegacy renders p as a /v2/ugcPosts request body. Document payloads
// yield ErrLegacyUnsupported.
func EncodeLegacy(p Payload) ([]byte, error) {
	if !p.LegacyCompatible() {
		return nil, ErrLegacyUnsupported
	}
	share := legacyShareContent{
		ShareCommentary:    legacyText{Text: p.Commentary},
		ShareMediaCategory: "NONE",
	}
	if p.HasMedia() {
		share.ShareMediaCategory = "IMAGE"
		for _, m := range p.Media {
			lm := legacyMedia{Status: "READY", Media: m.URN}
			if m.Title != "" {
				lm.Title = &legacyText{Text: m.Title}
			}
			share.Media = append(share.Media, lm)
		}
	}
	body := legacyPost{
		Author:          p.Author,
		LifecycleState:  orDefault(p.LifecycleState, lifecyclePublish),
		SpecificContent: legacySpecificContent{ShareContent: share},
		Visibility:      legacyVisibility{MemberNetworkVisibility: orDefault(p.Visibility, visibilityPublic)},
	}
	return json.Marshal(body)
}

// Encode dispatches to the encoder for protocol.
func Encode(protocol Protocol, p Payload) ([]byte, error) {
	if protocol == ProtocolLegacy {
		return EncodeLegacy(p)
	}
	return EncodeModern(p)
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
