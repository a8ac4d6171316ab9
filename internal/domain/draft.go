package domain

import (
	"strings"
	"time"
)

// AssetKind is the media type of a draft asset.
type AssetKind string

const (
	AssetImage    AssetKind = "image"
	AssetDocument AssetKind = "document"
)

// AuthorType is the LinkedIn identity a draft is published as.
type AuthorType string

const (
	AuthorPersonal     AuthorType = "personal"
	AuthorOrganization AuthorType = "organization"
	AuthorCompany      AuthorType = "company"
)

// AuthorKind is the URN kind used by the platform for an author or asset owner.
type AuthorKind string

const (
	KindPerson       AuthorKind = "person"
	KindOrganization AuthorKind = "organization"
)

// Kind maps a draft author type to the platform URN kind. Company pages are
// organizations on the platform side. ok is false for a blank or unknown type.
func (t AuthorType) Kind() (AuthorKind, bool) {
	switch AuthorType(strings.ToLower(strings.TrimSpace(string(t)))) {
	case AuthorOrganization, AuthorCompany:
		return KindOrganization, true
	case AuthorPersonal:
		return KindPerson, true
	default:
		return "", false
	}
}

// URN builds the owner/author URN for id ("urn:li:person:<id>" or
// "urn:li:organization:<id>"). An id that already is a URN is returned as-is.
func (k AuthorKind) URN(id string) string {
	id = strings.TrimSpace(id)
	if strings.HasPrefix(id, "urn:") {
		return id
	}
	if k == KindOrganization {
		return "urn:li:organization:" + id
	}
	return "urn:li:person:" + id
}

// DraftContent is the textual body of a draft.
type DraftContent struct {
	Body     string   `json:"body"`
	Hashtags []string `json:"hashtags,omitempty"`
}

// DraftAsset references one media item by source URL (plain URL or data URI).
type DraftAsset struct {
	Type AssetKind `json:"type"`
	URL  string    `json:"url"`
}

// Draft is the content payload produced by the campaign layer. It is treated
// as immutable once a scheduled post referencing it is dispatched.
type Draft struct {
	ID         string       `json:"id"          gorm:"type:varchar(64);primaryKey"`
	OrgID      string       `json:"org_id"      gorm:"type:varchar(64);not null;index"`
	Content    DraftContent `json:"content"     gorm:"type:text;serializer:json"`
	Assets     []DraftAsset `json:"assets"      gorm:"type:text;serializer:json"`
	AuthorType AuthorType   `json:"linkedin_author_type" gorm:"column:linkedin_author_type;type:varchar(16)"`
	AuthorID   string       `json:"linkedin_author_id"   gorm:"column:linkedin_author_id;type:varchar(128)"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// TableName returns the database table name for Draft.
func (Draft) TableName() string { return "drafts" }

// AssetReference is the platform handle for one uploaded media item. It lives
// only for the duration of a single publish attempt and is never persisted.
type AssetReference struct {
	SourceURL   string
	PlatformURN string
	ContentType string
	Kind        AssetKind
}

// Credential is a stored LinkedIn connection for an organization or user.
type Credential struct {
	ID          string     `json:"id"          gorm:"type:char(36);primaryKey"`
	AccountID   string     `json:"account_id"  gorm:"type:varchar(64);not null;uniqueIndex"`
	AccessToken string     `json:"-"           gorm:"type:text;not null"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	AuthorID    string     `json:"author_id"   gorm:"type:varchar(128);not null"`
	AuthorKind  AuthorKind `json:"author_kind" gorm:"type:varchar(16);not null"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Credential.
func (Credential) TableName() string { return "linkedin_credentials" }

// Valid reports whether the credential carries a token that has not expired at now.
func (c *Credential) Valid(now time.Time) bool {
	if c == nil || strings.TrimSpace(c.AccessToken) == "" {
		return false
	}
	return c.ExpiresAt == nil || c.ExpiresAt.After(now)
}
