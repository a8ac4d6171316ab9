package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/linkedin-publisher/internal/domain"
	"github.com/tbourn/linkedin-publisher/internal/repo"
)

// Credentials is the resolved auth and author identity for one account.
type Credentials struct {
	AccessToken string
	ExpiresAt   *time.Time
	AuthorID    string
	AuthorKind  domain.AuthorKind
}

// AuthorURN returns the author URN derived from the credential identity.
func (c Credentials) AuthorURN() string {
	return c.AuthorKind.URN(c.AuthorID)
}

// CredentialProvider resolves credentials for an organization or user id.
// Implementations return ErrNotConnected when no valid token exists.
type CredentialProvider interface {
	Credentials(ctx context.Context, accountID string) (*Credentials, error)
}

// StoreCredentialProvider reads credentials from the linkedin_credentials
// table and rejects blank or expired tokens.
type StoreCredentialProvider struct {
	DB  *gorm.DB
	Now func() time.Time
}

// Credentials implements CredentialProvider.
func (p *StoreCredentialProvider) Credentials(ctx context.Context, accountID string) (*Credentials, error) {
	c, err := repo.GetCredential(ctx, p.DB, accountID)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	if p.Now != nil {
		now = p.Now()
	}
	if !c.Valid(now) {
		return nil, ErrNotConnected
	}
	kind := c.AuthorKind
	if kind == "" {
		kind = domain.KindPerson
	}
	return &Credentials{
		AccessToken: c.AccessToken,
		ExpiresAt:   c.ExpiresAt,
		AuthorID:    c.AuthorID,
		AuthorKind:  kind,
	}, nil
}

// resolveAuthor picks the author identity for a draft. An explicit draft
// author overrides the credential identity; company pages publish as
// organizations. A draft author without a type takes its kind from a full
// URN id, else from the credential. An unrecognized type is a compose error.
func resolveAuthor(d *domain.Draft, c *Credentials) (string, domain.AuthorKind, error) {
	if d == nil || strings.TrimSpace(d.AuthorID) == "" {
		return c.AuthorURN(), c.AuthorKind, nil
	}
	id := strings.TrimSpace(d.AuthorID)
	kind, ok := d.AuthorType.Kind()
	switch {
	case ok:
	case strings.TrimSpace(string(d.AuthorType)) != "":
		return "", "", &ComposeError{Detail: fmt.Sprintf("unknown linkedin author type %q", d.AuthorType)}
	case strings.HasPrefix(id, "urn:li:organization:"):
		kind = domain.KindOrganization
	case strings.HasPrefix(id, "urn:li:person:"):
		kind = domain.KindPerson
	default:
		kind = c.AuthorKind
	}
	return kind.URN(id), kind, nil
}
