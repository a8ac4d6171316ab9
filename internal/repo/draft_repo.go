// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides lookups for the records produced by
// external collaborators: drafts and LinkedIn credentials.
package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/linkedin-publisher/internal/domain"
)

// GetDraft fetches a draft by id or returns ErrNotFound.
func GetDraft(ctx context.Context, db *gorm.DB, id string) (*domain.Draft, error) {
	var d domain.Draft
	if err := db.WithContext(ctx).Where("id = ?", id).First(&d).Error; err != nil {
		return nil, err
	}
	return &d, nil
}

// GetCredential fetches the stored LinkedIn credential for an account (an
// organization or user id) or returns ErrNotFound.
func GetCredential(ctx context.Context, db *gorm.DB, accountID string) (*domain.Credential, error) {
	if strings.TrimSpace(accountID) == "" {
		return nil, ErrNotFound
	}
	var c domain.Credential
	if err := db.WithContext(ctx).Where("account_id = ?", accountID).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// UpsertCredential inserts or replaces the credential stored for
// c.AccountID. A missing ID is generated.
func UpsertCredential(ctx context.Context, db *gorm.DB, c *domain.Credential) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"access_token", "expires_at", "author_id", "author_kind", "updated_at"}),
	}).Create(c).Error
}
