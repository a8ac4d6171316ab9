// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ScheduledPost model.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations.
// They follow the "thin repository" approach: no business logic beyond the
// conditional updates that encode lifecycle guards in the WHERE clause.
//
// Error semantics:
//   - When a scheduled post is not found, functions return
//     gorm.ErrRecordNotFound (exported here as ErrNotFound).
//   - Conditional updates that match no row report false (or ErrConflict
//     for MarkPosted/MarkFailed) rather than an error.
//   - On DB errors the raw gorm error is propagated.
//
// Functions:
//
//   - GetScheduledPost(ctx, db, id) -> *domain.ScheduledPost, error
//   - CountScheduledPosts / ListScheduledPostsPage(ctx, db, orgID, status, ...)
//   - ListDueScheduledPosts(ctx, db, now, limit)
//     Posts in scheduled|queued whose publish_time has passed, oldest first.
//   - ClaimScheduledPost(ctx, db, id) -> bool, error
//     scheduled|queued -> posting; only one caller can win.
//   - MarkPosted(ctx, db, sp, res) -> *domain.Post, error
//     posting -> posted and Post insert in one transaction.
//   - MarkFailed(ctx, db, id, msg) -> error
//   - CancelScheduledPost(ctx, db, id) -> bool, error
//   - ListRetryableFailed / RequeueScheduledPost
//     failed -> queued while retries < max_retries.
package repo

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/linkedin-publisher/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer and handlers.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrConflict is returned when a conditional state update matched no row
// because the record is not in the expected state.
var ErrConflict = errors.New("state conflict")

// dispatchable lists the states a post can be claimed or cancelled from.
var dispatchable = []domain.PostStatus{domain.StatusScheduled, domain.StatusQueued}

// PostedResult carries the platform identity of a successful publish.
type PostedResult struct {
	PlatformPostID string
	PlatformURL    string
	Unidentified   bool
	PostedAt       time.Time
}

// GetScheduledPost fetches a scheduled post by id or returns ErrNotFound.
func GetScheduledPost(ctx context.Context, db *gorm.DB, id string) (*domain.ScheduledPost, error) {
	var sp domain.ScheduledPost
	if err := db.WithContext(ctx).Where("id = ?", id).First(&sp).Error; err != nil {
		return nil, err
	}
	return &sp, nil
}

func orgScope(db *gorm.DB, orgID string, status domain.PostStatus) *gorm.DB {
	q := db.Model(&domain.ScheduledPost{}).Where("org_id = ?", orgID)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	return q
}

// CountScheduledPosts returns how many scheduled posts orgID owns, optionally
// filtered by status.
func CountScheduledPosts(ctx context.Context, db *gorm.DB, orgID string, status domain.PostStatus) (int64, error) {
	var total int64
	err := orgScope(db.WithContext(ctx), orgID, status).Count(&total).Error
	return total, err
}

// ListScheduledPostsPage returns a page of orgID's scheduled posts ordered by
// publish time descending.
func ListScheduledPostsPage(ctx context.Context, db *gorm.DB, orgID string, status domain.PostStatus, offset, limit int) ([]domain.ScheduledPost, error) {
	var out []domain.ScheduledPost
	err := orgScope(db.WithContext(ctx), orgID, status).
		Order("publish_time desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListDueScheduledPosts returns up to limit dispatchable posts whose
// publish_time is at or before now, oldest first.
func ListDueScheduledPosts(ctx context.Context, db *gorm.DB, now time.Time, limit int) ([]domain.ScheduledPost, error) {
	var out []domain.ScheduledPost
	err := db.WithContext(ctx).
		Where("status IN ? AND publish_time <= ?", dispatchable, now).
		Order("publish_time asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ClaimScheduledPost moves a post from scheduled|queued to posting. It
// reports false when no row matched, meaning another caller already claimed
// it or it is no longer dispatchable.
func ClaimScheduledPost(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.ScheduledPost{}).
		Where("id = ? AND status IN ?", id, dispatchable).
		Updates(map[string]any{
			"status":        domain.StatusPosting,
			"error_message": nil,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkPosted records a successful publish: the scheduled post moves from
// posting to posted with its platform identity, and the Post row is created.
// Both writes share one transaction.
func MarkPosted(ctx context.Context, db *gorm.DB, sp *domain.ScheduledPost, res PostedResult) (*domain.Post, error) {
	if res.PostedAt.IsZero() {
		res.PostedAt = time.Now().UTC()
	}
	post := &domain.Post{
		ID:              uuid.NewString(),
		ScheduledPostID: sp.ID,
		OrgID:           sp.OrgID,
		PlatformPostID:  res.PlatformPostID,
		PlatformURL:     res.PlatformURL,
		Unidentified:    res.Unidentified,
		PostedAt:        res.PostedAt,
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		upd := tx.Model(&domain.ScheduledPost{}).
			Where("id = ? AND status = ?", sp.ID, domain.StatusPosting).
			Updates(map[string]any{
				"status":           domain.StatusPosted,
				"platform_post_id": res.PlatformPostID,
				"platform_url":     res.PlatformURL,
				"posted_at":        res.PostedAt,
				"error_message":    nil,
			})
		if upd.Error != nil {
			return upd.Error
		}
		if upd.RowsAffected == 0 {
			return ErrConflict
		}
		return tx.Create(post).Error
	})
	if err != nil {
		return nil, err
	}
	return post, nil
}

// MarkFailed moves a post from posting to failed and stores msg.
func MarkFailed(ctx context.Context, db *gorm.DB, id, msg string) error {
	res := db.WithContext(ctx).
		Model(&domain.ScheduledPost{}).
		Where("id = ? AND status = ?", id, domain.StatusPosting).
		Updates(map[string]any{
			"status":        domain.StatusFailed,
			"error_message": msg,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrConflict
	}
	return nil
}

// CancelScheduledPost moves a post from scheduled|queued to cancelled. It
// reports false when the post is in any other state.
func CancelScheduledPost(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.ScheduledPost{}).
		Where("id = ? AND status IN ?", id, dispatchable).
		Update("status", domain.StatusCancelled)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListRetryableFailed returns up to limit failed posts that still have retry
// budget left.
func ListRetryableFailed(ctx context.Context, db *gorm.DB, limit int) ([]domain.ScheduledPost, error) {
	var out []domain.ScheduledPost
	err := db.WithContext(ctx).
		Where("status = ? AND retries < max_retries", domain.StatusFailed).
		Order("updated_at asc").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// RequeueScheduledPost moves a failed post back to queued and increments its
// retry counter, provided retries < max_retries.
func RequeueScheduledPost(ctx context.Context, db *gorm.DB, id string) (bool, error) {
	res := db.WithContext(ctx).
		Model(&domain.ScheduledPost{}).
		Where("id = ? AND status = ? AND retries < max_retries", id, domain.StatusFailed).
		Updates(map[string]any{
			"status":  domain.StatusQueued,
			"retries": gorm.Expr("retries + 1"),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ListPostedScheduledPosts returns orgID's posted scheduled posts that carry a
// platform identity.
func ListPostedScheduledPosts(ctx context.Context, db *gorm.DB, orgID string) ([]domain.ScheduledPost, error) {
	var out []domain.ScheduledPost
	err := db.WithContext(ctx).
		Where("org_id = ? AND status = ? AND platform_post_id <> ''", orgID, domain.StatusPosted).
		Find(&out).Error
	return out, err
}

// UpdateScheduledPostEngagement writes mirrored engagement counters.
func UpdateScheduledPostEngagement(ctx context.Context, db *gorm.DB, id string, reactions, comments int, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.ScheduledPost{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"reactions": reactions,
			"comments":  comments,
			"synced_at": at,
		}).Error
}
