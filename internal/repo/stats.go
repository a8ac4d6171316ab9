// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides small aggregate/statistics queries used
// primarily for conditional responses (e.g., ETag generation) in the HTTP
// layer. Each function is context-aware and safe to call from services or
// handlers.
package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/linkedin-publisher/internal/domain"
)

// ScheduledPostsStats returns aggregate metadata for an org's scheduled
// posts: the number of rows and the maximum UpdatedAt among them.
//
// When the org has no scheduled posts, the returned count is 0 and
// maxUpdatedAt is nil.
func ScheduledPostsStats(ctx context.Context, db *gorm.DB, orgID string) (count int64, maxUpdatedAt *time.Time, err error) {
	return latestStats(db.WithContext(ctx).Model(&domain.ScheduledPost{}).Where("org_id = ?", orgID))
}

// PostsStats returns aggregate metadata for an org's published posts: the
// number of rows and the maximum UpdatedAt among them. Engagement syncs bump
// UpdatedAt, so the pair changes whenever counters change.
func PostsStats(ctx context.Context, db *gorm.DB, orgID string) (count int64, maxUpdatedAt *time.Time, err error) {
	return latestStats(db.WithContext(ctx).Model(&domain.Post{}).Where("org_id = ?", orgID))
}

func latestStats(q *gorm.DB) (count int64, maxUpdatedAt *time.Time, err error) {
	// Count
	if err = q.Session(&gorm.Session{}).Count(&count).Error; err != nil {
		return 0, nil, err
	}
	if count == 0 {
		return 0, nil, nil
	}

	// Get latest updated_at (avoid MAX() -> TEXT in SQLite)
	var row struct {
		UpdatedAt time.Time
	}
	if err = q.Session(&gorm.Session{}).Select("updated_at").Order("updated_at DESC").Limit(1).Scan(&row).Error; err != nil {
		return 0, nil, err
	}
	return count, &row.UpdatedAt, nil
}
