// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for published Post
// rows and their AIGeneratedPost siblings.
package repo

import (
	"context"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/linkedin-publisher/internal/domain"
)

// GetPostByScheduledPostID returns the Post created for a scheduled post.
func GetPostByScheduledPostID(ctx context.Context, db *gorm.DB, scheduledPostID string) (*domain.Post, error) {
	var p domain.Post
	if err := db.WithContext(ctx).Where("scheduled_post_id = ?", scheduledPostID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// CountPosts returns the number of published posts for orgID.
func CountPosts(ctx context.Context, db *gorm.DB, orgID string) (int64, error) {
	var total int64
	err := db.WithContext(ctx).Model(&domain.Post{}).Where("org_id = ?", orgID).Count(&total).Error
	return total, err
}

// ListPostsPage returns a page of orgID's published posts, newest first.
func ListPostsPage(ctx context.Context, db *gorm.DB, orgID string, offset, limit int) ([]domain.Post, error) {
	var out []domain.Post
	err := db.WithContext(ctx).
		Where("org_id = ?", orgID).
		Order("posted_at desc").
		Offset(offset).
		Limit(limit).
		Find(&out).Error
	return out, err
}

// ListSyncablePosts returns orgID's posts that carry a platform identity.
func ListSyncablePosts(ctx context.Context, db *gorm.DB, orgID string) ([]domain.Post, error) {
	var out []domain.Post
	err := db.WithContext(ctx).
		Where("org_id = ? AND platform_post_id <> ''", orgID).
		Find(&out).Error
	return out, err
}

// UpdatePostEngagement writes engagement counters onto one Post row. Only the
// counters and synced_at change.
func UpdatePostEngagement(ctx context.Context, db *gorm.DB, id string, reactions, comments int, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Post{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"reactions": reactions,
			"comments":  comments,
			"synced_at": at,
		}).Error
}

// ListPostedGeneratedPosts returns orgID's posted AI-generated posts that
// carry a platform identity.
func ListPostedGeneratedPosts(ctx context.Context, db *gorm.DB, orgID string) ([]domain.AIGeneratedPost, error) {
	var out []domain.AIGeneratedPost
	err := db.WithContext(ctx).
		Where("org_id = ? AND status = ? AND platform_post_id <> ''", orgID, domain.StatusPosted).
		Find(&out).Error
	return out, err
}

// UpdateGeneratedPostEngagement writes engagement counters onto one
// AIGeneratedPost row.
func UpdateGeneratedPostEngagement(ctx context.Context, db *gorm.DB, id string, reactions, comments int, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.AIGeneratedPost{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"reactions": reactions,
			"comments":  comments,
			"synced_at": at,
		}).Error
}

// ListOrgsWithPublishedPosts returns the sorted, distinct org ids that own at
// least one record with a platform identity across posts, posted scheduled
// posts and posted AI-generated posts.
func ListOrgsWithPublishedPosts(ctx context.Context, db *gorm.DB) ([]string, error) {
	seen := map[string]struct{}{}
	queries := []*gorm.DB{
		db.WithContext(ctx).Model(&domain.Post{}).Where("platform_post_id <> ''"),
		db.WithContext(ctx).Model(&domain.ScheduledPost{}).Where("status = ? AND platform_post_id <> ''", domain.StatusPosted),
		db.WithContext(ctx).Model(&domain.AIGeneratedPost{}).Where("status = ? AND platform_post_id <> ''", domain.StatusPosted),
	}
	for _, q := range queries {
		var ids []string
		if err := q.Distinct().Pluck("org_id", &ids).Error; err != nil {
			return nil, err
		}
		for _, id := range ids {
			seen[id] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for id := range seen {
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}
