// Package domain defines the persistence models for scheduled posts, drafts,
// published posts and the credentials used to publish them. These types are
// mapped with GORM and form the core data layer of the publisher.
package domain

import (
	"time"
)

// PostStatus is the lifecycle state of a ScheduledPost.
type PostStatus string

const (
	StatusScheduled PostStatus = "scheduled"
	StatusQueued    PostStatus = "queued"
	StatusPosting   PostStatus = "posting"
	StatusPosted    PostStatus = "posted"
	StatusFailed    PostStatus = "failed"
	StatusCancelled PostStatus = "cancelled"
)

// Dispatchable reports whether a post in this state may be claimed for publishing.
func (s PostStatus) Dispatchable() bool {
	return s == StatusScheduled || s == StatusQueued
}

// Terminal reports whether no further transition is allowed.
func (s PostStatus) Terminal() bool {
	return s == StatusPosted || s == StatusCancelled
}

// CanTransition reports whether the lifecycle allows moving from s to next.
//
//	scheduled|queued -> posting -> posted|failed
//	scheduled|queued -> cancelled
//	failed           -> queued      (external retry decision)
func (s PostStatus) CanTransition(next PostStatus) bool {
	switch s {
	case StatusScheduled, StatusQueued:
		return next == StatusPosting || next == StatusCancelled
	case StatusPosting:
		return next == StatusPosted || next == StatusFailed
	case StatusFailed:
		return next == StatusQueued
	default:
		return false
	}
}

// ScheduledPost is the unit of publishing work. It is created by the
// campaign/draft layer and mutated by the publish pipeline (state, outcome)
// and by reconciliation (engagement counters).
//
// Fields:
//   - ID: caller-assigned identifier.
//   - DraftID / OrgID: the content and the owning organization.
//   - IdempotencyKey: unique per publish intent; stored for audit only.
//   - PublishTime / Timezone: when the post becomes due.
//   - Status / Retries / MaxRetries / ErrorMessage: lifecycle bookkeeping.
//   - PlatformPostID / PlatformURL: set only once status is posted.
//   - Reactions / Comments: engagement mirrored by reconciliation.
type ScheduledPost struct {
	ID             string     `json:"id"               gorm:"type:varchar(64);primaryKey"`
	DraftID        string     `json:"draft_id"         gorm:"type:varchar(64);not null;index"`
	OrgID          string     `json:"org_id"           gorm:"type:varchar(64);not null;index:idx_sched_org_status,priority:1"`
	IdempotencyKey string     `json:"idempotency_key"  gorm:"type:varchar(200);not null;uniqueIndex"`
	PublishTime    time.Time  `json:"publish_time"     gorm:"not null;index:idx_sched_due,priority:2"`
	Timezone       string     `json:"timezone"         gorm:"type:varchar(64);not null;default:'UTC'"`
	Status         PostStatus `json:"status"           gorm:"type:varchar(16);not null;default:'scheduled';index:idx_sched_org_status,priority:2;index:idx_sched_due,priority:1"`
	Retries        int        `json:"retries"          gorm:"not null;default:0"`
	MaxRetries     int        `json:"max_retries"      gorm:"not null;default:3"`
	ErrorMessage   *string    `json:"error_message,omitempty" gorm:"type:text"`
	PlatformPostID string     `json:"platform_post_id,omitempty" gorm:"type:varchar(255);index"`
	PlatformURL    string     `json:"platform_url,omitempty"     gorm:"type:varchar(512)"`
	PostedAt       *time.Time `json:"posted_at,omitempty"`
	Reactions      int        `json:"reactions"        gorm:"not null;default:0"`
	Comments       int        `json:"comments"         gorm:"not null;default:0"`
	SyncedAt       *time.Time `json:"synced_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName returns the database table name for ScheduledPost.
func (ScheduledPost) TableName() string { return "scheduled_posts" }

// Post is the durable record of a successful publish. It is created exactly
// once per scheduled post; only the engagement counters change afterwards.
type Post struct {
	ID              string     `json:"id"                gorm:"type:char(36);primaryKey"`
	ScheduledPostID string     `json:"scheduled_post_id" gorm:"type:varchar(64);not null;uniqueIndex"`
	OrgID           string     `json:"org_id"            gorm:"type:varchar(64);not null;index"`
	PlatformPostID  string     `json:"platform_post_id"  gorm:"type:varchar(255);not null;index"`
	PlatformURL     string     `json:"platform_url"      gorm:"type:varchar(512)"`
	Unidentified    bool       `json:"unidentified"      gorm:"not null;default:false"`
	PostedAt        time.Time  `json:"posted_at"         gorm:"not null"`
	Impressions     int        `json:"impressions"       gorm:"not null;default:0"`
	Reactions       int        `json:"reactions"         gorm:"not null;default:0"`
	Comments        int        `json:"comments"          gorm:"not null;default:0"`
	Shares          int        `json:"shares"            gorm:"not null;default:0"`
	Clicks          int        `json:"clicks"            gorm:"not null;default:0"`
	SyncedAt        *time.Time `json:"synced_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`

	ScheduledPost ScheduledPost `json:"-" gorm:"foreignKey:ScheduledPostID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for Post.
func (Post) TableName() string { return "posts" }

// AIGeneratedPost mirrors a post produced by the campaign pipeline. When it has
// been published it carries the same platform post id as its ScheduledPost and
// Post siblings and receives its own copy of the engagement counters.
type AIGeneratedPost struct {
	ID             string     `json:"id"               gorm:"type:varchar(64);primaryKey"`
	OrgID          string     `json:"org_id"           gorm:"type:varchar(64);not null;index:idx_gen_org_status,priority:1"`
	CampaignID     string     `json:"campaign_id"      gorm:"type:varchar(64);index"`
	Content        string     `json:"content"          gorm:"type:text"`
	Status         PostStatus `json:"status"           gorm:"type:varchar(16);not null;index:idx_gen_org_status,priority:2"`
	PlatformPostID string     `json:"platform_post_id,omitempty" gorm:"type:varchar(255);index"`
	Reactions      int        `json:"reactions"        gorm:"not null;default:0"`
	Comments       int        `json:"comments"         gorm:"not null;default:0"`
	SyncedAt       *time.Time `json:"synced_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// TableName returns the database table name for AIGeneratedPost.
func (AIGeneratedPost) TableName() string { return "ai_generated_posts" }
