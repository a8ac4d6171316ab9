// Package domain defines the core persistence models for the application.
// These types are used by GORM for database schema mapping and are shared
// across the repository and service layers.
package domain

import "time"

// Idempotency records the outcome of a publish request made with an
// Idempotency-Key, keyed by (org_id, scheduled_post_id, key). A retried
// request with the same key is answered from this row instead of re-running
// the publish pipeline.
type Idempotency struct {
	ID              string     `gorm:"type:TEXT NOT NULL;primaryKey"`
	OrgID           string     `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_org_sched_key,priority:1"`
	ScheduledPostID string     `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_org_sched_key,priority:2"`
	Key             string     `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_org_sched_key,priority:3"`
	Status          PostStatus `gorm:"type:TEXT NOT NULL"`
	PlatformPostID  string     `gorm:"type:TEXT"`
	PlatformURL     string     `gorm:"type:TEXT"`
	ErrorMessage    string     `gorm:"type:TEXT"`
	CreatedAt       time.Time  `gorm:"not null;autoCreateTime"`
	ExpiresAt       time.Time  `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (Idempotency) TableName() string { return "idempotency" }
