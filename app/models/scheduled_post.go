package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ScheduledPostStatusPending   = "pending"
	ScheduledPostStatusPublished = "published"
	ScheduledPostStatusFailed    = "failed"
	ScheduledPostStatusCancelled = "cancelled"
)

// ScheduledPostMaxAttempts bounds publishing retries before a post is marked failed.
const ScheduledPostMaxAttempts = 3

// ScheduledPost is an Instagram post queued for publishing at a later time.
type ScheduledPost struct {
	ID           string         `gorm:"type:char(36);primaryKey" json:"id"`
	CompanyID    string         `gorm:"type:char(36);not null;index" json:"companyId"`
	ImageURL     string         `gorm:"type:varchar(1000);not null" json:"imageUrl"`
	Caption      string         `gorm:"type:text;not null" json:"caption"`
	ScheduledFor time.Time      `gorm:"type:timestamp;not null;index:idx_scheduled_posts_due,priority:2" json:"scheduledFor"`
	Status       string         `gorm:"type:varchar(20);not null;default:'pending';index:idx_scheduled_posts_due,priority:1" json:"status"`
	RemotePostID *string        `gorm:"type:varchar(100);default:null" json:"remotePostId,omitempty"`
	Permalink    *string        `gorm:"type:varchar(500);default:null" json:"permalink,omitempty"`
	LastError    *string        `gorm:"type:text;default:null" json:"lastError,omitempty"`
	Attempts     int            `gorm:"not null;default:0" json:"attempts"`
	Metadata     datatypes.JSON `gorm:"type:json" json:"metadata,omitempty"`
	PublishedAt  *time.Time     `gorm:"type:timestamp;default:null" json:"publishedAt,omitempty"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (p *ScheduledPost) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
