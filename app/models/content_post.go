package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	MediaTypeImage    = "IMAGE"
	MediaTypeVideo    = "VIDEO"
	MediaTypeCarousel = "CAROUSEL_ALBUM"
)

// ContentPost caches one Instagram post of a company, keyed by the remote post id.
type ContentPost struct {
	ID            string    `gorm:"type:char(36);primaryKey" json:"id"`
	CompanyID     string    `gorm:"type:char(36);not null;index" json:"companyId"`
	PostID        string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"postId"`
	Caption       *string   `gorm:"type:text;default:null" json:"caption,omitempty"`
	MediaURL      string    `gorm:"type:text;not null" json:"mediaUrl"`
	MediaType     string    `gorm:"type:varchar(20);not null" json:"mediaType"`
	Permalink     string    `gorm:"type:varchar(500);not null" json:"permalink"`
	Timestamp     time.Time `gorm:"type:timestamp;not null;index" json:"timestamp"`
	LikesCount    int       `gorm:"not null;default:0" json:"likesCount"`
	CommentsCount int       `gorm:"not null;default:0" json:"commentsCount"`
	MirroredURL   *string   `gorm:"type:varchar(500);default:null" json:"mirroredUrl,omitempty"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	Company *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}

func (p *ContentPost) BeforeCreate(tx *gorm.DB) error {
	ensureID(&p.ID)
	return nil
}
