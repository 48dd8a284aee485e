package models

import (
	"time"

	"gorm.io/gorm"
)

// Company is a business listed in the directory. Operators of a company log in
// through a User with role business.
type Company struct {
	ID                      string     `gorm:"type:char(36);primaryKey" json:"id"`
	Name                    string     `gorm:"type:varchar(200);not null;index" json:"name"`
	Email                   string     `gorm:"type:varchar(200);not null" json:"email"`
	Phone                   string     `gorm:"type:varchar(30);not null" json:"phone"`
	Description             *string    `gorm:"type:text;default:null" json:"description,omitempty"`
	Address                 string     `gorm:"type:varchar(255);not null" json:"address"`
	CategoryID              string     `gorm:"type:char(36);not null;index" json:"categoryId"`
	IsActive                bool       `gorm:"not null;default:true;index" json:"isActive"`
	InstagramHandle         *string    `gorm:"type:varchar(100);default:null" json:"instagramHandle,omitempty"`
	InstagramToken          *string    `gorm:"type:text;default:null" json:"-"`
	InstagramTokenExpiresAt *time.Time `gorm:"type:timestamp;default:null" json:"instagramTokenExpiresAt,omitempty"`
	SubscriptionPlan        *string    `gorm:"type:varchar(50);default:null" json:"subscriptionPlan,omitempty"`
	CreatedAt               time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt               time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`

	Category     *Category     `gorm:"foreignKey:CategoryID" json:"category,omitempty"`
	Services     []Service     `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"services,omitempty"`
	ContentPosts []ContentPost `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"instagramPosts,omitempty"`
	Subscription *Subscription `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"subscription,omitempty"`
}

func (c *Company) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// HasInstagram reports whether the company stored an Instagram access token.
func (c *Company) HasInstagram() bool {
	return c.InstagramToken != nil && *c.InstagramToken != ""
}

// CompanyCounts holds relation counts shown next to a company.
type CompanyCounts struct {
	Services       int64 `json:"services"`
	Inquiries      int64 `json:"inquiries"`
	InstagramPosts int64 `json:"instagramPosts"`
}

// CompanyWithCounts is a company enriched with its relation counts.
type CompanyWithCounts struct {
	Company
	Count CompanyCounts `json:"_count"`
}
