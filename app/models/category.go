package models

import (
	"time"

	"gorm.io/gorm"
)

// Category groups companies in the public directory (e.g. construction, dining, retail).
type Category struct {
	ID          string    `gorm:"type:char(36);primaryKey" json:"id"`
	Name        string    `gorm:"type:varchar(100);not null" json:"name" validate:"required,min=1,max=100"`
	Slug        string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"slug" validate:"required,slug,max=100"`
	Description *string   `gorm:"type:text;default:null" json:"description,omitempty"`
	GroupLabel  *string   `gorm:"type:varchar(100);default:null" json:"groupLabel,omitempty"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`

	Companies []Company `gorm:"foreignKey:CategoryID" json:"companies,omitempty"`
}

func (c *Category) BeforeCreate(tx *gorm.DB) error {
	ensureID(&c.ID)
	return nil
}

// CategoryWithCount is a category plus the number of active companies in it.
type CategoryWithCount struct {
	Category
	CompanyCount int64 `json:"companyCount"`
}
