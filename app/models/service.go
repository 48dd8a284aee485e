package models

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Service is an offering of a company with a price range in yen.
type Service struct {
	ID          string              `gorm:"type:char(36);primaryKey" json:"id"`
	CompanyID   string              `gorm:"type:char(36);not null;index" json:"companyId"`
	Name        string              `gorm:"type:varchar(200);not null" json:"name"`
	Description string              `gorm:"type:text;not null" json:"description"`
	PriceFrom   decimal.Decimal     `gorm:"type:decimal(12,0);not null" json:"priceFrom"`
	PriceTo     decimal.NullDecimal `gorm:"type:decimal(12,0);default:null" json:"priceTo"`
	Unit        *string             `gorm:"type:varchar(50);default:null" json:"unit,omitempty"`
	IsActive    bool                `gorm:"not null;default:true;index" json:"isActive"`
	CreatedAt   time.Time           `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time           `gorm:"autoUpdateTime" json:"updatedAt"`

	Company *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}

func (s *Service) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}
