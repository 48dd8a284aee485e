package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	SubscriptionStatusActive     = "active"
	SubscriptionStatusCancelling = "cancelling"
	SubscriptionStatusCancelled  = "cancelled"
	SubscriptionStatusPastDue    = "past_due"
)

// Subscription mirrors the payment provider's subscription for one company.
// Rows are never deleted; a cancelled subscription keeps its history.
type Subscription struct {
	ID                   string     `gorm:"type:char(36);primaryKey" json:"id"`
	CompanyID            string     `gorm:"type:char(36);not null;uniqueIndex" json:"companyId"`
	Plan                 string     `gorm:"type:varchar(50);not null;index" json:"plan"`
	Price                int64      `gorm:"not null" json:"price"`
	Status               string     `gorm:"type:varchar(20);not null;default:'active';index" json:"status"`
	CurrentPeriodStart   time.Time  `gorm:"type:timestamp;not null" json:"currentPeriodStart"`
	CurrentPeriodEnd     time.Time  `gorm:"type:timestamp;not null" json:"currentPeriodEnd"`
	StripeCustomerID     *string    `gorm:"type:varchar(191);uniqueIndex" json:"stripeCustomerId,omitempty"`
	StripeSubscriptionID *string    `gorm:"type:varchar(191);uniqueIndex" json:"stripeSubscriptionId,omitempty"`
	CancelledAt          *time.Time `gorm:"type:timestamp;default:null" json:"cancelledAt,omitempty"`
	CreatedAt            time.Time  `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt            time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`

	Company *Company `gorm:"foreignKey:CompanyID" json:"company,omitempty"`
}

func (s *Subscription) BeforeCreate(tx *gorm.DB) error {
	ensureID(&s.ID)
	return nil
}

// IsEntitling reports whether the subscription still grants plan features.
func (s *Subscription) IsEntitling() bool {
	switch s.Status {
	case SubscriptionStatusActive, SubscriptionStatusCancelling, SubscriptionStatusPastDue:
		return true
	}
	return false
}
