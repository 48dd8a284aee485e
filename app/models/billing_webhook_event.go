package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const BillingProviderStripe = "stripe"

// BillingWebhookEvent stores provider webhook payloads with deduplication
// metadata for idempotent processing.
type BillingWebhookEvent struct {
	ID              string         `gorm:"type:char(36);primaryKey" json:"id"`
	Provider        string         `gorm:"type:varchar(20);not null;index:ux_billing_webhook_events_provider_event,unique,priority:1;index" json:"provider"`
	ProviderEventID string         `gorm:"type:varchar(191);not null;default:'';index:ux_billing_webhook_events_provider_event,unique,priority:2" json:"providerEventId"`
	EventType       string         `gorm:"type:varchar(100);not null;index" json:"eventType"`
	Payload         datatypes.JSON `gorm:"type:json;not null" json:"payload"`
	SignatureValid  bool           `gorm:"default:false;index" json:"signatureValid"`
	ProcessedAt     *time.Time     `gorm:"type:timestamp;default:null" json:"processedAt,omitempty"`
	ProcessingError string         `gorm:"type:text" json:"processingError"`
	CreatedAt       time.Time      `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt       time.Time      `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (e *BillingWebhookEvent) BeforeCreate(tx *gorm.DB) error {
	ensureID(&e.ID)
	return nil
}
