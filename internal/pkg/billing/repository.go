package billing

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/Tochigi/app/models"
)

// Repository provides DB operations used by the billing service.
type Repository interface {
	GetCompany(id string) (*models.Company, error)
	GetSubscriptionByCompany(companyID string) (*models.Subscription, error)
	GetSubscriptionByStripeID(stripeSubscriptionID string) (*models.Subscription, error)
	GetSubscriptionByCustomer(stripeCustomerID string) (*models.Subscription, error)
	UpsertSubscription(sub *models.Subscription) error
	UpdateSubscription(id string, updates map[string]interface{}) error
	ChangeSubscriptionPlan(sub *models.Subscription, updates map[string]interface{}, plan string) error
	CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkWebhookProcessed(id string, processingError string) error
}

type gormRepository struct {
	db *gorm.DB
}

// NewRepository creates a billing repository backed by GORM.
func NewRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) GetCompany(id string) (*models.Company, error) {
	var c models.Company
	if err := r.db.Where("id = ?", id).First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *gormRepository) GetSubscriptionByCompany(companyID string) (*models.Subscription, error) {
	return r.findSubscription("company_id = ?", companyID)
}

func (r *gormRepository) GetSubscriptionByStripeID(stripeSubscriptionID string) (*models.Subscription, error) {
	return r.findSubscription("stripe_subscription_id = ?", stripeSubscriptionID)
}

func (r *gormRepository) GetSubscriptionByCustomer(stripeCustomerID string) (*models.Subscription, error) {
	return r.findSubscription("stripe_customer_id = ?", stripeCustomerID)
}

func (r *gormRepository) findSubscription(query string, arg string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := r.db.Where(query, arg).First(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}

// UpsertSubscription inserts or replaces the subscription of sub.CompanyID and
// mirrors the plan onto the company in the same transaction.
func (r *gormRepository) UpsertSubscription(sub *models.Subscription) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "company_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"plan",
				"price",
				"status",
				"current_period_start",
				"current_period_end",
				"stripe_customer_id",
				"stripe_subscription_id",
				"cancelled_at",
				"updated_at",
			}),
		}).Create(sub).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Company{}).Where("id = ?", sub.CompanyID).
			Update("subscription_plan", sub.Plan).Error; err != nil {
			return err
		}

		// Re-read so the caller sees the persisted ID after a conflict update.
		var stored models.Subscription
		if err := tx.Where("company_id = ?", sub.CompanyID).First(&stored).Error; err != nil {
			return err
		}
		*sub = stored
		return nil
	})
}

func (r *gormRepository) UpdateSubscription(id string, updates map[string]interface{}) error {
	return r.db.Model(&models.Subscription{}).Where("id = ?", id).Updates(updates).Error
}

func (r *gormRepository) ChangeSubscriptionPlan(sub *models.Subscription, updates map[string]interface{}, plan string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Subscription{}).Where("id = ?", sub.ID).Updates(updates).Error; err != nil {
			return err
		}
		return tx.Model(&models.Company{}).Where("id = ?", sub.CompanyID).
			Update("subscription_plan", plan).Error
	})
}

func (r *gormRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	tx := r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "provider"},
			{Name: "provider_event_id"},
		},
		DoNothing: true,
	}).Create(event)
	if tx.Error != nil {
		return false, nil, tx.Error
	}

	created := tx.RowsAffected > 0
	var stored models.BillingWebhookEvent
	if err := r.db.Where("provider = ? AND provider_event_id = ?", event.Provider, event.ProviderEventID).
		First(&stored).Error; err != nil {
		return false, nil, err
	}
	return created, &stored, nil
}

func (r *gormRepository) MarkWebhookProcessed(id string, processingError string) error {
	now := time.Now()
	updates := map[string]interface{}{
		"processed_at":     &now,
		"processing_error": processingError,
	}
	return r.db.Model(&models.BillingWebhookEvent{}).Where("id = ?", id).Updates(updates).Error
}
