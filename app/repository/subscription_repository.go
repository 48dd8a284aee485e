package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/Tochigi/app/models"
)

// subscriptionRepository implements the SubscriptionRepository interface.
// Writes go through billing.Repository.
type subscriptionRepository struct {
	db *gorm.DB
}

// NewSubscriptionRepository creates a new subscription repository instance
func NewSubscriptionRepository(db *gorm.DB) SubscriptionRepository {
	return &subscriptionRepository{db: db}
}

func (r *subscriptionRepository) ListActive() ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Where("status = ?", models.SubscriptionStatusActive).Find(&subs).Error
	return subs, err
}

// CreatedBefore returns every subscription created before t, oldest first.
func (r *subscriptionRepository) CreatedBefore(t time.Time) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Where("created_at < ?", t).Order("created_at asc").Find(&subs).Error
	return subs, err
}

// Recent returns the newest subscriptions with their company.
func (r *subscriptionRepository) Recent(limit int) ([]models.Subscription, error) {
	var subs []models.Subscription
	err := r.db.Preload("Company", func(db *gorm.DB) *gorm.DB {
		return db.Select("id", "name", "email")
	}).Order("created_at desc").Limit(limit).Find(&subs).Error
	return subs, err
}

func (r *subscriptionRepository) CountActiveByPlan() (map[string]int64, error) {
	var rows []struct {
		Plan string
		N    int64
	}
	err := r.db.Model(&models.Subscription{}).
		Select("plan, COUNT(*) AS n").
		Where("status = ?", models.SubscriptionStatusActive).
		Group("plan").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Plan] = row.N
	}
	return out, nil
}
