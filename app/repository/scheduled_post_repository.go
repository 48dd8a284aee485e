package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/Tochigi/app/models"
)

// scheduledPostRepository implements the ScheduledPostRepository interface
type scheduledPostRepository struct {
	db *gorm.DB
}

// NewScheduledPostRepository creates a new scheduled post repository instance
func NewScheduledPostRepository(db *gorm.DB) ScheduledPostRepository {
	return &scheduledPostRepository{db: db}
}

func (r *scheduledPostRepository) Create(post *models.ScheduledPost) error {
	return r.db.Create(post).Error
}

func (r *scheduledPostRepository) GetByID(id string) (*models.ScheduledPost, error) {
	var post models.ScheduledPost
	if err := r.db.Where("id = ?", id).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *scheduledPostRepository) ListByCompany(companyID string) ([]models.ScheduledPost, error) {
	var posts []models.ScheduledPost
	err := r.db.Where("company_id = ?", companyID).Order("scheduled_for asc").Find(&posts).Error
	return posts, err
}

// ListDue returns pending posts whose time has come, oldest first.
func (r *scheduledPostRepository) ListDue(now time.Time, limit int) ([]models.ScheduledPost, error) {
	var posts []models.ScheduledPost
	err := r.db.Where("status = ? AND scheduled_for <= ?", models.ScheduledPostStatusPending, now).
		Order("scheduled_for asc").
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

func (r *scheduledPostRepository) Update(id string, updates map[string]interface{}) error {
	return r.db.Model(&models.ScheduledPost{}).Where("id = ?", id).Updates(updates).Error
}
