package repository

import (
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ManuelReschke/Tochigi/app/models"
)

// contentPostRepository implements the ContentPostRepository interface
type contentPostRepository struct {
	db *gorm.DB
}

// NewContentPostRepository creates a new content post repository instance
func NewContentPostRepository(db *gorm.DB) ContentPostRepository {
	return &contentPostRepository{db: db}
}

func (r *contentPostRepository) Upsert(post *models.ContentPost) error {
	return r.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "post_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"caption", "media_url", "media_type", "permalink", "timestamp",
			"likes_count", "comments_count", "updated_at",
		}),
	}).Create(post).Error
}

func (r *contentPostRepository) SetMirroredURL(postID, url string) error {
	return r.db.Model(&models.ContentPost{}).Where("post_id = ?", postID).Update("mirrored_url", url).Error
}

func (r *contentPostRepository) ListByCompany(companyID string, limit int) ([]models.ContentPost, error) {
	var posts []models.ContentPost
	err := r.db.Where("company_id = ?", companyID).Order("timestamp desc").Limit(limit).Find(&posts).Error
	return posts, err
}

// LatestFeed returns the newest posts of active companies with their company.
func (r *contentPostRepository) LatestFeed(limit int) ([]models.ContentPost, error) {
	var posts []models.ContentPost
	err := r.db.
		Joins("JOIN companies ON companies.id = content_posts.company_id AND companies.is_active = ?", true).
		Preload("Company", func(db *gorm.DB) *gorm.DB {
			return db.Select("id", "name", "instagram_handle", "category_id")
		}).
		Order("content_posts.timestamp desc").
		Limit(limit).
		Find(&posts).Error
	return posts, err
}

func (r *contentPostRepository) Count() (int64, error) {
	var n int64
	err := r.db.Model(&models.ContentPost{}).Count(&n).Error
	return n, err
}
