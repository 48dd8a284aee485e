package repository

import (
	"gorm.io/gorm"

	"github.com/ManuelReschke/Tochigi/app/models"
)

// categoryRepository implements the CategoryRepository interface
type categoryRepository struct {
	db *gorm.DB
}

// NewCategoryRepository creates a new category repository instance
func NewCategoryRepository(db *gorm.DB) CategoryRepository {
	return &categoryRepository{db: db}
}

func (r *categoryRepository) List() ([]models.Category, error) {
	var categories []models.Category
	err := r.db.Order("name asc").Find(&categories).Error
	return categories, err
}

// ListWithCounts returns every category with the number of its active companies.
func (r *categoryRepository) ListWithCounts() ([]models.CategoryWithCount, error) {
	var rows []models.CategoryWithCount
	err := r.db.Model(&models.Category{}).
		Select("categories.*, COUNT(companies.id) AS company_count").
		Joins("LEFT JOIN companies ON companies.category_id = categories.id AND companies.is_active = ?", true).
		Group("categories.id").
		Order("categories.name asc").
		Scan(&rows).Error
	return rows, err
}

func (r *categoryRepository) Exists(id string) (bool, error) {
	var n int64
	err := r.db.Model(&models.Category{}).Where("id = ?", id).Count(&n).Error
	return n > 0, err
}
