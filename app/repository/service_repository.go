package repository

import (
	"gorm.io/gorm"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/internal/pkg/pagination"
)

// serviceRepository implements the ServiceRepository interface
type serviceRepository struct {
	db *gorm.DB
}

// NewServiceRepository creates a new service repository instance
func NewServiceRepository(db *gorm.DB) ServiceRepository {
	return &serviceRepository{db: db}
}

func (r *serviceRepository) Create(service *models.Service) error {
	return r.db.Create(service).Error
}

func (r *serviceRepository) GetByID(id string) (*models.Service, error) {
	var service models.Service
	if err := r.db.Where("id = ?", id).First(&service).Error; err != nil {
		return nil, err
	}
	return &service, nil
}

// Update writes every editable field, including zero values.
func (r *serviceRepository) Update(service *models.Service) error {
	return r.db.Model(&models.Service{}).Where("id = ?", service.ID).
		Select("name", "description", "price_from", "price_to", "unit", "is_active").
		Updates(service).Error
}

func (r *serviceRepository) Delete(id string) error {
	return r.db.Where("id = ?", id).Delete(&models.Service{}).Error
}

func (r *serviceRepository) ListByCompany(companyID string, active *bool, p pagination.Params) ([]models.Service, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		q := db.Model(&models.Service{}).Where("company_id = ?", companyID)
		if active != nil {
			q = q.Where("is_active = ?", *active)
		}
		return q
	}

	var total int64
	if err := r.db.Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var services []models.Service
	err := r.db.Scopes(scope).Order("created_at desc").Offset(p.Offset()).Limit(p.Limit).Find(&services).Error
	return services, total, err
}
