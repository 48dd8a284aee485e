package repository

import (
	"gorm.io/gorm"

	"github.com/ManuelReschke/Tochigi/app/models"
)

// inquiryRepository implements the InquiryRepository interface
type inquiryRepository struct {
	db *gorm.DB
}

// NewInquiryRepository creates a new inquiry repository instance
func NewInquiryRepository(db *gorm.DB) InquiryRepository {
	return &inquiryRepository{db: db}
}

var inquirySortColumns = map[string]string{
	"createdAt": "inquiries.created_at",
	"updatedAt": "inquiries.updated_at",
}

func (r *inquiryRepository) CreateWithCompanies(inquiry *models.Inquiry, companyIDs []string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("InquiryCompanies").Create(inquiry).Error; err != nil {
			return err
		}
		links := make([]models.InquiryCompany, 0, len(companyIDs))
		for _, id := range companyIDs {
			links = append(links, models.InquiryCompany{InquiryID: inquiry.ID, CompanyID: id})
		}
		if err := tx.Create(&links).Error; err != nil {
			return err
		}
		inquiry.InquiryCompanies = links
		return nil
	})
}

// GetByID loads an inquiry with all addressed companies.
func (r *inquiryRepository) GetByID(id string) (*models.Inquiry, error) {
	var inquiry models.Inquiry
	err := r.db.Preload("InquiryCompanies.Company").Where("id = ?", id).First(&inquiry).Error
	if err != nil {
		return nil, err
	}
	return &inquiry, nil
}

func (r *inquiryRepository) IsAddressedTo(id, companyID string) (bool, error) {
	var n int64
	err := r.db.Model(&models.InquiryCompany{}).Where("inquiry_id = ? AND company_id = ?", id, companyID).Count(&n).Error
	return n > 0, err
}

// ListForCompany lists inquiries addressed to companyID. selectedItems of each
// inquiry still covers every addressed company.
func (r *inquiryRepository) ListForCompany(companyID string, f InquiryFilter) ([]models.Inquiry, int64, error) {
	return r.list(f, func(db *gorm.DB) *gorm.DB {
		return db.Where("EXISTS (SELECT 1 FROM inquiry_companies ic WHERE ic.inquiry_id = inquiries.id AND ic.company_id = ?)", companyID)
	})
}

func (r *inquiryRepository) List(f InquiryFilter) ([]models.Inquiry, int64, error) {
	return r.list(f, func(db *gorm.DB) *gorm.DB { return db })
}

func (r *inquiryRepository) list(f InquiryFilter, extra func(*gorm.DB) *gorm.DB) ([]models.Inquiry, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		q := db.Model(&models.Inquiry{}).Scopes(extra)
		if f.Status != "" {
			q = q.Where("inquiries.status = ?", f.Status)
		}
		return q
	}

	var total int64
	if err := r.db.Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var inquiries []models.Inquiry
	err := r.db.Scopes(scope).
		Preload("InquiryCompanies.Company").
		Order(orderClause(inquirySortColumns, f.SortBy, f.Order)).
		Offset(f.Page.Offset()).
		Limit(f.Page.Limit).
		Find(&inquiries).Error
	return inquiries, total, err
}

func (r *inquiryRepository) UpdateStatus(id, status string) (*models.Inquiry, error) {
	if err := r.db.Model(&models.Inquiry{}).Where("id = ?", id).Update("status", status).Error; err != nil {
		return nil, err
	}
	return r.GetByID(id)
}

func (r *inquiryRepository) Count() (int64, error) {
	var n int64
	err := r.db.Model(&models.Inquiry{}).Count(&n).Error
	return n, err
}
