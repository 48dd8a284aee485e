package repository

import (
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/Tochigi/app/models"
)

// companyRepository implements the CompanyRepository interface
type companyRepository struct {
	db *gorm.DB
}

// NewCompanyRepository creates a new company repository instance
func NewCompanyRepository(db *gorm.DB) CompanyRepository {
	return &companyRepository{db: db}
}

var companySortColumns = map[string]string{
	"name":      "name",
	"createdAt": "created_at",
	"updatedAt": "updated_at",
}

// orderClause builds a safe ORDER BY from user input, defaulting to
// created_at desc.
func orderClause(columns map[string]string, sortBy, order string) string {
	col, ok := columns[sortBy]
	if !ok {
		col = "created_at"
	}
	if strings.EqualFold(order, "asc") {
		return col + " asc"
	}
	return col + " desc"
}

func (r *companyRepository) GetByID(id string) (*models.Company, error) {
	var company models.Company
	if err := r.db.Where("id = ?", id).First(&company).Error; err != nil {
		return nil, err
	}
	return &company, nil
}

// GetActiveByIDs returns the active companies among ids.
func (r *companyRepository) GetActiveByIDs(ids []string) ([]models.Company, error) {
	var companies []models.Company
	if len(ids) == 0 {
		return companies, nil
	}
	err := r.db.Where("id IN ? AND is_active = ?", ids, true).Find(&companies).Error
	return companies, err
}

// ListPublic lists active companies with category, active services and the
// service count.
func (r *companyRepository) ListPublic(f CompanyFilter) ([]models.CompanyWithCounts, int64, error) {
	scope := func(db *gorm.DB) *gorm.DB {
		q := db.Model(&models.Company{}).Where("is_active = ?", true)
		if f.CategoryID != "" {
			q = q.Where("category_id = ?", f.CategoryID)
		}
		if s := strings.TrimSpace(f.Search); s != "" {
			like := "%" + s + "%"
			q = q.Where("(name LIKE ? OR description LIKE ?)", like, like)
		}
		return q
	}

	var total int64
	if err := r.db.Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var companies []models.Company
	err := r.db.Scopes(scope).
		Preload("Category").
		Preload("Services", "is_active = ?", true).
		Order(orderClause(companySortColumns, f.SortBy, f.Order)).
		Offset(f.Page.Offset()).
		Limit(f.Page.Limit).
		Find(&companies).Error
	if err != nil {
		return nil, 0, err
	}

	ids := companyIDs(companies)
	services, err := r.countBy("services", "company_id", ids)
	if err != nil {
		return nil, 0, err
	}

	out := make([]models.CompanyWithCounts, 0, len(companies))
	for _, c := range companies {
		out = append(out, models.CompanyWithCounts{Company: c, Count: models.CompanyCounts{Services: services[c.ID]}})
	}
	return out, total, nil
}

// GetPublicDetail loads an active company with category, active services,
// the 6 latest posts and relation counts.
func (r *companyRepository) GetPublicDetail(id string) (*models.CompanyWithCounts, error) {
	var company models.Company
	err := r.db.
		Preload("Category").
		Preload("Services", func(db *gorm.DB) *gorm.DB {
			return db.Where("is_active = ?", true).Order("created_at desc")
		}).
		Where("id = ? AND is_active = ?", id, true).
		First(&company).Error
	if err != nil {
		return nil, err
	}

	if err := r.db.Where("company_id = ?", id).Order("timestamp desc").Limit(6).Find(&company.ContentPosts).Error; err != nil {
		return nil, err
	}

	counts, err := r.counts(id)
	if err != nil {
		return nil, err
	}
	return &models.CompanyWithCounts{Company: company, Count: counts}, nil
}

func (r *companyRepository) GetProfile(id string) (*models.CompanyWithCounts, error) {
	var company models.Company
	if err := r.db.Preload("Category").Preload("Subscription").Where("id = ?", id).First(&company).Error; err != nil {
		return nil, err
	}
	counts, err := r.counts(id)
	if err != nil {
		return nil, err
	}
	return &models.CompanyWithCounts{Company: company, Count: counts}, nil
}

func (r *companyRepository) UpdateProfile(company *models.Company) error {
	return r.db.Model(&models.Company{}).Where("id = ?", company.ID).
		Select("name", "email", "phone", "description", "address", "category_id").
		Updates(company).Error
}

// ListWithInstagram returns active companies holding an Instagram token.
func (r *companyRepository) ListWithInstagram() ([]models.Company, error) {
	var companies []models.Company
	err := r.db.Where("is_active = ? AND instagram_token IS NOT NULL AND instagram_token <> ''", true).
		Order("created_at asc").
		Find(&companies).Error
	return companies, err
}

func (r *companyRepository) SetInstagram(id, handle, token string, expiresAt *time.Time) error {
	return r.db.Model(&models.Company{}).Where("id = ?", id).Updates(map[string]interface{}{
		"instagram_handle":           handle,
		"instagram_token":            token,
		"instagram_token_expires_at": expiresAt,
	}).Error
}

func (r *companyRepository) UpdateInstagramToken(id, token string, expiresAt *time.Time) error {
	return r.db.Model(&models.Company{}).Where("id = ?", id).Updates(map[string]interface{}{
		"instagram_token":            token,
		"instagram_token_expires_at": expiresAt,
	}).Error
}

// ClearInstagram removes the credentials and the cached posts of a company.
func (r *companyRepository) ClearInstagram(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Company{}).Where("id = ?", id).Updates(map[string]interface{}{
			"instagram_handle":           nil,
			"instagram_token":            nil,
			"instagram_token_expires_at": nil,
		}).Error; err != nil {
			return err
		}
		return tx.Where("company_id = ?", id).Delete(&models.ContentPost{}).Error
	})
}

// ListForAdmin lists all companies, newest first, with category, subscription
// and relation counts.
func (r *companyRepository) ListForAdmin() ([]models.CompanyWithCounts, error) {
	var companies []models.Company
	err := r.db.Preload("Category").Preload("Subscription").Order("created_at desc").Find(&companies).Error
	if err != nil {
		return nil, err
	}

	ids := companyIDs(companies)
	services, err := r.countBy("services", "company_id", ids)
	if err != nil {
		return nil, err
	}
	inquiries, err := r.countBy("inquiry_companies", "company_id", ids)
	if err != nil {
		return nil, err
	}
	posts, err := r.countBy("content_posts", "company_id", ids)
	if err != nil {
		return nil, err
	}

	out := make([]models.CompanyWithCounts, 0, len(companies))
	for _, c := range companies {
		out = append(out, models.CompanyWithCounts{Company: c, Count: models.CompanyCounts{
			Services:       services[c.ID],
			Inquiries:      inquiries[c.ID],
			InstagramPosts: posts[c.ID],
		}})
	}
	return out, nil
}

func (r *companyRepository) SetActive(id string, active bool) (*models.Company, error) {
	res := r.db.Model(&models.Company{}).Where("id = ?", id).Update("is_active", active)
	if res.Error != nil {
		return nil, res.Error
	}
	return r.GetByID(id)
}

// Delete removes a company and everything that belongs to it.
func (r *companyRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var company models.Company
		if err := tx.Where("id = ?", id).First(&company).Error; err != nil {
			return err
		}
		for _, m := range []interface{}{
			&models.Service{},
			&models.ContentPost{},
			&models.ScheduledPost{},
			&models.InquiryCompany{},
			&models.Subscription{},
			&models.User{},
		} {
			if err := tx.Where("company_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Delete(&company).Error
	})
}

func (r *companyRepository) Count() (int64, error) {
	var n int64
	err := r.db.Model(&models.Company{}).Count(&n).Error
	return n, err
}

func (r *companyRepository) CountActive() (int64, error) {
	var n int64
	err := r.db.Model(&models.Company{}).Where("is_active = ?", true).Count(&n).Error
	return n, err
}

func (r *companyRepository) CountWithInstagram() (int64, error) {
	var n int64
	err := r.db.Model(&models.Company{}).Where("instagram_token IS NOT NULL AND instagram_token <> ''").Count(&n).Error
	return n, err
}

func (r *companyRepository) counts(id string) (models.CompanyCounts, error) {
	var c models.CompanyCounts
	if err := r.db.Model(&models.Service{}).Where("company_id = ?", id).Count(&c.Services).Error; err != nil {
		return c, err
	}
	if err := r.db.Model(&models.InquiryCompany{}).Where("company_id = ?", id).Count(&c.Inquiries).Error; err != nil {
		return c, err
	}
	if err := r.db.Model(&models.ContentPost{}).Where("company_id = ?", id).Count(&c.InstagramPosts).Error; err != nil {
		return c, err
	}
	return c, nil
}

// countBy returns row counts of table grouped by column for the given ids.
func (r *companyRepository) countBy(table, column string, ids []string) (map[string]int64, error) {
	out := make(map[string]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []struct {
		Key string
		N   int64
	}
	err := r.db.Table(table).
		Select(column+" AS `key`, COUNT(*) AS n").
		Where(column+" IN ?", ids).
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.Key] = row.N
	}
	return out, nil
}

func companyIDs(companies []models.Company) []string {
	ids := make([]string, 0, len(companies))
	for _, c := range companies {
		ids = append(ids, c.ID)
	}
	return ids
}
