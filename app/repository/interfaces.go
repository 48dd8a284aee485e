package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/internal/pkg/pagination"
)

// CompanyFilter narrows the public company listing.
type CompanyFilter struct {
	CategoryID string
	Search     string
	SortBy     string // name, createdAt, updatedAt
	Order      string // asc, desc
	Page       pagination.Params
}

// InquiryFilter narrows inquiry listings.
type InquiryFilter struct {
	Status string
	SortBy string // createdAt, updatedAt
	Order  string
	Page   pagination.Params
}

// UserRepository defines the interface for operator login operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id string) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	TouchLastLogin(id string, at time.Time) error
	// RegisterCompany creates a company and its owner in one transaction.
	RegisterCompany(company *models.Company, owner *models.User) error
}

// CompanyRepository defines the interface for company-related database operations
type CompanyRepository interface {
	GetByID(id string) (*models.Company, error)
	GetActiveByIDs(ids []string) ([]models.Company, error)
	ListPublic(filter CompanyFilter) ([]models.CompanyWithCounts, int64, error)
	GetPublicDetail(id string) (*models.CompanyWithCounts, error)
	// GetProfile loads a company regardless of its active flag, with category,
	// subscription and relation counts.
	GetProfile(id string) (*models.CompanyWithCounts, error)
	UpdateProfile(company *models.Company) error
	ListWithInstagram() ([]models.Company, error)
	SetInstagram(id, handle, token string, expiresAt *time.Time) error
	UpdateInstagramToken(id, token string, expiresAt *time.Time) error
	ClearInstagram(id string) error
	ListForAdmin() ([]models.CompanyWithCounts, error)
	SetActive(id string, active bool) (*models.Company, error)
	Delete(id string) error
	Count() (int64, error)
	CountActive() (int64, error)
	CountWithInstagram() (int64, error)
}

// CategoryRepository defines the interface for category reference data
type CategoryRepository interface {
	List() ([]models.Category, error)
	ListWithCounts() ([]models.CategoryWithCount, error)
	Exists(id string) (bool, error)
}

// ServiceRepository defines the interface for company services
type ServiceRepository interface {
	Create(service *models.Service) error
	GetByID(id string) (*models.Service, error)
	Update(service *models.Service) error
	Delete(id string) error
	// ListByCompany filters on is_active when active is non-nil.
	ListByCompany(companyID string, active *bool, p pagination.Params) ([]models.Service, int64, error)
}

// InquiryRepository defines the interface for inquiry-related database operations
type InquiryRepository interface {
	// CreateWithCompanies inserts the inquiry and its join rows atomically.
	CreateWithCompanies(inquiry *models.Inquiry, companyIDs []string) error
	GetByID(id string) (*models.Inquiry, error)
	IsAddressedTo(id, companyID string) (bool, error)
	ListForCompany(companyID string, filter InquiryFilter) ([]models.Inquiry, int64, error)
	List(filter InquiryFilter) ([]models.Inquiry, int64, error)
	UpdateStatus(id, status string) (*models.Inquiry, error)
	Count() (int64, error)
}

// ContentPostRepository defines the interface for cached Instagram posts
type ContentPostRepository interface {
	// Upsert inserts the post or overwrites the mutable fields of the row with
	// the same remote post id.
	Upsert(post *models.ContentPost) error
	SetMirroredURL(postID, url string) error
	ListByCompany(companyID string, limit int) ([]models.ContentPost, error)
	LatestFeed(limit int) ([]models.ContentPost, error)
	Count() (int64, error)
}

// ScheduledPostRepository defines the interface for queued Instagram posts
type ScheduledPostRepository interface {
	Create(post *models.ScheduledPost) error
	GetByID(id string) (*models.ScheduledPost, error)
	ListByCompany(companyID string) ([]models.ScheduledPost, error)
	ListDue(now time.Time, limit int) ([]models.ScheduledPost, error)
	Update(id string, updates map[string]interface{}) error
}

// SubscriptionRepository defines the read side of the ledger used by admin reports
type SubscriptionRepository interface {
	ListActive() ([]models.Subscription, error)
	CreatedBefore(t time.Time) ([]models.Subscription, error)
	Recent(limit int) ([]models.Subscription, error)
	CountActiveByPlan() (map[string]int64, error)
}

// Repositories struct holds all repository instances
type Repositories struct {
	User          UserRepository
	Company       CompanyRepository
	Category      CategoryRepository
	Service       ServiceRepository
	Inquiry       InquiryRepository
	ContentPost   ContentPostRepository
	ScheduledPost ScheduledPostRepository
	Subscription  SubscriptionRepository
}

// NewRepositories creates a new instance of all repositories
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:          NewUserRepository(db),
		Company:       NewCompanyRepository(db),
		Category:      NewCategoryRepository(db),
		Service:       NewServiceRepository(db),
		Inquiry:       NewInquiryRepository(db),
		ContentPost:   NewContentPostRepository(db),
		ScheduledPost: NewScheduledPostRepository(db),
		Subscription:  NewSubscriptionRepository(db),
	}
}
