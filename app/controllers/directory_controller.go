package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/app/repository"
	"github.com/ManuelReschke/Tochigi/internal/pkg/apperror"
	"github.com/ManuelReschke/Tochigi/internal/pkg/cache"
	"github.com/ManuelReschke/Tochigi/internal/pkg/pagination"
	"github.com/ManuelReschke/Tochigi/internal/pkg/validation"
)

const (
	categoriesCacheKey       = "categories:list"
	categoriesCountsCacheKey = "categories:counts"
	categoriesCacheTTL       = 10 * time.Minute
)

// CompanyQuery holds the filters of the public company listing.
type CompanyQuery struct {
	CategoryID string `query:"categoryId" json:"categoryId"`
	Search     string `query:"search" json:"search" validate:"max=100"`
	SortBy     string `query:"sortBy" json:"sortBy" validate:"omitempty,oneof=name createdAt updatedAt"`
	Order      string `query:"order" json:"order" validate:"omitempty,oneof=asc desc"`
}

// DirectoryController serves the public company directory
type DirectoryController struct {
	companies  repository.CompanyRepository
	services   repository.ServiceRepository
	categories repository.CategoryRepository
	cache      *cache.Store
	validate   *validation.Validator
}

func NewDirectoryController(companies repository.CompanyRepository, services repository.ServiceRepository, categories repository.CategoryRepository, store *cache.Store, validate *validation.Validator) *DirectoryController {
	return &DirectoryController{
		companies:  companies,
		services:   services,
		categories: categories,
		cache:      store,
		validate:   validate,
	}
}

// HandleCompanies lists active companies with search, category filter and paging
func (dc *DirectoryController) HandleCompanies(c *fiber.Ctx) error {
	var q CompanyQuery
	if err := c.QueryParser(&q); err != nil {
		return apperror.BadRequest("Invalid query parameters").Wrap(err)
	}
	if err := dc.validate.Struct(&q); err != nil {
		return err
	}

	page := pagination.FromQuery(c)
	companies, total, err := dc.companies.ListPublic(repository.CompanyFilter{
		CategoryID: q.CategoryID,
		Search:     q.Search,
		SortBy:     q.SortBy,
		Order:      q.Order,
		Page:       page,
	})
	if err != nil {
		return err
	}
	return c.JSON(pagination.New(companies, page, total))
}

// HandleCompany returns one active company with services, latest posts and counts
func (dc *DirectoryController) HandleCompany(c *fiber.Ctx) error {
	company, err := dc.companies.GetPublicDetail(c.Params("id"))
	if err != nil {
		return notFound(err, "Company not found")
	}
	return c.JSON(company)
}

// HandleCompanyServices lists the services of an active company. Only active
// services are listed unless isActive=false is asked for explicitly.
func (dc *DirectoryController) HandleCompanyServices(c *fiber.Ctx) error {
	id := c.Params("id")
	company, err := dc.companies.GetByID(id)
	if err != nil {
		return notFound(err, "Company not found")
	}
	if !company.IsActive {
		return apperror.NotFound("Company not found")
	}

	active := true
	if c.Query("isActive") == "false" {
		active = false
	}
	page := pagination.FromQuery(c)
	services, total, err := dc.services.ListByCompany(id, &active, page)
	if err != nil {
		return err
	}
	return c.JSON(pagination.New(services, page, total))
}

// HandleCategories lists all categories, optionally with active company counts
func (dc *DirectoryController) HandleCategories(c *fiber.Ctx) error {
	if c.QueryBool("includeCount") {
		rows, err := cache.Remember(c.UserContext(), dc.cache, categoriesCountsCacheKey, categoriesCacheTTL, dc.categories.ListWithCounts)
		if err != nil {
			return err
		}
		if rows == nil {
			rows = []models.CategoryWithCount{}
		}
		return c.JSON(rows)
	}

	rows, err := cache.Remember(c.UserContext(), dc.cache, categoriesCacheKey, categoriesCacheTTL, dc.categories.List)
	if err != nil {
		return err
	}
	if rows == nil {
		rows = []models.Category{}
	}
	return c.JSON(rows)
}
