package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/app/repository"
	"github.com/ManuelReschke/Tochigi/internal/pkg/apperror"
	"github.com/ManuelReschke/Tochigi/internal/pkg/logger"
	"github.com/ManuelReschke/Tochigi/internal/pkg/pagination"
	"github.com/ManuelReschke/Tochigi/internal/pkg/usercontext"
	"github.com/ManuelReschke/Tochigi/internal/pkg/validation"
)

type ProfileRequest struct {
	Name        string  `json:"name" validate:"required,max=200"`
	Email       string  `json:"email" validate:"required,email,max=200"`
	Phone       string  `json:"phone" validate:"required,min=10,max=30"`
	Description *string `json:"description"`
	Address     string  `json:"address" validate:"required,max=255"`
	CategoryID  string  `json:"categoryId" validate:"required"`
}

// ServiceRequest is the body of service create and update. Prices are yen.
type ServiceRequest struct {
	Name        string              `json:"name" validate:"required,max=200"`
	Description string              `json:"description" validate:"required,min=10"`
	PriceFrom   *decimal.Decimal    `json:"priceFrom" validate:"required"`
	PriceTo     decimal.NullDecimal `json:"priceTo"`
	Unit        *string             `json:"unit" validate:"omitempty,max=50"`
	IsActive    *bool               `json:"isActive"`
}

// check covers the rules that span fields or need decimal comparison.
func (r *ServiceRequest) check() error {
	if r.PriceFrom.IsNegative() {
		return validation.FieldError("priceFrom", "must be greater than or equal to 0")
	}
	if r.PriceTo.Valid {
		if r.PriceTo.Decimal.IsNegative() {
			return validation.FieldError("priceTo", "must be greater than or equal to 0")
		}
		if r.PriceTo.Decimal.LessThan(*r.PriceFrom) {
			return validation.FieldError("priceTo", "must be greater than or equal to priceFrom")
		}
	}
	return nil
}

func (r *ServiceRequest) apply(s *models.Service) {
	s.Name = strings.TrimSpace(r.Name)
	s.Description = strings.TrimSpace(r.Description)
	s.PriceFrom = *r.PriceFrom
	s.PriceTo = r.PriceTo
	s.Unit = r.Unit
	s.IsActive = r.IsActive == nil || *r.IsActive
}

// BusinessController serves the dashboard of a business: its profile and
// its services
type BusinessController struct {
	companies  repository.CompanyRepository
	categories repository.CategoryRepository
	services   repository.ServiceRepository
	validate   *validation.Validator
	log        *logger.Logger
}

func NewBusinessController(companies repository.CompanyRepository, categories repository.CategoryRepository, services repository.ServiceRepository, validate *validation.Validator, log *logger.Logger) *BusinessController {
	return &BusinessController{
		companies:  companies,
		categories: categories,
		services:   services,
		validate:   validate,
		log:        log.Named("business"),
	}
}

// HandleProfile returns the session's company with category, subscription and counts
func (bc *BusinessController) HandleProfile(c *fiber.Ctx) error {
	company, err := bc.companies.GetProfile(usercontext.GetCompanyID(c))
	if err != nil {
		return notFound(err, "Company profile not found")
	}
	return c.JSON(company)
}

func (bc *BusinessController) HandleProfileUpdate(c *fiber.Ctx) error {
	var req ProfileRequest
	if err := bindJSON(c, bc.validate, &req); err != nil {
		return err
	}

	companyID := usercontext.GetCompanyID(c)
	company, err := bc.companies.GetByID(companyID)
	if err != nil {
		return notFound(err, "Company profile not found")
	}
	ok, err := bc.categories.Exists(req.CategoryID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.NotFound("Category not found")
	}

	company.Name = strings.TrimSpace(req.Name)
	company.Email = strings.TrimSpace(req.Email)
	company.Phone = strings.TrimSpace(req.Phone)
	company.Description = req.Description
	company.Address = strings.TrimSpace(req.Address)
	company.CategoryID = req.CategoryID
	if err := bc.companies.UpdateProfile(company); err != nil {
		return err
	}

	updated, err := bc.companies.GetProfile(companyID)
	if err != nil {
		return err
	}
	return c.JSON(updated)
}

// HandleServices lists the company's services, filtered by isActive when given
func (bc *BusinessController) HandleServices(c *fiber.Ctx) error {
	var active *bool
	switch c.Query("isActive") {
	case "true":
		v := true
		active = &v
	case "false":
		v := false
		active = &v
	}
	page := pagination.FromQuery(c)
	services, total, err := bc.services.ListByCompany(usercontext.GetCompanyID(c), active, page)
	if err != nil {
		return err
	}
	return c.JSON(pagination.New(services, page, total))
}

func (bc *BusinessController) HandleServiceCreate(c *fiber.Ctx) error {
	var req ServiceRequest
	if err := bindJSON(c, bc.validate, &req); err != nil {
		return err
	}
	if err := req.check(); err != nil {
		return err
	}

	companyID := usercontext.GetCompanyID(c)
	company, err := bc.companies.GetByID(companyID)
	if err != nil {
		return notFound(err, "Company not found")
	}
	if !company.IsActive {
		return apperror.NotFound("Company not found")
	}

	service := &models.Service{CompanyID: companyID}
	req.apply(service)
	if err := bc.services.Create(service); err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(service)
}

func (bc *BusinessController) HandleService(c *fiber.Ctx) error {
	service, err := bc.ownService(c)
	if err != nil {
		return err
	}
	return c.JSON(service)
}

func (bc *BusinessController) HandleServiceUpdate(c *fiber.Ctx) error {
	var req ServiceRequest
	if err := bindJSON(c, bc.validate, &req); err != nil {
		return err
	}
	if err := req.check(); err != nil {
		return err
	}

	service, err := bc.ownService(c)
	if err != nil {
		return err
	}
	req.apply(service)
	if err := bc.services.Update(service); err != nil {
		return err
	}
	return c.JSON(service)
}

func (bc *BusinessController) HandleServiceDelete(c *fiber.Ctx) error {
	service, err := bc.ownService(c)
	if err != nil {
		return err
	}
	if err := bc.services.Delete(service.ID); err != nil {
		return err
	}
	bc.log.Info().Str("serviceId", service.ID).Str("companyId", service.CompanyID).Msg("service deleted")
	return c.JSON(fiber.Map{"message": "Service deleted"})
}

// ownService loads :id and rejects services of other companies with 403.
func (bc *BusinessController) ownService(c *fiber.Ctx) (*models.Service, error) {
	service, err := bc.services.GetByID(c.Params("id"))
	if err != nil {
		return nil, notFound(err, "Service not found")
	}
	if service.CompanyID != usercontext.GetCompanyID(c) {
		return nil, apperror.Forbidden("You do not have access to this service")
	}
	return service, nil
}
