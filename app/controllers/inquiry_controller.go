package controllers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/app/repository"
	"github.com/ManuelReschke/Tochigi/internal/pkg/apperror"
	"github.com/ManuelReschke/Tochigi/internal/pkg/inquiry"
	"github.com/ManuelReschke/Tochigi/internal/pkg/pagination"
	"github.com/ManuelReschke/Tochigi/internal/pkg/usercontext"
	"github.com/ManuelReschke/Tochigi/internal/pkg/validation"
)

// InquiryCreator submits a customer inquiry to the selected companies.
type InquiryCreator interface {
	Create(ctx context.Context, in inquiry.CreateInput) (*models.InquiryDetail, error)
}

type InquiryQuery struct {
	Status string `query:"status" json:"status" validate:"omitempty,oneof=sent contacted completed cancelled"`
	SortBy string `query:"sortBy" json:"sortBy" validate:"omitempty,oneof=createdAt updatedAt"`
	Order  string `query:"order" json:"order" validate:"omitempty,oneof=asc desc"`
}

type UpdateInquiryStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=sent contacted completed cancelled"`
}

// InquiryController handles the public inquiry form and the inquiry inboxes
// of businesses and admins
type InquiryController struct {
	creator   InquiryCreator
	inquiries repository.InquiryRepository
	validate  *validation.Validator
}

func NewInquiryController(creator InquiryCreator, inquiries repository.InquiryRepository, validate *validation.Validator) *InquiryController {
	return &InquiryController{creator: creator, inquiries: inquiries, validate: validate}
}

// HandleCreate accepts a customer inquiry addressed to one or more companies
func (ic *InquiryController) HandleCreate(c *fiber.Ctx) error {
	var in inquiry.CreateInput
	if err := c.BodyParser(&in); err != nil {
		return apperror.BadRequest("Invalid request body").Wrap(err)
	}
	detail, err := ic.creator.Create(c.UserContext(), in)
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(detail)
}

// HandleList lists every inquiry for admins
func (ic *InquiryController) HandleList(c *fiber.Ctx) error {
	filter, err := ic.filter(c)
	if err != nil {
		return err
	}
	rows, total, err := ic.inquiries.List(filter)
	if err != nil {
		return err
	}
	return c.JSON(pagination.New(details(rows, ""), filter.Page, total))
}

func (ic *InquiryController) HandleGet(c *fiber.Ctx) error {
	row, err := ic.inquiries.GetByID(c.Params("id"))
	if err != nil {
		return notFound(err, "Inquiry not found")
	}
	return c.JSON(models.NewInquiryDetail(row))
}

func (ic *InquiryController) HandleUpdateStatus(c *fiber.Ctx) error {
	var req UpdateInquiryStatusRequest
	if err := bindJSON(c, ic.validate, &req); err != nil {
		return err
	}
	id := c.Params("id")
	if _, err := ic.inquiries.GetByID(id); err != nil {
		return notFound(err, "Inquiry not found")
	}
	row, err := ic.inquiries.UpdateStatus(id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(models.NewInquiryDetail(row))
}

// HandleBusinessList lists the inquiries addressed to the session's company
func (ic *InquiryController) HandleBusinessList(c *fiber.Ctx) error {
	filter, err := ic.filter(c)
	if err != nil {
		return err
	}
	companyID := usercontext.GetCompanyID(c)
	rows, total, err := ic.inquiries.ListForCompany(companyID, filter)
	if err != nil {
		return err
	}
	return c.JSON(pagination.New(details(rows, companyID), filter.Page, total))
}

// HandleBusinessGet returns one inquiry if it is addressed to the session's
// company. Other addressed companies are listed by id only.
func (ic *InquiryController) HandleBusinessGet(c *fiber.Ctx) error {
	companyID := usercontext.GetCompanyID(c)
	row, err := ic.inquiries.GetByID(c.Params("id"))
	if err != nil {
		return notFound(err, "Inquiry not found")
	}
	detail := models.NewInquiryDetail(row)
	if !addressedTo(detail, companyID) {
		return apperror.Forbidden("You do not have access to this inquiry")
	}
	return c.JSON(ownCompanyOnly(detail, companyID))
}

// HandleBusinessUpdateStatus sets the status of an inquiry addressed to the
// session's company. Any status may follow any other.
func (ic *InquiryController) HandleBusinessUpdateStatus(c *fiber.Ctx) error {
	var req UpdateInquiryStatusRequest
	if err := bindJSON(c, ic.validate, &req); err != nil {
		return err
	}

	id := c.Params("id")
	companyID := usercontext.GetCompanyID(c)
	if _, err := ic.inquiries.GetByID(id); err != nil {
		return notFound(err, "Inquiry not found")
	}
	ok, err := ic.inquiries.IsAddressedTo(id, companyID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.Forbidden("You do not have permission to update this inquiry")
	}

	row, err := ic.inquiries.UpdateStatus(id, req.Status)
	if err != nil {
		return err
	}
	return c.JSON(ownCompanyOnly(models.NewInquiryDetail(row), companyID))
}

func (ic *InquiryController) filter(c *fiber.Ctx) (repository.InquiryFilter, error) {
	var q InquiryQuery
	if err := c.QueryParser(&q); err != nil {
		return repository.InquiryFilter{}, apperror.BadRequest("Invalid query parameters").Wrap(err)
	}
	if err := ic.validate.Struct(&q); err != nil {
		return repository.InquiryFilter{}, err
	}
	return repository.InquiryFilter{
		Status: q.Status,
		SortBy: q.SortBy,
		Order:  q.Order,
		Page:   pagination.FromQuery(c),
	}, nil
}

// details converts rows for the API. A non-empty companyID hides the contact
// data of the other addressed companies.
func details(rows []models.Inquiry, companyID string) []models.InquiryDetail {
	out := make([]models.InquiryDetail, 0, len(rows))
	for i := range rows {
		d := models.NewInquiryDetail(&rows[i])
		if companyID != "" {
			d = ownCompanyOnly(d, companyID)
		}
		out = append(out, d)
	}
	return out
}

func addressedTo(d models.InquiryDetail, companyID string) bool {
	for _, id := range d.SelectedItems {
		if id == companyID {
			return true
		}
	}
	return false
}

func ownCompanyOnly(d models.InquiryDetail, companyID string) models.InquiryDetail {
	own := make([]models.CompanyRef, 0, 1)
	for _, ref := range d.Companies {
		if ref.ID == companyID {
			own = append(own, ref)
		}
	}
	d.Companies = own
	return d
}
