package inquiry

import (
	"context"
	"strings"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/internal/pkg/apperror"
	"github.com/ManuelReschke/Tochigi/internal/pkg/logger"
	"github.com/ManuelReschke/Tochigi/internal/pkg/mail"
	"github.com/ManuelReschke/Tochigi/internal/pkg/validation"
)

// CreateInput is the public inquiry form.
type CreateInput struct {
	CustomerName  string   `json:"customerName" validate:"required,max=200"`
	CustomerEmail string   `json:"customerEmail" validate:"required,email,max=200"`
	CustomerPhone string   `json:"customerPhone" validate:"required,min=10,max=30"`
	Message       string   `json:"message" validate:"required,min=10"`
	SelectedItems []string `json:"selectedItems" validate:"required,min=1,dive,required"`
}

// CompanyFinder resolves the companies an inquiry may be addressed to.
type CompanyFinder interface {
	GetActiveByIDs(ids []string) ([]models.Company, error)
}

// Store persists an inquiry together with its company links.
type Store interface {
	CreateWithCompanies(inquiry *models.Inquiry, companyIDs []string) error
}

// Service fans one customer inquiry out to every selected company.
type Service struct {
	companies CompanyFinder
	store     Store
	mailer    mail.Mailer
	validate  *validation.Validator
	log       *logger.Logger
	appURL    string
}

func NewService(companies CompanyFinder, store Store, mailer mail.Mailer, validate *validation.Validator, log *logger.Logger, appURL string) *Service {
	return &Service{
		companies: companies,
		store:     store,
		mailer:    mailer,
		validate:  validate,
		log:       log.Named("inquiry"),
		appURL:    strings.TrimRight(appURL, "/"),
	}
}

// Create validates the input, checks that every selected company exists and
// is active, stores the inquiry with its links in one transaction and then
// notifies the companies and the customer. Notification failures are logged
// and never fail the request.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.InquiryDetail, error) {
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.CustomerEmail = strings.TrimSpace(in.CustomerEmail)
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	if err := s.validate.Struct(in); err != nil {
		return nil, err
	}

	ids := trimIDs(in.SelectedItems)
	companies, err := s.companies.GetActiveByIDs(ids)
	if err != nil {
		return nil, err
	}
	if len(companies) == 0 {
		return nil, apperror.BadRequest("Selected companies not found")
	}
	if len(companies) != len(ids) {
		return nil, apperror.BadRequest("Some selected companies are unavailable")
	}

	byID := make(map[string]models.Company, len(companies))
	for _, c := range companies {
		byID[c.ID] = c
	}

	inquiry := &models.Inquiry{
		CustomerName:  in.CustomerName,
		CustomerEmail: in.CustomerEmail,
		CustomerPhone: in.CustomerPhone,
		Message:       in.Message,
		Status:        models.InquiryStatusSent,
	}
	if err := s.store.CreateWithCompanies(inquiry, ids); err != nil {
		return nil, err
	}
	for i := range inquiry.InquiryCompanies {
		c := byID[inquiry.InquiryCompanies[i].CompanyID]
		inquiry.InquiryCompanies[i].Company = &c
	}

	s.log.Info().Str("inquiryId", inquiry.ID).Int("companies", len(ids)).Msg("inquiry created")
	s.notify(ctx, inquiry, ids, byID)

	detail := models.NewInquiryDetail(inquiry)
	return &detail, nil
}

func (s *Service) notify(ctx context.Context, inquiry *models.Inquiry, ids []string, byID map[string]models.Company) {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		names = append(names, byID[id].Name)
	}
	data := mail.InquiryData{
		InquiryID:     inquiry.ID,
		CustomerName:  inquiry.CustomerName,
		CustomerEmail: inquiry.CustomerEmail,
		CustomerPhone: inquiry.CustomerPhone,
		Message:       inquiry.Message,
		CompanyNames:  names,
		DashboardURL:  s.appURL + "/dashboard/inquiries",
	}

	for _, id := range ids {
		c := byID[id]
		d := data
		d.CompanyName = c.Name
		msg, renderErr := mail.InquiryBusinessNotification(c.Email, d)
		mail.SendBestEffort(ctx, s.mailer, s.log, msg, renderErr)
	}

	msg, renderErr := mail.InquiryCustomerConfirmation(inquiry.CustomerEmail, data)
	mail.SendBestEffort(ctx, s.mailer, s.log, msg, renderErr)
}

// unique drops duplicate and blank ids, keeping the first occurrence.
// trimIDs keeps duplicates so a repeated id fails the count check in Create.
func trimIDs(ids []string) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strings.TrimSpace(id)
	}
	return out
}
