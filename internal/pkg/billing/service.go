package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/internal/pkg/apperror"
	"github.com/ManuelReschke/Tochigi/internal/pkg/logger"
	"github.com/ManuelReschke/Tochigi/internal/pkg/mail"
)

// defaultPeriod is assumed when a new subscription arrives without bounds.
const defaultPeriod = 30 * 24 * time.Hour

// Service keeps the local subscription ledger in sync with the payment provider.
type Service struct {
	repo    Repository
	gateway Gateway
	catalog *Catalog
	mailer  mail.Mailer
	log     *logger.Logger
	appURL  string
	now     func() time.Time
}

// NewService creates a billing service from injected dependencies.
func NewService(repo Repository, gateway Gateway, catalog *Catalog, mailer mail.Mailer, log *logger.Logger, appURL string) *Service {
	return &Service{
		repo:    repo,
		gateway: gateway,
		catalog: catalog,
		mailer:  mailer,
		log:     log.Named("billing"),
		appURL:  strings.TrimRight(appURL, "/"),
		now:     time.Now,
	}
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, gateway Gateway, catalog *Catalog, mailer mail.Mailer, log *logger.Logger, appURL string) *Service {
	return NewService(NewRepository(db), gateway, catalog, mailer, log, appURL)
}

// Catalog returns the plan catalog used by the service.
func (s *Service) Catalog() *Catalog {
	return s.catalog
}

// Create starts a checkout for companyID. No local row is written; the
// subscription appears once the provider reports it via webhook.
func (s *Service) Create(ctx context.Context, companyID, planID string) (*CheckoutSession, error) {
	company, err := s.repo.GetCompany(companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("Company not found")
		}
		return nil, err
	}

	if _, err := s.repo.GetSubscriptionByCompany(companyID); err == nil {
		return nil, apperror.Conflict("Subscription already exists")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	plan, err := s.catalog.PlanFor(planID)
	if err != nil {
		return nil, err
	}
	if plan.PriceRef == "" {
		return nil, ErrConfiguration
	}

	customerID, err := s.gateway.CreateCustomer(ctx, CustomerInput{
		CompanyID: company.ID,
		Email:     company.Email,
		Name:      company.Name,
	})
	if err != nil {
		return nil, err
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, CheckoutInput{
		CustomerID: customerID,
		PriceRef:   plan.PriceRef,
		CompanyID:  company.ID,
		PlanID:     plan.ID,
		SuccessURL: s.appURL + "/dashboard/subscription?success=true",
		CancelURL:  s.appURL + "/dashboard/subscription?cancelled=true",
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("companyId", company.ID).Str("plan", plan.ID).Str("sessionId", session.ID).Msg("checkout session created")
	return session, nil
}

// ChangePlan swaps the subscription price with proration and records the new
// plan locally. Period bounds are only overwritten when the provider returns them.
func (s *Service) ChangePlan(ctx context.Context, companyID, newPlanID string) (*Plan, error) {
	sub, err := s.repo.GetSubscriptionByCompany(companyID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if sub == nil || sub.StripeSubscriptionID == nil || *sub.StripeSubscriptionID == "" {
		return nil, apperror.NotFound("No active subscription found")
	}

	plan, err := s.catalog.PlanFor(newPlanID)
	if err != nil {
		return nil, err
	}
	if plan.PriceRef == "" {
		return nil, ErrConfiguration
	}

	remote, err := s.gateway.SwapPrice(ctx, *sub.StripeSubscriptionID, plan.PriceRef)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"plan":  plan.ID,
		"price": plan.Price,
	}
	if remote != nil {
		addPeriodBounds(updates, remote)
	}
	if err := s.repo.ChangeSubscriptionPlan(sub, updates, plan.ID); err != nil {
		return nil, err
	}

	s.log.Info().Str("companyId", companyID).Str("from", sub.Plan).Str("to", plan.ID).Msg("subscription plan changed")
	return &plan, nil
}

// Cancel cancels at the provider first, then records cancelled (immediately)
// or cancelling (at period end).
func (s *Service) Cancel(ctx context.Context, companyID string, immediately bool) (*CancelResult, error) {
	sub, err := s.repo.GetSubscriptionByCompany(companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("No active subscription found")
		}
		return nil, err
	}

	if sub.StripeSubscriptionID != nil && *sub.StripeSubscriptionID != "" {
		if _, err := s.gateway.CancelSubscription(ctx, *sub.StripeSubscriptionID, immediately); err != nil {
			return nil, err
		}
	} else {
		s.log.Warn().Str("companyId", companyID).Msg("subscription has no provider id, cancelling locally only")
	}

	now := s.now()
	result := &CancelResult{Immediately: immediately}
	updates := map[string]interface{}{}
	if immediately {
		updates["status"] = models.SubscriptionStatusCancelled
		updates["cancelled_at"] = now
		result.EndsAt = &now
	} else {
		updates["status"] = models.SubscriptionStatusCancelling
		end := sub.CurrentPeriodEnd
		result.EndsAt = &end
	}
	if err := s.repo.UpdateSubscription(sub.ID, updates); err != nil {
		return nil, err
	}

	s.log.Info().Str("companyId", companyID).Bool("immediately", immediately).Msg("subscription cancelled")

	if company, err := s.repo.GetCompany(companyID); err == nil {
		msg, renderErr := mail.SubscriptionCancellation(company.Email, mail.SubscriptionData{
			CompanyName:  company.Name,
			PlanName:     s.planName(sub.Plan),
			EndsAt:       result.EndsAt.Format("2006-01-02"),
			Immediately:  immediately,
			DashboardURL: s.appURL + "/dashboard/subscription",
		})
		mail.SendBestEffort(ctx, s.mailer, s.log, msg, renderErr)
	} else {
		s.log.Warn().Err(err).Str("companyId", companyID).Msg("company lookup for cancellation email failed")
	}

	return result, nil
}

// RecordWebhookEvent persists webhook payloads idempotently.
func (s *Service) RecordWebhookEvent(ctx context.Context, in WebhookEventInput) (bool, *models.BillingWebhookEvent, error) {
	_ = ctx
	provider := strings.ToLower(strings.TrimSpace(in.Provider))
	if provider == "" {
		return false, nil, errors.New("provider is required")
	}
	eventID := strings.TrimSpace(in.ProviderEventID)
	if eventID == "" {
		return false, nil, errors.New("provider_event_id is required")
	}

	event := &models.BillingWebhookEvent{
		Provider:        provider,
		ProviderEventID: eventID,
		EventType:       strings.TrimSpace(in.EventType),
		Payload:         in.PayloadJSON,
		SignatureValid:  in.SignatureValid,
	}
	return s.repo.CreateWebhookEventIfNotExists(event)
}

// MarkWebhookProcessed marks an event as processed and stores an optional error.
func (s *Service) MarkWebhookProcessed(ctx context.Context, webhookEventID string, processingErr error) error {
	_ = ctx
	if webhookEventID == "" {
		return errors.New("webhook_event_id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return s.repo.MarkWebhookProcessed(webhookEventID, errMsg)
}

func (s *Service) planName(planID string) string {
	if p, err := s.catalog.PlanFor(planID); err == nil {
		return p.DisplayName
	}
	return planID
}

func addPeriodBounds(updates map[string]interface{}, remote *ProviderSubscription) {
	if remote.CurrentPeriodStart != nil {
		updates["current_period_start"] = *remote.CurrentPeriodStart
	}
	if remote.CurrentPeriodEnd != nil {
		updates["current_period_end"] = *remote.CurrentPeriodEnd
	}
}

// localStatus maps a provider status onto the ledger's statuses. An empty
// result means the provider status has no local equivalent and is ignored.
func localStatus(providerStatus string, cancelAtPeriodEnd bool) string {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "active", "trialing":
		if cancelAtPeriodEnd {
			return models.SubscriptionStatusCancelling
		}
		return models.SubscriptionStatusActive
	case "past_due", "unpaid":
		return models.SubscriptionStatusPastDue
	case "canceled", "cancelled", "incomplete_expired":
		return models.SubscriptionStatusCancelled
	default:
		return ""
	}
}
