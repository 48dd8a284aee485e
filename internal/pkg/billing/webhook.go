package billing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/internal/pkg/mail"
)

const (
	EventCheckoutCompleted       = "checkout.session.completed"
	EventSubscriptionCreated     = "customer.subscription.created"
	EventSubscriptionUpdated     = "customer.subscription.updated"
	EventSubscriptionDeleted     = "customer.subscription.deleted"
	EventInvoicePaymentSucceeded = "invoice.payment_succeeded"
	EventInvoicePaymentFailed    = "invoice.payment_failed"
)

// WebhookRouter verifies provider deliveries and dispatches them to the
// ledger handlers.
type WebhookRouter struct {
	svc    *Service
	secret string
}

func NewWebhookRouter(svc *Service, webhookSecret string) *WebhookRouter {
	return &WebhookRouter{svc: svc, secret: webhookSecret}
}

// Handle verifies the signature, records the delivery once and runs the
// matching handler. Redelivered events are acknowledged without running again.
func (r *WebhookRouter) Handle(ctx context.Context, payload []byte, signatureHeader string) (*WebhookResult, error) {
	event, err := VerifyStripeSignature(payload, signatureHeader, r.secret)
	if err != nil {
		r.svc.log.Warn().Err(err).Msg("webhook signature verification failed")
		return nil, err
	}

	eventType := string(event.Type)
	result := &WebhookResult{EventID: event.ID, EventType: eventType}

	created, stored, err := r.svc.RecordWebhookEvent(ctx, WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       eventType,
		PayloadJSON:     payload,
		SignatureValid:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("persist webhook event: %w", err)
	}
	if !created && stored.ProcessedAt != nil && stored.ProcessingError == "" {
		r.svc.log.Info().Str("eventId", event.ID).Str("type", eventType).Msg("duplicate webhook delivery ignored")
		result.Duplicate = true
		return result, nil
	}

	handled, procErr := r.dispatch(ctx, eventType, event.Data.Raw)
	result.Ignored = !handled

	if markErr := r.svc.MarkWebhookProcessed(ctx, stored.ID, procErr); markErr != nil {
		r.svc.log.Error().Err(markErr).Str("eventId", event.ID).Msg("failed to mark webhook processed")
	}
	if procErr != nil {
		r.svc.log.Error().Err(procErr).Str("eventId", event.ID).Str("type", eventType).Msg("webhook processing failed")
		return nil, procErr
	}
	return result, nil
}

func (r *WebhookRouter) dispatch(ctx context.Context, eventType string, raw json.RawMessage) (bool, error) {
	switch eventType {
	case EventCheckoutCompleted:
		var p checkoutSessionPayload
		if err := json.Unmarshal(raw, &p); err != nil {
			return true, fmt.Errorf("decode checkout session: %w", err)
		}
		return true, r.svc.HandleCheckoutCompleted(ctx, p)
	case EventSubscriptionCreated, EventSubscriptionUpdated, EventSubscriptionDeleted:
		sub, err := decodeSubscription(raw)
		if err != nil {
			return true, fmt.Errorf("decode subscription: %w", err)
		}
		switch eventType {
		case EventSubscriptionCreated:
			return true, r.svc.HandleSubscriptionCreated(ctx, sub)
		case EventSubscriptionUpdated:
			return true, r.svc.HandleSubscriptionUpdated(ctx, sub)
		default:
			return true, r.svc.HandleSubscriptionDeleted(ctx, sub)
		}
	case EventInvoicePaymentSucceeded, EventInvoicePaymentFailed:
		var inv invoicePayload
		if err := json.Unmarshal(raw, &inv); err != nil {
			return true, fmt.Errorf("decode invoice: %w", err)
		}
		if eventType == EventInvoicePaymentSucceeded {
			return true, r.svc.HandleInvoicePaymentSucceeded(ctx, inv.subscriptionID())
		}
		return true, r.svc.HandleInvoicePaymentFailed(ctx, inv.subscriptionID())
	default:
		r.svc.log.Info().Str("type", eventType).Msg("unhandled webhook event type")
		return false, nil
	}
}

// HandleCheckoutCompleted only logs; the subscription itself arrives with
// customer.subscription.created.
func (s *Service) HandleCheckoutCompleted(ctx context.Context, p checkoutSessionPayload) error {
	_ = ctx
	companyID := p.Metadata["companyId"]
	if companyID == "" {
		s.log.Warn().Str("sessionId", p.ID).Msg("checkout completed without companyId metadata")
		return nil
	}
	s.log.Info().Str("sessionId", p.ID).Str("companyId", companyID).Str("planId", p.Metadata["planId"]).
		Str("subscription", string(p.Subscription)).Msg("checkout completed")
	return nil
}

// HandleSubscriptionCreated upserts the company's subscription. The company is
// resolved through the known customer id first, then the companyId metadata.
func (s *Service) HandleSubscriptionCreated(ctx context.Context, remote ProviderSubscription) error {
	companyID, err := s.resolveCompanyID(remote)
	if err != nil {
		return err
	}
	if companyID == "" {
		s.log.Warn().Str("subscription", remote.ID).Str("customer", remote.CustomerID).Msg("no company for new subscription")
		return nil
	}

	company, err := s.repo.GetCompany(companyID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			s.log.Warn().Str("companyId", companyID).Msg("subscription references unknown company")
			return nil
		}
		return err
	}

	plan := s.catalog.PlanForPriceRef(remote.PriceRef)
	now := s.now()
	start, end := now, now.Add(defaultPeriod)
	if remote.CurrentPeriodStart != nil {
		start = *remote.CurrentPeriodStart
	}
	if remote.CurrentPeriodEnd != nil {
		end = *remote.CurrentPeriodEnd
	}

	sub := &models.Subscription{
		CompanyID:          company.ID,
		Plan:               plan.ID,
		Price:              plan.Price,
		Status:             models.SubscriptionStatusActive,
		CurrentPeriodStart: start,
		CurrentPeriodEnd:   end,
	}
	if remote.CustomerID != "" {
		sub.StripeCustomerID = &remote.CustomerID
	}
	if remote.ID != "" {
		sub.StripeSubscriptionID = &remote.ID
	}
	if err := s.repo.UpsertSubscription(sub); err != nil {
		return err
	}

	s.log.Info().Str("companyId", company.ID).Str("plan", plan.ID).Str("subscription", remote.ID).Msg("subscription created")

	msg, renderErr := mail.SubscriptionWelcome(company.Email, mail.SubscriptionData{
		CompanyName:  company.Name,
		PlanName:     plan.DisplayName,
		Price:        FormatYen(plan.Price),
		DashboardURL: s.appURL + "/dashboard",
	})
	mail.SendBestEffort(ctx, s.mailer, s.log, msg, renderErr)
	return nil
}

func (s *Service) resolveCompanyID(remote ProviderSubscription) (string, error) {
	if remote.CustomerID != "" {
		existing, err := s.repo.GetSubscriptionByCustomer(remote.CustomerID)
		if err == nil {
			return existing.CompanyID, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return "", err
		}
	}
	return remote.Metadata["companyId"], nil
}

// HandleSubscriptionUpdated syncs status and, when present, period bounds.
func (s *Service) HandleSubscriptionUpdated(ctx context.Context, remote ProviderSubscription) error {
	_ = ctx
	sub, err := s.findByProviderID(remote.ID)
	if err != nil || sub == nil {
		return err
	}

	updates := map[string]interface{}{}
	if status := localStatus(remote.Status, remote.CancelAtPeriodEnd); status != "" {
		updates["status"] = status
	}
	addPeriodBounds(updates, &remote)
	if len(updates) == 0 {
		return nil
	}
	if err := s.repo.UpdateSubscription(sub.ID, updates); err != nil {
		return err
	}
	s.log.Info().Str("companyId", sub.CompanyID).Interface("updates", updates).Msg("subscription updated")
	return nil
}

// HandleSubscriptionDeleted marks the subscription cancelled.
func (s *Service) HandleSubscriptionDeleted(ctx context.Context, remote ProviderSubscription) error {
	_ = ctx
	sub, err := s.findByProviderID(remote.ID)
	if err != nil || sub == nil {
		return err
	}
	if err := s.repo.UpdateSubscription(sub.ID, map[string]interface{}{
		"status":       models.SubscriptionStatusCancelled,
		"cancelled_at": s.now(),
	}); err != nil {
		return err
	}
	s.log.Info().Str("companyId", sub.CompanyID).Msg("subscription deleted")
	return nil
}

// HandleInvoicePaymentSucceeded sets the subscription active. Period bounds
// are left to customer.subscription.updated.
func (s *Service) HandleInvoicePaymentSucceeded(ctx context.Context, subscriptionID string) error {
	_ = ctx
	sub, err := s.findByProviderID(subscriptionID)
	if err != nil || sub == nil {
		return err
	}
	return s.repo.UpdateSubscription(sub.ID, map[string]interface{}{
		"status": models.SubscriptionStatusActive,
	})
}

// HandleInvoicePaymentFailed sets the subscription past_due and notifies the company.
func (s *Service) HandleInvoicePaymentFailed(ctx context.Context, subscriptionID string) error {
	sub, err := s.findByProviderID(subscriptionID)
	if err != nil || sub == nil {
		return err
	}
	if err := s.repo.UpdateSubscription(sub.ID, map[string]interface{}{
		"status": models.SubscriptionStatusPastDue,
	}); err != nil {
		return err
	}
	s.log.Warn().Str("companyId", sub.CompanyID).Str("subscription", subscriptionID).Msg("invoice payment failed")

	company, err := s.repo.GetCompany(sub.CompanyID)
	if err != nil {
		s.log.Warn().Err(err).Str("companyId", sub.CompanyID).Msg("company lookup for payment failed email failed")
		return nil
	}
	msg, renderErr := mail.SubscriptionPaymentFailed(company.Email, mail.SubscriptionData{
		CompanyName:  company.Name,
		PlanName:     s.planName(sub.Plan),
		Price:        FormatYen(sub.Price),
		DashboardURL: s.appURL + "/dashboard/subscription",
	})
	mail.SendBestEffort(ctx, s.mailer, s.log, msg, renderErr)
	return nil
}

// findByProviderID returns nil, nil when no local row exists so the event is
// acknowledged without changes.
func (s *Service) findByProviderID(subscriptionID string) (*models.Subscription, error) {
	if subscriptionID == "" {
		s.log.Warn().Msg("webhook event without subscription id")
		return nil, nil
	}
	sub, err := s.repo.GetSubscriptionByStripeID(subscriptionID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		s.log.Warn().Str("subscription", subscriptionID).Msg("subscription not found")
		return nil, nil
	}
	return sub, err
}
