package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/Tochigi/internal/pkg/apperror"
	"github.com/ManuelReschke/Tochigi/internal/pkg/billing"
	"github.com/ManuelReschke/Tochigi/internal/pkg/entitlements"
	"github.com/ManuelReschke/Tochigi/internal/pkg/logger"
	"github.com/ManuelReschke/Tochigi/internal/pkg/validation"
)

const webhookTimeout = 15 * time.Second

// Subscriptions is the write side of the subscription ledger.
type Subscriptions interface {
	Create(ctx context.Context, companyID, planID string) (*billing.CheckoutSession, error)
	ChangePlan(ctx context.Context, companyID, newPlanID string) (*billing.Plan, error)
	Cancel(ctx context.Context, companyID string, immediately bool) (*billing.CancelResult, error)
	Catalog() *billing.Catalog
}

// WebhookHandler verifies and applies one provider delivery.
type WebhookHandler interface {
	Handle(ctx context.Context, payload []byte, signatureHeader string) (*billing.WebhookResult, error)
}

type CreateSubscriptionRequest struct {
	CompanyID string `json:"companyId"`
	PlanID    string `json:"planId" validate:"required"`
}

type ChangePlanRequest struct {
	CompanyID string `json:"companyId"`
	NewPlanID string `json:"newPlanId" validate:"required"`
}

type CancelSubscriptionRequest struct {
	CompanyID   string `json:"companyId"`
	Immediately bool   `json:"immediately"`
}

// PlanView is a catalog entry with the features it unlocks in the app.
type PlanView struct {
	billing.Plan
	Entitlements []entitlements.Feature `json:"entitlements"`
}

// SubscriptionController handles checkout, plan changes, cancellation and the
// Stripe webhook
type SubscriptionController struct {
	subscriptions Subscriptions
	webhooks      WebhookHandler
	validate      *validation.Validator
	log           *logger.Logger
}

func NewSubscriptionController(subscriptions Subscriptions, webhooks WebhookHandler, validate *validation.Validator, log *logger.Logger) *SubscriptionController {
	return &SubscriptionController{
		subscriptions: subscriptions,
		webhooks:      webhooks,
		validate:      validate,
		log:           log.Named("subscription"),
	}
}

// HandleCreate opens a hosted checkout for the chosen plan
func (sc *SubscriptionController) HandleCreate(c *fiber.Ctx) error {
	var req CreateSubscriptionRequest
	if err := bindJSON(c, sc.validate, &req); err != nil {
		return err
	}
	companyID, err := targetCompany(c, req.CompanyID)
	if err != nil {
		return err
	}

	session, err := sc.subscriptions.Create(c.UserContext(), companyID, req.PlanID)
	if err != nil {
		return err
	}
	return c.JSON(session)
}

func (sc *SubscriptionController) HandleChangePlan(c *fiber.Ctx) error {
	var req ChangePlanRequest
	if err := bindJSON(c, sc.validate, &req); err != nil {
		return err
	}
	companyID, err := targetCompany(c, req.CompanyID)
	if err != nil {
		return err
	}

	plan, err := sc.subscriptions.ChangePlan(c.UserContext(), companyID, req.NewPlanID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "Subscription plan updated successfully",
		"newPlan": fiber.Map{
			"id":    plan.ID,
			"name":  plan.DisplayName,
			"price": plan.Price,
		},
	})
}

func (sc *SubscriptionController) HandleCancel(c *fiber.Ctx) error {
	var req CancelSubscriptionRequest
	if err := bindJSON(c, sc.validate, &req); err != nil {
		return err
	}
	companyID, err := targetCompany(c, req.CompanyID)
	if err != nil {
		return err
	}

	res, err := sc.subscriptions.Cancel(c.UserContext(), companyID, req.Immediately)
	if err != nil {
		return err
	}
	message := "Subscription will be cancelled at the end of the billing period"
	if res.Immediately {
		message = "Subscription cancelled immediately"
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": message,
		"endsAt":  res.EndsAt,
	})
}

// HandlePlans lists the plan catalog
func (sc *SubscriptionController) HandlePlans(c *fiber.Ctx) error {
	plans := sc.subscriptions.Catalog().Plans()
	out := make([]PlanView, 0, len(plans))
	for _, p := range plans {
		out = append(out, PlanView{Plan: p, Entitlements: entitlements.Features(p.ID)})
	}
	return c.JSON(fiber.Map{"plans": out})
}

// HandleStripeWebhook verifies the Stripe-Signature header against the raw
// body and applies the event to the ledger.
func (sc *SubscriptionController) HandleStripeWebhook(c *fiber.Ctx) error {
	signature := c.Get("Stripe-Signature")
	if signature == "" {
		return apperror.BadRequest("No signature provided")
	}

	ctx, cancel := context.WithTimeout(c.UserContext(), webhookTimeout)
	defer cancel()

	// fasthttp reuses the body buffer after the handler returns
	payload := append([]byte(nil), c.Body()...)
	res, err := sc.webhooks.Handle(ctx, payload, signature)
	if err != nil {
		if errors.Is(err, billing.ErrSignature) {
			sc.log.Warn().Str("ip", GetClientIP(c)).Msg("webhook signature rejected")
			return err
		}
		if errors.Is(err, billing.ErrWebhookSecret) {
			sc.log.Error().Err(err).Msg("webhook received without a configured secret")
			return err
		}
		sc.log.Error().Err(err).Msg("webhook processing failed")
		return apperror.New(http.StatusBadRequest, "WEBHOOK_ERROR", "Webhook processing failed").
			WithDetails(err.Error()).
			Wrap(err)
	}

	if res != nil {
		sc.log.Debug().
			Str("eventId", res.EventID).
			Str("type", res.EventType).
			Bool("duplicate", res.Duplicate).
			Bool("ignored", res.Ignored).
			Msg("webhook handled")
	}
	return c.JSON(fiber.Map{"received": true})
}
