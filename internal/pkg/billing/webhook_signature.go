package billing

import (
	"errors"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/ManuelReschke/Tochigi/internal/pkg/apperror"
)

var (
	ErrSignature     = apperror.New(http.StatusBadRequest, "INVALID_SIGNATURE", "Invalid webhook signature")
	ErrWebhookSecret = apperror.New(http.StatusInternalServerError, "WEBHOOK_SECRET_MISSING", "Webhook secret not configured")
)

// VerifyStripeSignature checks the Stripe-Signature header against the raw
// payload and returns the parsed event. Nothing is parsed or written before
// the signature has been verified.
func VerifyStripeSignature(payload []byte, signatureHeader, webhookSecret string) (stripe.Event, error) {
	sig := strings.TrimSpace(signatureHeader)
	secret := strings.TrimSpace(webhookSecret)
	if sig == "" {
		return stripe.Event{}, ErrSignature.Wrap(errors.New("missing Stripe-Signature header"))
	}
	if secret == "" {
		return stripe.Event{}, ErrWebhookSecret.Wrap(errors.New("STRIPE_WEBHOOK_SECRET is not configured"))
	}

	event, err := webhook.ConstructEventWithOptions(payload, sig, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return stripe.Event{}, ErrSignature.Wrap(err)
	}
	return event, nil
}
