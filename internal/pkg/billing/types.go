package billing

import (
	"bytes"
	"encoding/json"
	"time"
)

// CustomerInput describes the provider customer registered for a company.
type CustomerInput struct {
	CompanyID string
	Email     string
	Name      string
}

// CheckoutInput describes a subscription-mode checkout session.
type CheckoutInput struct {
	CustomerID string
	PriceRef   string
	CompanyID  string
	PlanID     string
	SuccessURL string
	CancelURL  string
}

// CheckoutSession is the provider-hosted payment page.
type CheckoutSession struct {
	ID  string `json:"sessionId"`
	URL string `json:"sessionUrl"`
}

// ProviderSubscription is the provider-agnostic view of a remote
// subscription. Period bounds are nil when the provider did not send them.
type ProviderSubscription struct {
	ID                 string
	CustomerID         string
	Status             string
	CancelAtPeriodEnd  bool
	PriceRef           string
	ItemID             string
	CurrentPeriodStart *time.Time
	CurrentPeriodEnd   *time.Time
	Metadata           map[string]string
}

// CancelResult reports how a cancellation was applied.
type CancelResult struct {
	Immediately bool
	EndsAt      *time.Time
}

// WebhookEventInput is the normalized input for webhook event persistence.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     []byte
	SignatureValid  bool
}

// WebhookResult tells the HTTP layer what happened to a delivery.
type WebhookResult struct {
	EventID   string
	EventType string
	Duplicate bool
	Ignored   bool
}

// expandableID accepts either a bare id string or an expanded object with an
// "id" field, the two shapes Stripe uses for references.
type expandableID string

func (e *expandableID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*e = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*e = expandableID(s)
		return nil
	}
	var obj struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	*e = expandableID(obj.ID)
	return nil
}

type subscriptionItemPayload struct {
	ID    string `json:"id"`
	Price struct {
		ID string `json:"id"`
	} `json:"price"`
	CurrentPeriodStart int64 `json:"current_period_start"`
	CurrentPeriodEnd   int64 `json:"current_period_end"`
}

// subscriptionPayload covers both the legacy top-level period fields and the
// per-item fields of newer API versions.
type subscriptionPayload struct {
	ID                 string            `json:"id"`
	Customer           expandableID      `json:"customer"`
	Status             string            `json:"status"`
	CancelAtPeriodEnd  bool              `json:"cancel_at_period_end"`
	Metadata           map[string]string `json:"metadata"`
	CurrentPeriodStart int64             `json:"current_period_start"`
	CurrentPeriodEnd   int64             `json:"current_period_end"`
	Items              struct {
		Data []subscriptionItemPayload `json:"data"`
	} `json:"items"`
}

func (p subscriptionPayload) normalize() ProviderSubscription {
	out := ProviderSubscription{
		ID:                p.ID,
		CustomerID:        string(p.Customer),
		Status:            p.Status,
		CancelAtPeriodEnd: p.CancelAtPeriodEnd,
		Metadata:          p.Metadata,
	}
	start, end := p.CurrentPeriodStart, p.CurrentPeriodEnd
	if len(p.Items.Data) > 0 {
		item := p.Items.Data[0]
		out.ItemID = item.ID
		out.PriceRef = item.Price.ID
		if start == 0 {
			start = item.CurrentPeriodStart
		}
		if end == 0 {
			end = item.CurrentPeriodEnd
		}
	}
	out.CurrentPeriodStart = unixPtr(start)
	out.CurrentPeriodEnd = unixPtr(end)
	return out
}

// decodeSubscription parses a raw subscription object.
func decodeSubscription(raw []byte) (ProviderSubscription, error) {
	var p subscriptionPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return ProviderSubscription{}, err
	}
	return p.normalize(), nil
}

// invoicePayload covers the legacy invoice.subscription field and the newer
// parent.subscription_details.subscription.
type invoicePayload struct {
	ID           string       `json:"id"`
	Customer     expandableID `json:"customer"`
	Subscription expandableID `json:"subscription"`
	Parent       struct {
		SubscriptionDetails struct {
			Subscription expandableID `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

func (p invoicePayload) subscriptionID() string {
	if p.Subscription != "" {
		return string(p.Subscription)
	}
	return string(p.Parent.SubscriptionDetails.Subscription)
}

type checkoutSessionPayload struct {
	ID           string            `json:"id"`
	Customer     expandableID      `json:"customer"`
	Subscription expandableID      `json:"subscription"`
	Metadata     map[string]string `json:"metadata"`
}

func unixPtr(sec int64) *time.Time {
	if sec <= 0 {
		return nil
	}
	t := time.Unix(sec, 0).UTC()
	return &t
}
