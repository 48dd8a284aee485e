package billing

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/internal/pkg/mail"
)

type mockRepo struct{ mock.Mock }

func (m *mockRepo) GetCompany(id string) (*models.Company, error) {
	args := m.Called(id)
	c, _ := args.Get(0).(*models.Company)
	return c, args.Error(1)
}

func (m *mockRepo) GetSubscriptionByCompany(companyID string) (*models.Subscription, error) {
	args := m.Called(companyID)
	s, _ := args.Get(0).(*models.Subscription)
	return s, args.Error(1)
}

func (m *mockRepo) GetSubscriptionByStripeID(id string) (*models.Subscription, error) {
	args := m.Called(id)
	s, _ := args.Get(0).(*models.Subscription)
	return s, args.Error(1)
}

func (m *mockRepo) GetSubscriptionByCustomer(id string) (*models.Subscription, error) {
	args := m.Called(id)
	s, _ := args.Get(0).(*models.Subscription)
	return s, args.Error(1)
}

func (m *mockRepo) UpsertSubscription(sub *models.Subscription) error {
	return m.Called(sub).Error(0)
}

func (m *mockRepo) UpdateSubscription(id string, updates map[string]interface{}) error {
	return m.Called(id, updates).Error(0)
}

func (m *mockRepo) ChangeSubscriptionPlan(sub *models.Subscription, updates map[string]interface{}, plan string) error {
	return m.Called(sub, updates, plan).Error(0)
}

func (m *mockRepo) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	args := m.Called(event)
	e, _ := args.Get(1).(*models.BillingWebhookEvent)
	return args.Bool(0), e, args.Error(2)
}

func (m *mockRepo) MarkWebhookProcessed(id string, processingError string) error {
	return m.Called(id, processingError).Error(0)
}

type mockGateway struct{ mock.Mock }

func (m *mockGateway) CreateCustomer(ctx context.Context, in CustomerInput) (string, error) {
	args := m.Called(in)
	return args.String(0), args.Error(1)
}

func (m *mockGateway) CreateCheckoutSession(ctx context.Context, in CheckoutInput) (*CheckoutSession, error) {
	args := m.Called(in)
	s, _ := args.Get(0).(*CheckoutSession)
	return s, args.Error(1)
}

func (m *mockGateway) SwapPrice(ctx context.Context, subscriptionID, priceRef string) (*ProviderSubscription, error) {
	args := m.Called(subscriptionID, priceRef)
	s, _ := args.Get(0).(*ProviderSubscription)
	return s, args.Error(1)
}

func (m *mockGateway) CancelSubscription(ctx context.Context, subscriptionID string, immediately bool) (*ProviderSubscription, error) {
	args := m.Called(subscriptionID, immediately)
	s, _ := args.Get(0).(*ProviderSubscription)
	return s, args.Error(1)
}

// recordingMailer collects sent messages and can be told to fail.
type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (r *recordingMailer) Send(ctx context.Context, msg mail.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, msg)
	return r.err
}

func (r *recordingMailer) recipients() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.sent))
	for _, m := range r.sent {
		out = append(out, m.To)
	}
	return out
}

func strPtr(s string) *string { return &s }
