package inquiry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/internal/pkg/apperror"
	"github.com/ManuelReschke/Tochigi/internal/pkg/logger"
	"github.com/ManuelReschke/Tochigi/internal/pkg/mail"
	"github.com/ManuelReschke/Tochigi/internal/pkg/validation"
)

type mockCompanies struct{ mock.Mock }

func (m *mockCompanies) GetActiveByIDs(ids []string) ([]models.Company, error) {
	args := m.Called(ids)
	c, _ := args.Get(0).([]models.Company)
	return c, args.Error(1)
}

type mockStore struct{ mock.Mock }

func (m *mockStore) CreateWithCompanies(inquiry *models.Inquiry, companyIDs []string) error {
	args := m.Called(inquiry, companyIDs)
	if args.Error(0) == nil {
		inquiry.ID = "inq-1"
		for _, id := range companyIDs {
			inquiry.InquiryCompanies = append(inquiry.InquiryCompanies, models.InquiryCompany{InquiryID: inquiry.ID, CompanyID: id})
		}
	}
	return args.Error(0)
}

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

func newTestService(companies *mockCompanies, store *mockStore, mailer *recordingMailer) *Service {
	return NewService(companies, store, mailer, validation.New(), logger.Nop(), "https://tochigi.example.jp/")
}

func validInput(ids ...string) CreateInput {
	return CreateInput{
		CustomerName:  "佐藤花子",
		CustomerEmail: "hanako@example.jp",
		CustomerPhone: "0281234567",
		Message:       "外壁塗装の見積もりをお願いします。",
		SelectedItems: ids,
	}
}

func twoCompanies() []models.Company {
	return []models.Company{
		{ID: "c1", Name: "宇都宮工務店", Email: "info@utsunomiya.example.jp", IsActive: true},
		{ID: "c2", Name: "日光塗装", Email: "contact@nikko.example.jp", IsActive: true},
	}
}

func statusOf(t *testing.T, err error) (int, string) {
	t.Helper()
	var appErr *apperror.Error
	require.True(t, errors.As(err, &appErr), "expected apperror, got %v", err)
	return appErr.Status, appErr.Code
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name  string
		input CreateInput
		field string
	}{
		{"missing name", func() CreateInput { in := validInput("c1"); in.CustomerName = "  "; return in }(), "customerName"},
		{"bad email", func() CreateInput { in := validInput("c1"); in.CustomerEmail = "not-an-email"; return in }(), "customerEmail"},
		{"short phone", func() CreateInput { in := validInput("c1"); in.CustomerPhone = "028123"; return in }(), "customerPhone"},
		{"short message", func() CreateInput { in := validInput("c1"); in.Message = "短い"; return in }(), "message"},
		{"no companies", validInput(), "selectedItems"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			companies, store := &mockCompanies{}, &mockStore{}
			_, err := newTestService(companies, store, &recordingMailer{}).Create(context.Background(), tt.input)

			status, code := statusOf(t, err)
			assert.Equal(t, 400, status)
			assert.Equal(t, "VALIDATION_ERROR", code)
			var appErr *apperror.Error
			require.True(t, errors.As(err, &appErr))
			assert.Contains(t, appErr.Details, tt.field)
			companies.AssertNotCalled(t, "GetActiveByIDs", mock.Anything)
			store.AssertNotCalled(t, "CreateWithCompanies", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateNoCompaniesFound(t *testing.T) {
	companies, store := &mockCompanies{}, &mockStore{}
	companies.On("GetActiveByIDs", []string{"gone"}).Return([]models.Company{}, nil)
	mailer := &recordingMailer{}

	_, err := newTestService(companies, store, mailer).Create(context.Background(), validInput("gone"))

	status, _ := statusOf(t, err)
	assert.Equal(t, 400, status)
	store.AssertNotCalled(t, "CreateWithCompanies", mock.Anything, mock.Anything)
	assert.Empty(t, mailer.recipients())
}

func TestCreatePartialMatchPersistsNothing(t *testing.T) {
	companies, store := &mockCompanies{}, &mockStore{}
	companies.On("GetActiveByIDs", []string{"c1", "inactive"}).Return(twoCompanies()[:1], nil)
	mailer := &recordingMailer{}

	_, err := newTestService(companies, store, mailer).Create(context.Background(), validInput("c1", "inactive"))

	status, _ := statusOf(t, err)
	assert.Equal(t, 400, status)
	store.AssertNotCalled(t, "CreateWithCompanies", mock.Anything, mock.Anything)
	assert.Empty(t, mailer.recipients())
}

func TestCreateRejectsDuplicateSelections(t *testing.T) {
	companies, store := &mockCompanies{}, &mockStore{}
	companies.On("GetActiveByIDs", []string{"c1", "c1"}).Return(twoCompanies()[:1], nil)
	mailer := &recordingMailer{}

	_, err := newTestService(companies, store, mailer).Create(context.Background(), validInput("c1", " c1 "))

	status, _ := statusOf(t, err)
	assert.Equal(t, 400, status)
	store.AssertNotCalled(t, "CreateWithCompanies", mock.Anything, mock.Anything)
	assert.Empty(t, mailer.recipients())
}

func TestCreateFansOutAfterCommit(t *testing.T) {
	companies, store := &mockCompanies{}, &mockStore{}
	companies.On("GetActiveByIDs", []string{"c1", "c2"}).Return(twoCompanies(), nil)
	store.On("CreateWithCompanies", mock.MatchedBy(func(i *models.Inquiry) bool {
		return i.Status == models.InquiryStatusSent && i.CustomerEmail == "hanako@example.jp"
	}), []string{"c1", "c2"}).Return(nil)
	mailer := &recordingMailer{}

	detail, err := newTestService(companies, store, mailer).Create(context.Background(), validInput("c1", "c2"))

	require.NoError(t, err)
	assert.Equal(t, "inq-1", detail.ID)
	assert.Equal(t, models.InquiryStatusSent, detail.Status)
	assert.Equal(t, []string{"c1", "c2"}, detail.SelectedItems)
	assert.Equal(t, []models.CompanyRef{
		{ID: "c1", Name: "宇都宮工務店", Email: "info@utsunomiya.example.jp"},
		{ID: "c2", Name: "日光塗装", Email: "contact@nikko.example.jp"},
	}, detail.Companies)
	assert.Equal(t, []string{"info@utsunomiya.example.jp", "contact@nikko.example.jp", "hanako@example.jp"}, mailer.recipients())
}

func TestCreateSucceedsWhenMailFails(t *testing.T) {
	companies, store := &mockCompanies{}, &mockStore{}
	companies.On("GetActiveByIDs", []string{"c1"}).Return(twoCompanies()[:1], nil)
	store.On("CreateWithCompanies", mock.Anything, []string{"c1"}).Return(nil)
	mailer := &recordingMailer{err: errors.New("smtp: connection refused")}

	detail, err := newTestService(companies, store, mailer).Create(context.Background(), validInput("c1"))

	require.NoError(t, err)
	assert.Equal(t, "inq-1", detail.ID)
	assert.Len(t, mailer.recipients(), 2)
}

func TestCreateStoreFailureSendsNothing(t *testing.T) {
	companies, store := &mockCompanies{}, &mockStore{}
	companies.On("GetActiveByIDs", []string{"c1"}).Return(twoCompanies()[:1], nil)
	store.On("CreateWithCompanies", mock.Anything, []string{"c1"}).Return(errors.New("deadlock"))
	mailer := &recordingMailer{}

	_, err := newTestService(companies, store, mailer).Create(context.Background(), validInput("c1"))

	assert.EqualError(t, err, "deadlock")
	assert.Empty(t, mailer.recipients())
}
