package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/app/repository"
	"github.com/ManuelReschke/Tochigi/internal/pkg/apperror"
	"github.com/ManuelReschke/Tochigi/internal/pkg/logger"
	"github.com/ManuelReschke/Tochigi/internal/pkg/mail"
	"github.com/ManuelReschke/Tochigi/internal/pkg/pagination"
	"github.com/ManuelReschke/Tochigi/internal/pkg/session"
	"github.com/ManuelReschke/Tochigi/internal/pkg/usercontext"
)

var (
	businessSession = session.Session{SubjectID: "u1", Role: models.ROLE_BUSINESS, CompanyID: "c1"}
	adminSession    = session.Session{SubjectID: "admin-1", Role: models.ROLE_ADMIN}
)

func newTestApp() *fiber.App {
	return fiber.New(fiber.Config{ErrorHandler: apperror.Handler(logger.Nop())})
}

// as puts s on the request the way the session middleware would.
func as(s session.Session) fiber.Handler {
	return func(c *fiber.Ctx) error {
		usercontext.Set(c, s)
		return c.Next()
	}
}

type response struct {
	Status int
	Header http.Header
	Body   map[string]any
	Raw    []byte
}

func (r response) errorCode() string {
	e, _ := r.Body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func (r response) errorDetails() map[string]any {
	e, _ := r.Body["error"].(map[string]any)
	d, _ := e["details"].(map[string]any)
	return d
}

func call(t *testing.T, app *fiber.App, method, path string, body any) response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return do(t, app, req)
}

func do(t *testing.T, app *fiber.App, req *http.Request) response {
	t.Helper()
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	out := response{Status: resp.StatusCode, Header: resp.Header, Raw: raw}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out.Body))
	}
	return out
}

func strPtr(s string) *string { return &s }

// Repository mocks embed the interface so each only implements what the
// controller under test calls.

type mockCompanyRepo struct {
	mock.Mock
	repository.CompanyRepository
}

func (m *mockCompanyRepo) GetByID(id string) (*models.Company, error) {
	args := m.Called(id)
	c, _ := args.Get(0).(*models.Company)
	return c, args.Error(1)
}

func (m *mockCompanyRepo) ListPublic(f repository.CompanyFilter) ([]models.CompanyWithCounts, int64, error) {
	args := m.Called(f)
	rows, _ := args.Get(0).([]models.CompanyWithCounts)
	return rows, args.Get(1).(int64), args.Error(2)
}

func (m *mockCompanyRepo) GetPublicDetail(id string) (*models.CompanyWithCounts, error) {
	args := m.Called(id)
	c, _ := args.Get(0).(*models.CompanyWithCounts)
	return c, args.Error(1)
}

func (m *mockCompanyRepo) GetProfile(id string) (*models.CompanyWithCounts, error) {
	args := m.Called(id)
	c, _ := args.Get(0).(*models.CompanyWithCounts)
	return c, args.Error(1)
}

func (m *mockCompanyRepo) UpdateProfile(company *models.Company) error {
	return m.Called(company).Error(0)
}

func (m *mockCompanyRepo) SetInstagram(id, handle, token string, expiresAt *time.Time) error {
	return m.Called(id, handle, token, expiresAt).Error(0)
}

func (m *mockCompanyRepo) ClearInstagram(id string) error {
	return m.Called(id).Error(0)
}

func (m *mockCompanyRepo) ListForAdmin() ([]models.CompanyWithCounts, error) {
	args := m.Called()
	rows, _ := args.Get(0).([]models.CompanyWithCounts)
	return rows, args.Error(1)
}

func (m *mockCompanyRepo) SetActive(id string, active bool) (*models.Company, error) {
	args := m.Called(id, active)
	c, _ := args.Get(0).(*models.Company)
	return c, args.Error(1)
}

func (m *mockCompanyRepo) Delete(id string) error {
	return m.Called(id).Error(0)
}

type mockCategoryRepo struct {
	mock.Mock
	repository.CategoryRepository
}

func (m *mockCategoryRepo) List() ([]models.Category, error) {
	args := m.Called()
	rows, _ := args.Get(0).([]models.Category)
	return rows, args.Error(1)
}

func (m *mockCategoryRepo) ListWithCounts() ([]models.CategoryWithCount, error) {
	args := m.Called()
	rows, _ := args.Get(0).([]models.CategoryWithCount)
	return rows, args.Error(1)
}

func (m *mockCategoryRepo) Exists(id string) (bool, error) {
	args := m.Called(id)
	return args.Bool(0), args.Error(1)
}

type mockServiceRepo struct {
	mock.Mock
	repository.ServiceRepository
}

func (m *mockServiceRepo) Create(s *models.Service) error {
	return m.Called(s).Error(0)
}

func (m *mockServiceRepo) GetByID(id string) (*models.Service, error) {
	args := m.Called(id)
	s, _ := args.Get(0).(*models.Service)
	return s, args.Error(1)
}

func (m *mockServiceRepo) Update(s *models.Service) error {
	return m.Called(s).Error(0)
}

func (m *mockServiceRepo) Delete(id string) error {
	return m.Called(id).Error(0)
}

func (m *mockServiceRepo) ListByCompany(companyID string, active *bool, p pagination.Params) ([]models.Service, int64, error) {
	args := m.Called(companyID, active, p)
	rows, _ := args.Get(0).([]models.Service)
	return rows, args.Get(1).(int64), args.Error(2)
}

type mockInquiryRepo struct {
	mock.Mock
	repository.InquiryRepository
}

func (m *mockInquiryRepo) GetByID(id string) (*models.Inquiry, error) {
	args := m.Called(id)
	i, _ := args.Get(0).(*models.Inquiry)
	return i, args.Error(1)
}

func (m *mockInquiryRepo) IsAddressedTo(id, companyID string) (bool, error) {
	args := m.Called(id, companyID)
	return args.Bool(0), args.Error(1)
}

func (m *mockInquiryRepo) ListForCompany(companyID string, f repository.InquiryFilter) ([]models.Inquiry, int64, error) {
	args := m.Called(companyID, f)
	rows, _ := args.Get(0).([]models.Inquiry)
	return rows, args.Get(1).(int64), args.Error(2)
}

func (m *mockInquiryRepo) List(f repository.InquiryFilter) ([]models.Inquiry, int64, error) {
	args := m.Called(f)
	rows, _ := args.Get(0).([]models.Inquiry)
	return rows, args.Get(1).(int64), args.Error(2)
}

func (m *mockInquiryRepo) UpdateStatus(id, status string) (*models.Inquiry, error) {
	args := m.Called(id, status)
	i, _ := args.Get(0).(*models.Inquiry)
	return i, args.Error(1)
}

type mockUserRepo struct {
	mock.Mock
	repository.UserRepository
}

func (m *mockUserRepo) GetByID(id string) (*models.User, error) {
	args := m.Called(id)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) GetByEmail(email string) (*models.User, error) {
	args := m.Called(email)
	u, _ := args.Get(0).(*models.User)
	return u, args.Error(1)
}

func (m *mockUserRepo) TouchLastLogin(id string, at time.Time) error {
	return m.Called(id, at).Error(0)
}

func (m *mockUserRepo) RegisterCompany(company *models.Company, owner *models.User) error {
	return m.Called(company, owner).Error(0)
}

type mockScheduledRepo struct {
	mock.Mock
	repository.ScheduledPostRepository
}

func (m *mockScheduledRepo) Create(p *models.ScheduledPost) error {
	return m.Called(p).Error(0)
}

func (m *mockScheduledRepo) GetByID(id string) (*models.ScheduledPost, error) {
	args := m.Called(id)
	p, _ := args.Get(0).(*models.ScheduledPost)
	return p, args.Error(1)
}

func (m *mockScheduledRepo) ListByCompany(companyID string) ([]models.ScheduledPost, error) {
	args := m.Called(companyID)
	rows, _ := args.Get(0).([]models.ScheduledPost)
	return rows, args.Error(1)
}

func (m *mockScheduledRepo) Update(id string, updates map[string]interface{}) error {
	return m.Called(id, updates).Error(0)
}

type mockPostRepo struct {
	mock.Mock
	repository.ContentPostRepository
}

func (m *mockPostRepo) ListByCompany(companyID string, limit int) ([]models.ContentPost, error) {
	args := m.Called(companyID, limit)
	rows, _ := args.Get(0).([]models.ContentPost)
	return rows, args.Error(1)
}

func (m *mockPostRepo) LatestFeed(limit int) ([]models.ContentPost, error) {
	args := m.Called(limit)
	rows, _ := args.Get(0).([]models.ContentPost)
	return rows, args.Error(1)
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}
