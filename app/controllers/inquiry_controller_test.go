package controllers

import (
	"context"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/app/repository"
	"github.com/ManuelReschke/Tochigi/internal/pkg/inquiry"
	"github.com/ManuelReschke/Tochigi/internal/pkg/pagination"
	"github.com/ManuelReschke/Tochigi/internal/pkg/validation"
)

type fakeCreator struct {
	got inquiry.CreateInput
	err error
}

func (f *fakeCreator) Create(_ context.Context, in inquiry.CreateInput) (*models.InquiryDetail, error) {
	f.got = in
	if f.err != nil {
		return nil, f.err
	}
	d := models.NewInquiryDetail(sampleInquiry("inq-1", in.SelectedItems...))
	return &d, nil
}

// sampleInquiry builds an inquiry addressed to the given companies with the
// companies loaded.
func sampleInquiry(id string, companyIDs ...string) *models.Inquiry {
	row := &models.Inquiry{
		ID:            id,
		CustomerName:  "田中花子",
		CustomerEmail: "hanako@example.jp",
		CustomerPhone: "09012345678",
		Message:       "屋根の修理の見積もりをお願いします。",
		Status:        models.InquiryStatusSent,
	}
	for _, cid := range companyIDs {
		row.InquiryCompanies = append(row.InquiryCompanies, models.InquiryCompany{
			InquiryID: id,
			CompanyID: cid,
			Company:   &models.Company{ID: cid, Name: "会社 " + cid, Email: cid + "@example.jp"},
		})
	}
	return row
}

func setupInquiryApp(creator InquiryCreator, inquiries *mockInquiryRepo) *fiber.App {
	ctl := NewInquiryController(creator, inquiries, validation.New())
	app := newTestApp()
	app.Post("/api/inquiries", ctl.HandleCreate)

	admin := app.Group("/api/admin", as(adminSession))
	admin.Get("/inquiries", ctl.HandleList)
	admin.Get("/inquiries/:id", ctl.HandleGet)
	admin.Patch("/inquiries/:id", ctl.HandleUpdateStatus)

	biz := app.Group("/api/business", as(businessSession))
	biz.Get("/inquiries", ctl.HandleBusinessList)
	biz.Get("/inquiries/:id", ctl.HandleBusinessGet)
	biz.Patch("/inquiries/:id", ctl.HandleBusinessUpdateStatus)
	return app
}

func TestInquiryCreate(t *testing.T) {
	creator := &fakeCreator{}
	app := setupInquiryApp(creator, new(mockInquiryRepo))

	resp := call(t, app, "POST", "/api/inquiries", fiber.Map{
		"customerName":  "田中花子",
		"customerEmail": "hanako@example.jp",
		"customerPhone": "09012345678",
		"message":       "屋根の修理の見積もりをお願いします。",
		"selectedItems": []string{"c1", "c2"},
	})

	require.Equal(t, fiber.StatusCreated, resp.Status)
	assert.Equal(t, []string{"c1", "c2"}, creator.got.SelectedItems)
	assert.Equal(t, []any{"c1", "c2"}, resp.Body["selectedItems"])
	assert.Equal(t, "sent", resp.Body["status"])
}

func TestInquiryCreatePassesServiceErrors(t *testing.T) {
	creator := &fakeCreator{err: validation.FieldError("selectedItems", "must contain at least 1 items")}
	app := setupInquiryApp(creator, new(mockInquiryRepo))

	resp := call(t, app, "POST", "/api/inquiries", fiber.Map{"customerName": "x"})

	assert.Equal(t, fiber.StatusBadRequest, resp.Status)
	assert.Contains(t, resp.errorDetails(), "selectedItems")
}

func TestAdminInquiryListUsesFilter(t *testing.T) {
	inquiries := new(mockInquiryRepo)
	inquiries.On("List", repository.InquiryFilter{
		Status: "contacted",
		Order:  "desc",
		Page:   pagination.Params{Page: 1, Limit: 20},
	}).Return([]models.Inquiry{*sampleInquiry("inq-1", "c1", "c2")}, int64(1), nil)
	app := setupInquiryApp(&fakeCreator{}, inquiries)

	resp := call(t, app, "GET", "/api/admin/inquiries?status=contacted&order=desc&limit=20", nil)

	require.Equal(t, fiber.StatusOK, resp.Status)
	data := resp.Body["data"].([]any)
	require.Len(t, data, 1)
	assert.Len(t, data[0].(map[string]any)["companies"], 2)
	inquiries.AssertExpectations(t)
}

func TestAdminInquiryListRejectsUnknownStatus(t *testing.T) {
	app := setupInquiryApp(&fakeCreator{}, new(mockInquiryRepo))

	resp := call(t, app, "GET", "/api/admin/inquiries?status=archived", nil)

	assert.Equal(t, fiber.StatusBadRequest, resp.Status)
	assert.Contains(t, resp.errorDetails(), "status")
}

func TestAdminInquiryUpdateStatus(t *testing.T) {
	inquiries := new(mockInquiryRepo)
	inquiries.On("GetByID", "inq-1").Return(sampleInquiry("inq-1", "c1"), nil)
	updated := sampleInquiry("inq-1", "c1")
	updated.Status = models.InquiryStatusCompleted
	inquiries.On("UpdateStatus", "inq-1", "completed").Return(updated, nil)
	app := setupInquiryApp(&fakeCreator{}, inquiries)

	resp := call(t, app, "PATCH", "/api/admin/inquiries/inq-1", fiber.Map{"status": "completed"})

	require.Equal(t, fiber.StatusOK, resp.Status)
	assert.Equal(t, "completed", resp.Body["status"])
}

func TestInquiryUpdateRejectsInvalidStatus(t *testing.T) {
	inquiries := new(mockInquiryRepo)
	app := setupInquiryApp(&fakeCreator{}, inquiries)

	resp := call(t, app, "PATCH", "/api/admin/inquiries/inq-1", fiber.Map{"status": "archived"})

	assert.Equal(t, fiber.StatusBadRequest, resp.Status)
	assert.Equal(t, "VALIDATION_ERROR", resp.errorCode())
	inquiries.AssertNotCalled(t, "UpdateStatus", "inq-1", "archived")
}

func TestAdminInquiryGetNotFound(t *testing.T) {
	inquiries := new(mockInquiryRepo)
	inquiries.On("GetByID", "nope").Return(nil, gorm.ErrRecordNotFound)
	app := setupInquiryApp(&fakeCreator{}, inquiries)

	resp := call(t, app, "GET", "/api/admin/inquiries/nope", nil)

	assert.Equal(t, fiber.StatusNotFound, resp.Status)
}

func TestBusinessInquiryHidesOtherCompanies(t *testing.T) {
	inquiries := new(mockInquiryRepo)
	inquiries.On("GetByID", "inq-1").Return(sampleInquiry("inq-1", "c1", "c2"), nil)
	app := setupInquiryApp(&fakeCreator{}, inquiries)

	resp := call(t, app, "GET", "/api/business/inquiries/inq-1", nil)

	require.Equal(t, fiber.StatusOK, resp.Status)
	assert.Equal(t, []any{"c1", "c2"}, resp.Body["selectedItems"])
	companies := resp.Body["companies"].([]any)
	require.Len(t, companies, 1)
	assert.Equal(t, "c1", companies[0].(map[string]any)["id"])
	assert.NotContains(t, string(resp.Raw), "c2@example.jp")
}

func TestBusinessInquiryOfOtherCompanyIsForbidden(t *testing.T) {
	inquiries := new(mockInquiryRepo)
	inquiries.On("GetByID", "inq-2").Return(sampleInquiry("inq-2", "c7"), nil)
	app := setupInquiryApp(&fakeCreator{}, inquiries)

	resp := call(t, app, "GET", "/api/business/inquiries/inq-2", nil)

	assert.Equal(t, fiber.StatusForbidden, resp.Status)
}

func TestBusinessInquiryList(t *testing.T) {
	inquiries := new(mockInquiryRepo)
	inquiries.On("ListForCompany", "c1", repository.InquiryFilter{Page: pagination.Params{Page: 1, Limit: 10}}).
		Return([]models.Inquiry{*sampleInquiry("inq-1", "c1", "c3")}, int64(1), nil)
	app := setupInquiryApp(&fakeCreator{}, inquiries)

	resp := call(t, app, "GET", "/api/business/inquiries", nil)

	require.Equal(t, fiber.StatusOK, resp.Status)
	assert.NotContains(t, string(resp.Raw), "c3@example.jp")
	inquiries.AssertExpectations(t)
}

func TestBusinessInquiryUpdateNotAddressed(t *testing.T) {
	inquiries := new(mockInquiryRepo)
	inquiries.On("GetByID", "inq-2").Return(sampleInquiry("inq-2", "c7"), nil)
	inquiries.On("IsAddressedTo", "inq-2", "c1").Return(false, nil)
	app := setupInquiryApp(&fakeCreator{}, inquiries)

	resp := call(t, app, "PATCH", "/api/business/inquiries/inq-2", fiber.Map{"status": "contacted"})

	assert.Equal(t, fiber.StatusForbidden, resp.Status)
	inquiries.AssertNotCalled(t, "UpdateStatus", "inq-2", "contacted")
}

func TestBusinessInquiryUpdateAnyTransition(t *testing.T) {
	inquiries := new(mockInquiryRepo)
	done := sampleInquiry("inq-1", "c1")
	done.Status = models.InquiryStatusCompleted
	inquiries.On("GetByID", "inq-1").Return(done, nil)
	inquiries.On("IsAddressedTo", "inq-1", "c1").Return(true, nil)
	reopened := sampleInquiry("inq-1", "c1")
	inquiries.On("UpdateStatus", "inq-1", "sent").Return(reopened, nil)
	app := setupInquiryApp(&fakeCreator{}, inquiries)

	resp := call(t, app, "PATCH", "/api/business/inquiries/inq-1", fiber.Map{"status": "sent"})

	require.Equal(t, fiber.StatusOK, resp.Status)
	assert.Equal(t, "sent", resp.Body["status"])
}
