package controllers

import (
	"context"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/internal/pkg/jobqueue"
	"github.com/ManuelReschke/Tochigi/internal/pkg/logger"
	"github.com/ManuelReschke/Tochigi/internal/pkg/statistics"
	"github.com/ManuelReschke/Tochigi/internal/pkg/validation"
)

type fakeStats struct {
	invalidated int
}

func (f *fakeStats) AdminStats(context.Context) (*statistics.AdminStats, error) {
	return &statistics.AdminStats{TotalCompanies: 12, ActiveCompanies: 10, PlatformFullSubscribers: 3}, nil
}

func (f *fakeStats) Revenue(context.Context) (*statistics.RevenueReport, error) {
	return &statistics.RevenueReport{TotalRevenue: 360000, MonthlyRevenue: 360000}, nil
}

func (f *fakeStats) Invalidate(context.Context) { f.invalidated++ }

type fakeJobs struct{}

func (fakeJobs) IsRunning() bool { return true }
func (fakeJobs) Jobs() []string  { return []string{"content-sync", "scheduled-publish"} }
func (fakeJobs) NextRun(name string) (time.Time, bool) {
	return time.Date(2026, 10, 16, 3, 0, 0, 0, time.UTC), name == "content-sync"
}

func (fakeJobs) LastRun(_ context.Context, name string) (*jobqueue.RunStats, bool) {
	if name != "scheduled-publish" {
		return nil, false
	}
	return &jobqueue.RunStats{Job: name, DurationMs: 42}, true
}

func setupAdminApp(stats *fakeStats, companies *mockCompanyRepo, jobs JobInspector) *fiber.App {
	ctl := NewAdminController(stats, companies, jobs, validation.New(), logger.Nop())
	app := newTestApp()
	admin := app.Group("/api/admin", as(adminSession))
	admin.Get("/stats", ctl.HandleStats)
	admin.Get("/revenue", ctl.HandleRevenue)
	admin.Get("/companies", ctl.HandleCompanies)
	admin.Patch("/companies", ctl.HandleCompanyUpdate)
	admin.Delete("/companies", ctl.HandleCompanyDelete)
	admin.Get("/jobs", ctl.HandleJobs)
	return app
}

func TestAdminStatsAndRevenue(t *testing.T) {
	app := setupAdminApp(&fakeStats{}, new(mockCompanyRepo), nil)

	stats := call(t, app, "GET", "/api/admin/stats", nil)
	require.Equal(t, fiber.StatusOK, stats.Status)
	assert.EqualValues(t, 12, stats.Body["totalCompanies"])

	revenue := call(t, app, "GET", "/api/admin/revenue", nil)
	require.Equal(t, fiber.StatusOK, revenue.Status)
	assert.EqualValues(t, 360000, revenue.Body["totalRevenue"])
}

func TestAdminCompaniesEmpty(t *testing.T) {
	companies := new(mockCompanyRepo)
	companies.On("ListForAdmin").Return(nil, nil)
	app := setupAdminApp(&fakeStats{}, companies, nil)

	resp := call(t, app, "GET", "/api/admin/companies", nil)

	require.Equal(t, fiber.StatusOK, resp.Status)
	assert.Equal(t, []any{}, resp.Body["companies"])
}

func TestAdminCompanyUpdateInvalidatesStats(t *testing.T) {
	companies := new(mockCompanyRepo)
	companies.On("GetByID", "c1").Return(&models.Company{ID: "c1", IsActive: true}, nil)
	companies.On("SetActive", "c1", false).Return(&models.Company{ID: "c1", IsActive: false}, nil)
	stats := &fakeStats{}
	app := setupAdminApp(stats, companies, nil)

	resp := call(t, app, "PATCH", "/api/admin/companies", fiber.Map{"companyId": "c1", "isActive": false})

	require.Equal(t, fiber.StatusOK, resp.Status)
	assert.Equal(t, false, resp.Body["company"].(map[string]any)["isActive"])
	assert.Equal(t, 1, stats.invalidated)
}

func TestAdminCompanyUpdateRequiresFlag(t *testing.T) {
	app := setupAdminApp(&fakeStats{}, new(mockCompanyRepo), nil)

	resp := call(t, app, "PATCH", "/api/admin/companies", fiber.Map{"companyId": "c1"})

	assert.Equal(t, fiber.StatusBadRequest, resp.Status)
	assert.Contains(t, resp.errorDetails(), "isActive")
}

func TestAdminCompanyDelete(t *testing.T) {
	companies := new(mockCompanyRepo)
	companies.On("Delete", "c1").Return(nil)
	companies.On("Delete", "gone").Return(gorm.ErrRecordNotFound)
	stats := &fakeStats{}
	app := setupAdminApp(stats, companies, nil)

	missing := call(t, app, "DELETE", "/api/admin/companies", nil)
	assert.Equal(t, fiber.StatusBadRequest, missing.Status)
	assert.Contains(t, missing.errorDetails(), "id")

	unknown := call(t, app, "DELETE", "/api/admin/companies?id=gone", nil)
	assert.Equal(t, fiber.StatusNotFound, unknown.Status)

	ok := call(t, app, "DELETE", "/api/admin/companies?id=c1", nil)
	assert.Equal(t, fiber.StatusOK, ok.Status)
	assert.Equal(t, 1, stats.invalidated)
}

func TestAdminJobsWithoutScheduler(t *testing.T) {
	app := setupAdminApp(&fakeStats{}, new(mockCompanyRepo), nil)

	resp := call(t, app, "GET", "/api/admin/jobs", nil)

	require.Equal(t, fiber.StatusOK, resp.Status)
	assert.Equal(t, false, resp.Body["running"])
	assert.Equal(t, []any{}, resp.Body["jobs"])
}

func TestAdminJobs(t *testing.T) {
	app := setupAdminApp(&fakeStats{}, new(mockCompanyRepo), fakeJobs{})

	resp := call(t, app, "GET", "/api/admin/jobs", nil)

	require.Equal(t, fiber.StatusOK, resp.Status)
	jobs := resp.Body["jobs"].([]any)
	require.Len(t, jobs, 2)
	sync := jobs[0].(map[string]any)
	assert.Equal(t, "2026-10-16T03:00:00Z", sync["nextRun"])
	assert.Nil(t, sync["lastRun"])
	publish := jobs[1].(map[string]any)
	assert.EqualValues(t, 42, publish["lastRun"].(map[string]any)["durationMs"])
}
