package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/app/repository"
	"github.com/ManuelReschke/Tochigi/internal/pkg/jobqueue"
	"github.com/ManuelReschke/Tochigi/internal/pkg/logger"
	"github.com/ManuelReschke/Tochigi/internal/pkg/statistics"
	"github.com/ManuelReschke/Tochigi/internal/pkg/usercontext"
	"github.com/ManuelReschke/Tochigi/internal/pkg/validation"
)

// StatsProvider computes the cached admin reports.
type StatsProvider interface {
	AdminStats(ctx context.Context) (*statistics.AdminStats, error)
	Revenue(ctx context.Context) (*statistics.RevenueReport, error)
	Invalidate(ctx context.Context)
}

// JobInspector exposes the state of the background jobs.
type JobInspector interface {
	IsRunning() bool
	Jobs() []string
	NextRun(name string) (time.Time, bool)
	LastRun(ctx context.Context, name string) (*jobqueue.RunStats, bool)
}

type UpdateCompanyRequest struct {
	CompanyID string `json:"companyId" validate:"required"`
	IsActive  *bool  `json:"isActive" validate:"required"`
}

// JobStatus is one background job as shown on the admin dashboard.
type JobStatus struct {
	Name    string             `json:"name"`
	NextRun *time.Time         `json:"nextRun,omitempty"`
	LastRun *jobqueue.RunStats `json:"lastRun,omitempty"`
}

// AdminController handles admin-related HTTP requests
type AdminController struct {
	stats     StatsProvider
	companies repository.CompanyRepository
	jobs      JobInspector
	validate  *validation.Validator
	log       *logger.Logger
}

// NewAdminController creates a new admin controller. jobs may be nil when the
// scheduler is disabled.
func NewAdminController(stats StatsProvider, companies repository.CompanyRepository, jobs JobInspector, validate *validation.Validator, log *logger.Logger) *AdminController {
	return &AdminController{
		stats:     stats,
		companies: companies,
		jobs:      jobs,
		validate:  validate,
		log:       log.Named("admin"),
	}
}

// HandleStats returns the platform totals for the dashboard
func (ac *AdminController) HandleStats(c *fiber.Ctx) error {
	stats, err := ac.stats.AdminStats(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(stats)
}

// HandleRevenue returns the revenue report
func (ac *AdminController) HandleRevenue(c *fiber.Ctx) error {
	report, err := ac.stats.Revenue(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(report)
}

// HandleCompanies lists every company with subscription and relation counts
func (ac *AdminController) HandleCompanies(c *fiber.Ctx) error {
	companies, err := ac.companies.ListForAdmin()
	if err != nil {
		return err
	}
	if companies == nil {
		companies = []models.CompanyWithCounts{}
	}
	return c.JSON(fiber.Map{"companies": companies})
}

// HandleCompanyUpdate toggles whether a company is listed
func (ac *AdminController) HandleCompanyUpdate(c *fiber.Ctx) error {
	var req UpdateCompanyRequest
	if err := bindJSON(c, ac.validate, &req); err != nil {
		return err
	}
	if _, err := ac.companies.GetByID(req.CompanyID); err != nil {
		return notFound(err, "Company not found")
	}

	company, err := ac.companies.SetActive(req.CompanyID, *req.IsActive)
	if err != nil {
		return err
	}
	ac.stats.Invalidate(c.UserContext())
	ac.log.Info().
		Str("companyId", company.ID).
		Bool("isActive", company.IsActive).
		Str("adminId", usercontext.GetUserID(c)).
		Msg("company visibility changed")
	return c.JSON(fiber.Map{"success": true, "company": company})
}

// HandleCompanyDelete removes a company with its services, posts, links,
// users and subscription
func (ac *AdminController) HandleCompanyDelete(c *fiber.Ctx) error {
	id := c.Query("id")
	if id == "" {
		return validation.FieldError("id", "is required")
	}
	if err := ac.companies.Delete(id); err != nil {
		return notFound(err, "Company not found")
	}
	ac.stats.Invalidate(c.UserContext())
	ac.log.Warn().Str("companyId", id).Str("adminId", usercontext.GetUserID(c)).Msg("company deleted")
	return c.JSON(fiber.Map{"success": true})
}

// HandleJobs reports the background jobs with their next and last run
func (ac *AdminController) HandleJobs(c *fiber.Ctx) error {
	if ac.jobs == nil {
		return c.JSON(fiber.Map{"running": false, "jobs": []JobStatus{}})
	}

	names := ac.jobs.Jobs()
	out := make([]JobStatus, 0, len(names))
	for _, name := range names {
		st := JobStatus{Name: name}
		if next, ok := ac.jobs.NextRun(name); ok {
			st.NextRun = &next
		}
		if last, ok := ac.jobs.LastRun(c.UserContext(), name); ok {
			st.LastRun = last
		}
		out = append(out, st)
	}
	return c.JSON(fiber.Map{"running": ac.jobs.IsRunning(), "jobs": out})
}
