package router

import (
	"github.com/gofiber/fiber/v2"
)

func (h ApiRouter) registerAdminRoutes(api fiber.Router) {
	ctl := h.deps.Controllers

	admin := api.Group("/admin", requireAdmin)
	admin.Get("/stats", ctl.Admin.HandleStats)
	admin.Get("/revenue", ctl.Admin.HandleRevenue)
	admin.Get("/companies", ctl.Admin.HandleCompanies)
	admin.Patch("/companies", ctl.Admin.HandleCompanyUpdate)
	admin.Delete("/companies", ctl.Admin.HandleCompanyDelete)
	admin.Get("/jobs", ctl.Admin.HandleJobs)
	admin.Post("/email/test", ctl.Email.HandleTest)

	// Inquiry inbox of the platform
	api.Get("/inquiries", requireAdmin, ctl.Inquiry.HandleList)
	api.Get("/inquiries/:id", requireAdmin, ctl.Inquiry.HandleGet)
	api.Patch("/inquiries/:id", requireAdmin, ctl.Inquiry.HandleUpdateStatus)
}
