package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/Tochigi/internal/pkg/middleware"
)

func (h ApiRouter) registerPublicRoutes(api fiber.Router) {
	ctl := h.deps.Controllers

	// Auth
	api.Post("/auth/login", ctl.Auth.HandleLogin)
	api.Post("/auth/register", ctl.Auth.HandleRegister)
	api.Get("/auth/me", middleware.RequireSession, ctl.Auth.HandleMe)

	// Directory
	api.Get("/companies", ctl.Directory.HandleCompanies)
	api.Get("/companies/:id", ctl.Directory.HandleCompany)
	api.Get("/companies/:id/services", ctl.Directory.HandleCompanyServices)
	api.Get("/categories", ctl.Directory.HandleCategories)

	// Inquiry cart submit
	api.Post("/inquiries", ctl.Inquiry.HandleCreate)

	// Instagram galleries
	api.Get("/instagram/feed", ctl.Instagram.HandleFeed)
	api.Get("/instagram/posts", ctl.Instagram.HandlePosts)

	// Plans
	api.Get("/subscription/plans", ctl.Subscription.HandlePlans)

	// Billing provider webhooks (signature-verified in controller)
	api.Post("/webhooks/stripe", ctl.Subscription.HandleStripeWebhook)

	// External schedulers
	cron := api.Group("/cron", middleware.RequireCronSecret(h.deps.CronSecret))
	cron.Get("/content-sync", ctl.Cron.HandleContentSync)
	cron.Post("/content-sync", ctl.Cron.HandleContentSync)
}
