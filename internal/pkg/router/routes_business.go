package router

import (
	"github.com/gofiber/fiber/v2"
)

func (h ApiRouter) registerBusinessRoutes(api fiber.Router) {
	ctl := h.deps.Controllers

	business := api.Group("/business", requireBusiness)
	business.Get("/profile", ctl.Business.HandleProfile)
	business.Put("/profile", ctl.Business.HandleProfileUpdate)

	business.Get("/services", ctl.Business.HandleServices)
	business.Post("/services", ctl.Business.HandleServiceCreate)
	business.Get("/services/:id", ctl.Business.HandleService)
	business.Put("/services/:id", ctl.Business.HandleServiceUpdate)
	business.Delete("/services/:id", ctl.Business.HandleServiceDelete)

	business.Get("/inquiries", ctl.Inquiry.HandleBusinessList)
	business.Get("/inquiries/:id", ctl.Inquiry.HandleBusinessGet)
	business.Patch("/inquiries/:id", ctl.Inquiry.HandleBusinessUpdateStatus)

	// Instagram account and publishing
	ig := api.Group("/instagram", requireBusiness)
	ig.Get("/auth", ctl.Instagram.HandleAuthURL)
	ig.Post("/auth", ctl.Instagram.HandleAuthCallback)
	ig.Delete("/auth", ctl.Instagram.HandleDisconnect)
	ig.Post("/sync", ctl.Instagram.HandleSync)
	ig.Post("/publish", ctl.Instagram.HandlePublish)
	ig.Get("/schedule", ctl.Instagram.HandleScheduleList)
	ig.Post("/schedule", ctl.Instagram.HandleScheduleCreate)
	ig.Delete("/schedule/:id", ctl.Instagram.HandleScheduleDelete)

	// Subscriptions act on the session company, or on companyId for admins
	sub := api.Group("/subscription", requireBusinessOrAdmin)
	sub.Post("/create", ctl.Subscription.HandleCreate)
	sub.Post("/change-plan", ctl.Subscription.HandleChangePlan)
	sub.Post("/cancel", ctl.Subscription.HandleCancel)
}
