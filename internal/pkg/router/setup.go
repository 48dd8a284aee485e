package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/Tochigi/app/controllers"
	"github.com/ManuelReschke/Tochigi/internal/pkg/config"
	"github.com/ManuelReschke/Tochigi/internal/pkg/middleware"
)

// Router installs one group of routes on the app.
type Router interface {
	InstallRouter(app *fiber.App)
}

// Controllers bundles every HTTP handler set of the API.
type Controllers struct {
	Auth         *controllers.AuthController
	Directory    *controllers.DirectoryController
	Inquiry      *controllers.InquiryController
	Business     *controllers.BusinessController
	Subscription *controllers.SubscriptionController
	Instagram    *controllers.InstagramController
	Admin        *controllers.AdminController
	Email        *controllers.EmailController
	Cron         *controllers.CronController
}

// Deps is everything the routers need besides the controllers.
type Deps struct {
	Controllers Controllers
	Sessions    middleware.TokenParser
	// LimiterStorage backs the rate limiter; nil keeps counters in memory.
	LimiterStorage fiber.Storage
	RateLimit      config.RateLimitConfig
	CronSecret     string
	Metrics        config.MetricsConfig
	DocsFile       string
}

func InstallRouter(app *fiber.App, deps Deps) {
	// system routes first so /metrics and the docs skip the API limiter
	setup(app, NewSystemRouter(deps), NewApiRouter(deps))
}

func setup(app *fiber.App, router ...Router) {
	for _, r := range router {
		r.InstallRouter(app)
	}
}
