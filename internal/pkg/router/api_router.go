package router

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/ManuelReschke/Tochigi/app/controllers"
	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/internal/pkg/apperror"
	"github.com/ManuelReschke/Tochigi/internal/pkg/middleware"
)

type ApiRouter struct {
	deps Deps
}

func NewApiRouter(deps Deps) *ApiRouter {
	return &ApiRouter{deps: deps}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api",
		cors.New(cors.Config{
			AllowHeaders: "Origin, Content-Type, Accept, Authorization, Stripe-Signature",
		}),
		h.limiter(),
		h.sessions(),
	)
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	h.registerPublicRoutes(api)
	h.registerBusinessRoutes(api)
	h.registerAdminRoutes(api)
}

// machineEndpoint matches the routes called by the billing provider and
// external schedulers. They carry their own credentials.
func machineEndpoint(c *fiber.Ctx) bool {
	p := c.Path()
	return strings.HasPrefix(p, "/api/webhooks/") || strings.HasPrefix(p, "/api/cron/")
}

// sessions resolves bearer tokens everywhere except on machine endpoints,
// where the Authorization header holds the cron secret.
func (h ApiRouter) sessions() fiber.Handler {
	resolve := middleware.SessionMiddleware(h.deps.Sessions)
	return func(c *fiber.Ctx) error {
		if machineEndpoint(c) {
			return c.Next()
		}
		return resolve(c)
	}
}

// limiter throttles per client address. Machine endpoints are exempt.
func (h ApiRouter) limiter() fiber.Handler {
	max := h.deps.RateLimit.Max
	if max <= 0 {
		max = 120
	}
	expiration := h.deps.RateLimit.Expiration
	if expiration <= 0 {
		expiration = time.Minute
	}
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: expiration,
		Storage:    h.deps.LimiterStorage,
		KeyGenerator: func(c *fiber.Ctx) string {
			return "limiter:" + controllers.GetClientIP(c)
		},
		Next: machineEndpoint,
		LimitReached: func(c *fiber.Ctx) error {
			return apperror.New(fiber.StatusTooManyRequests, apperror.CodeTooManyRequests, "Too many requests, please try again later")
		},
	})
}

var (
	requireBusiness        = middleware.RequireRole(models.ROLE_BUSINESS)
	requireAdmin           = middleware.RequireRole(models.ROLE_ADMIN)
	requireBusinessOrAdmin = middleware.RequireRole(models.ROLE_BUSINESS, models.ROLE_ADMIN)
)
