package router

import (
	"os"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/monitor"
)

// SystemRouter serves the operational endpoints: health, metrics and the
// OpenAPI document.
type SystemRouter struct {
	deps Deps
}

func NewSystemRouter(deps Deps) *SystemRouter {
	return &SystemRouter{deps: deps}
}

func (s SystemRouter) InstallRouter(app *fiber.App) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// fiber metrics
	if s.deps.Metrics.Password != "" {
		app.Get("/metrics", basicauth.New(basicauth.Config{
			Users: map[string]string{
				s.deps.Metrics.User: s.deps.Metrics.Password,
			},
		}), monitor.New(monitor.Config{Title: "Tochigi Metrics"}))
	}

	// SWAGGER / OPENAPI
	if s.deps.DocsFile != "" {
		if _, err := os.Stat(s.deps.DocsFile); err == nil {
			app.Use(swagger.New(swagger.Config{
				BasePath: "/docs/api/",
				FilePath: s.deps.DocsFile,
				Path:     "v1",
				Title:    "Tochigi API",
			}))
		}
	}
}
