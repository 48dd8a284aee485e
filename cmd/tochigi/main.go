package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/ManuelReschke/Tochigi/app/controllers"
	"github.com/ManuelReschke/Tochigi/app/repository"
	"github.com/ManuelReschke/Tochigi/internal/pkg/apperror"
	"github.com/ManuelReschke/Tochigi/internal/pkg/billing"
	"github.com/ManuelReschke/Tochigi/internal/pkg/cache"
	"github.com/ManuelReschke/Tochigi/internal/pkg/config"
	"github.com/ManuelReschke/Tochigi/internal/pkg/contentsync"
	"github.com/ManuelReschke/Tochigi/internal/pkg/database"
	"github.com/ManuelReschke/Tochigi/internal/pkg/env"
	"github.com/ManuelReschke/Tochigi/internal/pkg/inquiry"
	"github.com/ManuelReschke/Tochigi/internal/pkg/instagram"
	"github.com/ManuelReschke/Tochigi/internal/pkg/jobqueue"
	"github.com/ManuelReschke/Tochigi/internal/pkg/logger"
	"github.com/ManuelReschke/Tochigi/internal/pkg/mail"
	"github.com/ManuelReschke/Tochigi/internal/pkg/mediamirror"
	"github.com/ManuelReschke/Tochigi/internal/pkg/router"
	"github.com/ManuelReschke/Tochigi/internal/pkg/session"
	"github.com/ManuelReschke/Tochigi/internal/pkg/statistics"
	"github.com/ManuelReschke/Tochigi/internal/pkg/validation"
)

const shutdownTimeout = 15 * time.Second

func main() {
	env.SetupEnvFile()

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Config{}).Fatal().Err(err).Msg("failed to load configuration")
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	app, jobs, err := NewApplication(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise application")
	}

	jobs.Start()

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			log.Fatal().Err(err).Msg("http server stopped")
		}
	}()
	log.Info().Str("addr", cfg.App.Addr()).Str("env", cfg.App.Env).Msg("tochigi api listening")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	if err := jobs.Stop(); err != nil {
		log.Error().Err(err).Msg("failed to stop background jobs")
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Error().Err(err).Msg("failed to shut down http server")
	}
}

// NewApplication wires every service and returns the fiber app together with
// the background job manager, which the caller starts.
func NewApplication(cfg *config.Config, log *logger.Logger) (*fiber.App, *jobqueue.Manager, error) {
	db, err := database.Open(cfg.DB, log, cfg.App.IsDev())
	if err != nil {
		return nil, nil, err
	}
	if cfg.App.IsDev() {
		if err := database.AutoMigrate(db); err != nil {
			return nil, nil, err
		}
	}

	store := cache.New(cfg.Cache, log)
	repos := repository.NewFactory(db).GetRepositories()
	validate := validation.New()
	mailer := mail.NewSMTPMailer(cfg.Mail, log)

	sessions, err := session.NewManager(cfg.Session)
	if err != nil {
		return nil, nil, err
	}

	// Billing
	catalog := billing.NewCatalog(cfg.Stripe)
	subscriptions := billing.NewServiceFromDB(db, billing.NewStripeGateway(cfg.Stripe.SecretKey), catalog, mailer, log, cfg.App.PublicURL)
	webhooks := billing.NewWebhookRouter(subscriptions, cfg.Stripe.WebhookSecret)

	// Instagram
	ig := instagram.NewClient(cfg.Instagram)
	syncer := contentsync.NewSyncer(repos.Company, repos.ContentPost, ig, mailer, log, cfg.Cron.SyncDelay)
	if cfg.Media.Enabled {
		mirror, err := mediamirror.New(context.Background(), cfg.Media, log)
		if err != nil {
			return nil, nil, err
		}
		syncer.WithMirror(mirror)
	}
	publisher := contentsync.NewPublisher(repos.Company, repos.ContentPost, repos.ScheduledPost, ig, log)

	jobs, err := jobqueue.NewManager(cfg.Cron, syncer, publisher, store, log)
	if err != nil {
		return nil, nil, err
	}
	if err := jobs.RegisterTokenRefresh(contentsync.NewTokenRefresher(repos.Company, ig, log), cfg.Cron.TokenRefreshInterval); err != nil {
		return nil, nil, err
	}

	stats := statistics.NewService(repos.Company, repos.Inquiry, repos.ContentPost, repos.Subscription, catalog, store, log)
	inquiries := inquiry.NewService(repos.Company, repos.Inquiry, mailer, validate, log, cfg.App.PublicURL)

	ctl := router.Controllers{
		Auth:         controllers.NewAuthController(repos.User, repos.Category, sessions, validate, log),
		Directory:    controllers.NewDirectoryController(repos.Company, repos.Service, repos.Category, store, validate),
		Inquiry:      controllers.NewInquiryController(inquiries, repos.Inquiry, validate),
		Business:     controllers.NewBusinessController(repos.Company, repos.Category, repos.Service, validate, log),
		Subscription: controllers.NewSubscriptionController(subscriptions, webhooks, validate, log),
		Instagram: controllers.NewInstagramController(
			repos.Company, repos.ContentPost, repos.ScheduledPost,
			ig, instagram.NewStateSigner(cfg.Session.Secret),
			syncer, publisher, store, validate, log,
		),
		Admin: controllers.NewAdminController(stats, repos.Company, jobs, validate, log),
		Email: controllers.NewEmailController(mailer, cfg.App.IsProd(), validate),
		Cron:  controllers.NewCronController(syncer, log),
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ErrorHandler: apperror.Handler(log),
		BodyLimit:    4 * 1024 * 1024,
	})

	// recovery and logging
	app.Use(recover.New(), fiberlogger.New())

	// ROUTER
	router.InstallRouter(app, router.Deps{
		Controllers: ctl,
		Sessions:    sessions,
		LimiterStorage: redisstorage.New(redisstorage.Config{
			Host:     cfg.Cache.Host,
			Port:     cfg.Cache.Port,
			Password: cfg.Cache.Password,
			Database: 1,
		}),
		RateLimit:  cfg.RateLimit,
		CronSecret: cfg.Cron.Secret,
		Metrics:    cfg.Metrics,
		DocsFile:   docsFile(),
	})

	return app, jobs, nil
}

// docsFile finds the OpenAPI document from the project root or cmd/tochigi.
func docsFile() string {
	for _, base := range []string{"./", "../../"} {
		path := base + "docs/openapi.yml"
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
