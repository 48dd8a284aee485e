package controllers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/Tochigi/internal/pkg/apperror"
	"github.com/ManuelReschke/Tochigi/internal/pkg/contentsync"
	"github.com/ManuelReschke/Tochigi/internal/pkg/logger"
)

const cronSyncTimeout = 30 * time.Minute

// SyncRunner syncs every connected company.
type SyncRunner interface {
	RunAll(ctx context.Context) (*contentsync.Result, error)
}

// CronController exposes the content sync to external schedulers
type CronController struct {
	syncer SyncRunner
	log    *logger.Logger
	now    func() time.Time
}

func NewCronController(syncer SyncRunner, log *logger.Logger) *CronController {
	return &CronController{syncer: syncer, log: log.Named("cron"), now: time.Now}
}

// HandleContentSync runs the Instagram sync for all companies and reports the
// per-company outcome
func (cc *CronController) HandleContentSync(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), cronSyncTimeout)
	defer cancel()

	cc.log.Info().Str("ip", GetClientIP(c)).Msg("content sync triggered")
	res, err := cc.syncer.RunAll(ctx)
	if err != nil {
		return apperror.Internal("Failed to run Instagram sync cron job").Wrap(err)
	}
	return c.JSON(fiber.Map{
		"success":   true,
		"message":   "Instagram sync completed",
		"results":   res,
		"timestamp": cc.now().UTC().Format(time.RFC3339),
	})
}
