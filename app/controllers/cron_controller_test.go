package controllers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuelReschke/Tochigi/internal/pkg/contentsync"
	"github.com/ManuelReschke/Tochigi/internal/pkg/logger"
)

type fakeRunner struct {
	res *contentsync.Result
	err error
}

func (f fakeRunner) RunAll(context.Context) (*contentsync.Result, error) {
	return f.res, f.err
}

func setupCronApp(runner SyncRunner) *fiber.App {
	ctl := NewCronController(runner, logger.Nop())
	ctl.now = func() time.Time { return time.Date(2026, 10, 16, 3, 0, 0, 0, time.UTC) }
	app := newTestApp()
	app.Post("/api/cron/instagram-sync", ctl.HandleContentSync)
	return app
}

func TestCronSyncReportsResults(t *testing.T) {
	app := setupCronApp(fakeRunner{res: &contentsync.Result{Total: 3, Success: 2, Failed: 1}})

	resp := call(t, app, "POST", "/api/cron/instagram-sync", nil)

	require.Equal(t, fiber.StatusOK, resp.Status)
	assert.Equal(t, true, resp.Body["success"])
	assert.Equal(t, "2026-10-16T03:00:00Z", resp.Body["timestamp"])
	results := resp.Body["results"].(map[string]any)
	assert.EqualValues(t, 3, results["total"])
	assert.EqualValues(t, 1, results["failed"])
}

func TestCronSyncFailure(t *testing.T) {
	app := setupCronApp(fakeRunner{err: errors.New("db down")})

	resp := call(t, app, "POST", "/api/cron/instagram-sync", nil)

	assert.Equal(t, fiber.StatusInternalServerError, resp.Status)
	assert.NotContains(t, string(resp.Raw), "db down")
}
