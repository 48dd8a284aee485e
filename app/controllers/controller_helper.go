package controllers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/Tochigi/internal/pkg/apperror"
	"github.com/ManuelReschke/Tochigi/internal/pkg/usercontext"
	"github.com/ManuelReschke/Tochigi/internal/pkg/validation"
)

// bindJSON decodes the request body into dst and validates it.
func bindJSON(c *fiber.Ctx, v *validation.Validator, dst any) error {
	if err := c.BodyParser(dst); err != nil {
		return apperror.BadRequest("Invalid request body").Wrap(err)
	}
	if v == nil {
		return nil
	}
	return v.Struct(dst)
}

// notFound turns gorm's record-not-found into a 404 carrying msg and passes
// every other error through.
func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperror.NotFound(msg).Wrap(err)
	}
	return err
}

// targetCompany resolves which company a request acts on. Business sessions
// always act on their own company; admins must name one explicitly.
func targetCompany(c *fiber.Ctx, explicit string) (string, error) {
	if id := usercontext.GetCompanyID(c); id != "" {
		return id, nil
	}
	if usercontext.IsAdmin(c) {
		if id := strings.TrimSpace(explicit); id != "" {
			return id, nil
		}
		return "", apperror.BadRequest("companyId is required")
	}
	return "", apperror.Unauthorized("Authentication required")
}

// GetClientIP returns the originating client address, honouring the
// Cloudflare and proxy headers before falling back to the socket address.
func GetClientIP(c *fiber.Ctx) string {
	if ip := strings.TrimSpace(c.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(c.Get("X-Real-IP")); ip != "" {
		return ip
	}
	ip := c.IP()
	// IPv4-mapped IPv6
	if strings.HasPrefix(ip, "::ffff:") && strings.Contains(ip, ".") {
		return strings.TrimPrefix(ip, "::ffff:")
	}
	return ip
}
