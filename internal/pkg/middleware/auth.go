package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/internal/pkg/apperror"
	"github.com/ManuelReschke/Tochigi/internal/pkg/session"
	"github.com/ManuelReschke/Tochigi/internal/pkg/usercontext"
)

// TokenParser resolves a bearer token into a session.
type TokenParser interface {
	Parse(token string) (session.Session, error)
}

// SessionMiddleware resolves the bearer token once per request. Requests
// without a token continue anonymously; an invalid token is rejected.
func SessionMiddleware(parser TokenParser) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := session.BearerToken(c.Get(fiber.HeaderAuthorization))
		if token == "" {
			return c.Next()
		}
		s, err := parser.Parse(token)
		if err != nil {
			return apperror.Unauthorized("Invalid or expired session").Wrap(err)
		}
		usercontext.Set(c, s)
		return c.Next()
	}
}

// RequireSession rejects anonymous requests with 401.
func RequireSession(c *fiber.Ctx) error {
	if !usercontext.IsLoggedIn(c) {
		return apperror.Unauthorized("Authentication required")
	}
	return c.Next()
}

// RequireRole allows only sessions with one of roles. A business session must
// also be bound to a company.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		s, ok := usercontext.Get(c)
		if !ok {
			return apperror.Unauthorized("Authentication required")
		}
		for _, r := range roles {
			if s.Role != r {
				continue
			}
			if r == models.ROLE_BUSINESS && s.CompanyID == "" {
				return apperror.Forbidden("Session is not bound to a company")
			}
			return c.Next()
		}
		return apperror.Forbidden("Insufficient permissions")
	}
}

// RequireCronSecret guards scheduler endpoints with a static bearer secret.
// An empty secret leaves the endpoint open.
func RequireCronSecret(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if secret == "" {
			return c.Next()
		}
		given := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
		if subtle.ConstantTimeCompare([]byte(given), []byte("Bearer "+secret)) != 1 {
			return apperror.Unauthorized("Unauthorized")
		}
		return c.Next()
	}
}
