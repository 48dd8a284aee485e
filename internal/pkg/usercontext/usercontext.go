package usercontext

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/internal/pkg/session"
)

// Locals key holding the resolved session
const KeySession = "session"

// Set stores the resolved session for the rest of the request.
func Set(c *fiber.Ctx, s session.Session) {
	c.Locals(KeySession, s)
}

// Get returns the session of the request, ok is false for anonymous requests.
func Get(c *fiber.Ctx) (session.Session, bool) {
	s, ok := c.Locals(KeySession).(session.Session)
	return s, ok
}

// IsLoggedIn checks if the request carries a valid session
func IsLoggedIn(c *fiber.Ctx) bool {
	_, ok := Get(c)
	return ok
}

// IsAdmin checks if the current user is a platform admin
func IsAdmin(c *fiber.Ctx) bool {
	s, ok := Get(c)
	return ok && s.Role == models.ROLE_ADMIN
}

// GetUserID returns the current user's ID, or "" if not logged in
func GetUserID(c *fiber.Ctx) string {
	s, _ := Get(c)
	return s.SubjectID
}

// GetCompanyID returns the company bound to the session, or "" for admins
// and anonymous requests.
func GetCompanyID(c *fiber.Ctx) string {
	s, _ := Get(c)
	return s.CompanyID
}
