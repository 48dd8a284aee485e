package controllers

import (
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/Tochigi/app/models"
	"github.com/ManuelReschke/Tochigi/app/repository"
	"github.com/ManuelReschke/Tochigi/internal/pkg/apperror"
	"github.com/ManuelReschke/Tochigi/internal/pkg/logger"
	"github.com/ManuelReschke/Tochigi/internal/pkg/session"
	"github.com/ManuelReschke/Tochigi/internal/pkg/usercontext"
	"github.com/ManuelReschke/Tochigi/internal/pkg/validation"
)

// TokenIssuer signs bearer tokens for a session.
type TokenIssuer interface {
	Issue(s session.Session) (string, time.Time, error)
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest creates a company together with its owner login.
type RegisterRequest struct {
	Name        string  `json:"name" validate:"required,max=150"`
	Email       string  `json:"email" validate:"required,email,max=200"`
	Password    string  `json:"password" validate:"required,min=8"`
	CompanyName string  `json:"companyName" validate:"required,max=200"`
	CompanyMail string  `json:"companyEmail" validate:"omitempty,email"`
	Phone       string  `json:"phone" validate:"required,min=10,max=30"`
	Address     string  `json:"address" validate:"required,max=255"`
	CategoryID  string  `json:"categoryId" validate:"required"`
	Description *string `json:"description"`
}

type AuthResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expiresAt"`
	User      *models.User `json:"user"`
}

// AuthController handles operator login and company sign up
type AuthController struct {
	users      repository.UserRepository
	categories repository.CategoryRepository
	tokens     TokenIssuer
	validate   *validation.Validator
	log        *logger.Logger
	now        func() time.Time
}

func NewAuthController(users repository.UserRepository, categories repository.CategoryRepository, tokens TokenIssuer, validate *validation.Validator, log *logger.Logger) *AuthController {
	return &AuthController{
		users:      users,
		categories: categories,
		tokens:     tokens,
		validate:   validate,
		log:        log.Named("auth"),
		now:        time.Now,
	}
}

// HandleLogin exchanges email and password for a bearer token
func (ac *AuthController) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := bindJSON(c, ac.validate, &req); err != nil {
		return err
	}

	user, err := ac.users.GetByEmail(strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.Unauthorized("Invalid email or password")
		}
		return err
	}
	if !user.CheckPassword(req.Password) {
		ac.log.Info().Str("ip", GetClientIP(c)).Str("userId", user.ID).Msg("failed login")
		return apperror.Unauthorized("Invalid email or password")
	}
	if !user.IsActive() {
		return apperror.Forbidden("Account is disabled")
	}

	if err := ac.users.TouchLastLogin(user.ID, ac.now()); err != nil {
		ac.log.Warn().Err(err).Str("userId", user.ID).Msg("could not record login time")
	}
	return ac.respondWithToken(c, fiber.StatusOK, user)
}

// HandleRegister creates a company and its business owner in one step
func (ac *AuthController) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := bindJSON(c, ac.validate, &req); err != nil {
		return err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := ac.users.GetByEmail(email); err == nil {
		return apperror.Conflict("Email is already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	ok, err := ac.categories.Exists(req.CategoryID)
	if err != nil {
		return err
	}
	if !ok {
		return apperror.NotFound("Category not found")
	}

	// CreateUser rejects business users without a company, so validate with a
	// placeholder id; the repository binds the real one inside the transaction.
	placeholder := "pending"
	owner, err := models.CreateUser(strings.TrimSpace(req.Name), email, req.Password, models.ROLE_BUSINESS, &placeholder)
	if err != nil {
		return apperror.BadRequest("Invalid user data").Wrap(err)
	}

	companyEmail := strings.TrimSpace(req.CompanyMail)
	if companyEmail == "" {
		companyEmail = email
	}
	company := &models.Company{
		Name:        strings.TrimSpace(req.CompanyName),
		Email:       companyEmail,
		Phone:       strings.TrimSpace(req.Phone),
		Address:     strings.TrimSpace(req.Address),
		Description: req.Description,
		CategoryID:  req.CategoryID,
		IsActive:    true,
	}
	if err := ac.users.RegisterCompany(company, owner); err != nil {
		return err
	}

	ac.log.Info().Str("companyId", company.ID).Str("userId", owner.ID).Msg("company registered")
	return ac.respondWithToken(c, fiber.StatusCreated, owner)
}

// HandleMe returns the user behind the bearer token
func (ac *AuthController) HandleMe(c *fiber.Ctx) error {
	s, _ := usercontext.Get(c)
	user, err := ac.users.GetByID(s.SubjectID)
	if err != nil {
		return notFound(err, "User not found")
	}
	return c.JSON(fiber.Map{
		"user":    user,
		"session": s,
	})
}

func (ac *AuthController) respondWithToken(c *fiber.Ctx, status int, user *models.User) error {
	s := session.Session{SubjectID: user.ID, Role: user.Role}
	if user.CompanyID != nil {
		s.CompanyID = *user.CompanyID
	}
	token, exp, err := ac.tokens.Issue(s)
	if err != nil {
		return apperror.Internal("").Wrap(err)
	}
	return c.Status(status).JSON(AuthResponse{Token: token, ExpiresAt: exp, User: user})
}
