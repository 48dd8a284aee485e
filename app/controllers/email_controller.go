package controllers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/ManuelReschke/Tochigi/internal/pkg/apperror"
	"github.com/ManuelReschke/Tochigi/internal/pkg/mail"
	"github.com/ManuelReschke/Tochigi/internal/pkg/validation"
)

type TestEmailRequest struct {
	Type string `json:"type" validate:"required"`
	To   string `json:"to" validate:"required,email"`
}

// EmailController sends template samples so the layouts can be checked in a
// real inbox. Disabled in production.
type EmailController struct {
	mailer   mail.Mailer
	isProd   bool
	validate *validation.Validator
}

func NewEmailController(mailer mail.Mailer, isProd bool, validate *validation.Validator) *EmailController {
	return &EmailController{mailer: mailer, isProd: isProd, validate: validate}
}

func (ec *EmailController) HandleTest(c *fiber.Ctx) error {
	if ec.isProd {
		return apperror.BadRequest("Test emails are not allowed in production")
	}

	var req TestEmailRequest
	if err := bindJSON(c, ec.validate, &req); err != nil {
		return err
	}

	msg, err := mail.Sample(req.Type, req.To)
	if err != nil {
		return validation.FieldError("type", "must be one of: "+strings.Join(mail.SampleKinds, ", "))
	}
	if err := ec.mailer.Send(c.UserContext(), msg); err != nil {
		return apperror.New(fiber.StatusBadGateway, "EMAIL_ERROR", "Failed to send test email").Wrap(err)
	}
	return c.JSON(fiber.Map{
		"success":  true,
		"template": req.Type,
		"sentTo":   req.To,
		"subject":  msg.Subject,
	})
}
