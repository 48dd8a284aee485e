package apperror

import (
	"errors"

	"github.com/go-sql-driver/mysql"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/ManuelReschke/Tochigi/internal/pkg/logger"
)

const (
	mysqlDuplicateEntry   = 1062
	mysqlRowIsReferenced  = 1451
	mysqlNoReferencedRow  = 1452
	mysqlNoReferencedRow2 = 1216
)

// From maps any error to an *Error. Database errors get their dedicated codes;
// everything unknown becomes a 500 with a generic message.
func From(err error) *Error {
	if err == nil {
		return nil
	}

	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NotFound("Record not found").Wrap(err)
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return New(fiber.StatusConflict, CodeUniqueViolation, "A record with this value already exists").Wrap(err)
	}
	if errors.Is(err, gorm.ErrForeignKeyViolated) {
		return New(fiber.StatusBadRequest, CodeForeignKeyViolation, "Referenced record does not exist").Wrap(err)
	}

	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry:
			return New(fiber.StatusConflict, CodeUniqueViolation, "A record with this value already exists").Wrap(err)
		case mysqlRowIsReferenced, mysqlNoReferencedRow, mysqlNoReferencedRow2:
			return New(fiber.StatusBadRequest, CodeForeignKeyViolation, "Referenced record does not exist").Wrap(err)
		}
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return New(fiberErr.Code, codeForStatus(fiberErr.Code), fiberErr.Message)
	}

	return Internal("").Wrap(err)
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return CodeNotFound
	case fiber.StatusUnauthorized:
		return CodeUnauthorized
	case fiber.StatusForbidden:
		return CodeForbidden
	case fiber.StatusConflict:
		return CodeConflict
	case fiber.StatusTooManyRequests:
		return CodeTooManyRequests
	}
	if status >= 500 {
		return CodeInternal
	}
	return CodeBadRequest
}

// Body renders the error envelope {error:{message, code, details?}}.
func (e *Error) Body() fiber.Map {
	body := fiber.Map{
		"message": e.Message,
		"code":    e.Code,
	}
	if e.Details != nil {
		body["details"] = e.Details
	}
	return fiber.Map{"error": body}
}

// Handler is the fiber ErrorHandler producing the JSON error envelope.
func Handler(log *logger.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		appErr := From(err)
		if appErr.Status >= fiber.StatusInternalServerError {
			log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Msg("request failed")
		} else {
			log.Debug().Err(err).Str("path", c.Path()).Int("status", appErr.Status).Msg("request rejected")
		}
		return c.Status(appErr.Status).JSON(appErr.Body())
	}
}
