package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ManuelReschke/Tochigi/internal/pkg/apperror"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Validator wraps go-playground/validator and reports failures keyed by JSON
// field path (e.g. "priceFrom" or "items[0].name").
type Validator struct {
	v *validator.Validate
}

// New creates a validator with the custom rules registered.
func New() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	_ = v.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	return &Validator{v: v}
}

// Struct validates s and returns an *apperror.Error with code VALIDATION_ERROR
// on failure.
func (val *Validator) Struct(s any) error {
	err := val.v.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperror.Validation(Details(verrs))
	}
	return apperror.BadRequest("Invalid request").Wrap(err)
}

// Details converts validator errors into a field path -> messages map.
func Details(verrs validator.ValidationErrors) map[string][]string {
	out := make(map[string][]string, len(verrs))
	for _, fe := range verrs {
		path := fieldPath(fe.Namespace())
		out[path] = append(out[path], message(fe))
	}
	return out
}

// FieldError builds a single-field validation error for checks that span
// several fields (e.g. price ranges).
func FieldError(field, msg string) error {
	return apperror.Validation(map[string][]string{field: {msg}})
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "email":
		return "must be a valid email"
	case "min":
		if isLengthKind(fe.Kind()) {
			return fmt.Sprintf("must contain at least %s characters", fe.Param())
		}
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must contain at least %s items", fe.Param())
		}
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		if isLengthKind(fe.Kind()) {
			return fmt.Sprintf("must contain at most %s characters", fe.Param())
		}
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "slug":
		return "may only contain lowercase letters, digits and hyphens"
	case "url":
		return "must be a valid URL"
	case "uuid", "uuid4":
		return "must be a valid id"
	}
	return fmt.Sprintf("failed on %s", fe.Tag())
}

func isLengthKind(k reflect.Kind) bool {
	return k == reflect.String
}
