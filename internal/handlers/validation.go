package handlers

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/BradenHooton/healthdesk/internal/models"
	pkgauth "github.com/BradenHooton/healthdesk/pkg/auth"
	pkghttp "github.com/BradenHooton/healthdesk/pkg/http"
)

// DateLayout is the wire format of dateOfBirth
const DateLayout = "2006-01-02"

// Global validator instance (reused across all handlers)
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	// Report JSON field names instead of Go field names
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})

	_ = v.RegisterValidation("dateonly", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(DateLayout, fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("role", func(fl validator.FieldLevel) bool {
		return models.Role(fl.Field().String()).Valid()
	})
	// Byte length, the unit bcrypt truncates on
	_ = v.RegisterValidation("password", func(fl validator.FieldLevel) bool {
		return pkgauth.ValidatePassword(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("gender", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case models.GenderMale, models.GenderFemale, models.GenderOther, models.GenderPreferNotToSay:
			return true
		}
		return false
	})

	return v
}

// ValidateRequest validates req and returns one FieldError per failed rule,
// or nil when req is valid.
func ValidateRequest(req any) []pkghttp.FieldError {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	ve, ok := err.(validator.ValidationErrors)
	if !ok {
		return []pkghttp.FieldError{{Message: err.Error()}}
	}

	fieldErrors := make([]pkghttp.FieldError, 0, len(ve))
	for _, fe := range ve {
		fieldErrors = append(fieldErrors, pkghttp.FieldError{
			Field:   fe.Field(),
			Message: formatValidationError(fe),
		})
	}
	return fieldErrors
}

// formatValidationError converts a validator FieldError to a user-friendly message
func formatValidationError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "this field is required"
	case "email":
		return "Invalid email format"
	case "min":
		return fmt.Sprintf("must have a minimum of %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must have a maximum of %s characters", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "dateonly":
		return "Invalid date format"
	case "role":
		return "must be one of: admin doctor staff"
	case "password":
		return fmt.Sprintf("must be between %d and %d bytes", pkgauth.MinPasswordLen, pkgauth.MaxPasswordLen)
	case "gender":
		return "must be one of: Male, Female, Other, Prefer not to say"
	default:
		return fmt.Sprintf("failed validation: %s", fe.Tag())
	}
}
