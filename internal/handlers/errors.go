package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/BradenHooton/healthdesk/internal/models"
	pkghttp "github.com/BradenHooton/healthdesk/pkg/http"
)

// writeServiceError maps a service error onto the response envelope.
// Unexpected errors are logged and answered with a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *models.ValidationError
	var notFound *models.NotFoundError

	switch {
	case errors.As(err, &validationErr):
		if validationErr.Field == "" {
			pkghttp.WriteBadRequest(w, validationErr.Message)
			return
		}
		pkghttp.WriteBadRequest(w, "Validation failed", pkghttp.FieldError{
			Field:   validationErr.Field,
			Message: validationErr.Message,
		})
	case errors.As(err, &notFound):
		pkghttp.WriteNotFound(w, capitalize(notFound.Error()))
	case errors.Is(err, models.ErrNotFound):
		pkghttp.WriteNotFound(w, "Resource not found")
	case errors.Is(err, models.ErrAlreadyEnrolled):
		pkghttp.WriteConflict(w, "Client already enrolled in this program")
	case errors.Is(err, models.ErrStillReferenced):
		pkghttp.WriteConflict(w, "Program has enrollments and cannot be deleted")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "Resource already exists")
	case errors.Is(err, models.ErrInvalidCredentials):
		pkghttp.WriteUnauthorized(w, "Invalid credentials")
	case errors.Is(err, models.ErrAccountInactive):
		pkghttp.WriteForbidden(w, "Account is inactive")
	case errors.Is(err, models.ErrInvalidToken), errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Unauthorized")
	case errors.Is(err, models.ErrForbidden):
		pkghttp.WriteForbidden(w, "Forbidden")
	case errors.Is(err, models.ErrValidation), errors.Is(err, models.ErrBadRequest):
		pkghttp.WriteBadRequest(w, "Invalid request")
	default:
		if !errors.Is(err, models.ErrInternalServer) {
			slog.ErrorContext(r.Context(), "unhandled service error",
				slog.String("path", r.URL.Path), slog.Any("error", err))
		}
		pkghttp.WriteInternalError(w)
	}
}

// decodeAndValidate reads the JSON body into dst and validates it. It writes
// the 400 response itself and reports false when the request is rejected.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := pkghttp.DecodeJSON(w, r, dst); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return false
	}
	if fieldErrors := ValidateRequest(dst); fieldErrors != nil {
		pkghttp.WriteBadRequest(w, "Validation failed", fieldErrors...)
		return false
	}
	return true
}

// pathID parses a positive integer URL parameter. On failure it writes
// "Invalid <label> ID" and reports false.
func pathID(w http.ResponseWriter, r *http.Request, param, label string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		pkghttp.WriteBadRequest(w, "Invalid "+label+" ID")
		return 0, false
	}
	return id, true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
