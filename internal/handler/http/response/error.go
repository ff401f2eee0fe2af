package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/shared"
	"github.com/cmlabs-hris/settlement-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/settlement-backend-go/internal/pkg/validator"
)

// HandleError maps domain errors to HTTP responses by error kind.
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	switch {
	case errors.Is(err, user.ErrBusinessIDRequired), errors.Is(err, user.ErrUserIDRequired), errors.Is(err, user.ErrInvalidRole):
		Unauthorized(w, err.Error())
	case errors.Is(err, shared.ErrForbidden):
		Forbidden(w, err.Error())
	case errors.Is(err, shared.ErrNotFound):
		NotFound(w, err.Error())
	case errors.Is(err, shared.ErrInvalidInput):
		Error(w, http.StatusUnprocessableEntity, "INVALID_INPUT", err.Error())

	// Conflicts with the stored state
	case errors.Is(err, shared.ErrInvalidState):
		Error(w, http.StatusConflict, "INVALID_STATE", err.Error())
	case errors.Is(err, shared.ErrAlreadyClosed):
		Error(w, http.StatusConflict, "ALREADY_CLOSED", err.Error())
	case errors.Is(err, shared.ErrConcurrentModification):
		Error(w, http.StatusConflict, "CONCURRENT_MODIFICATION", err.Error())
	case errors.Is(err, shared.ErrConflict):
		Conflict(w, err.Error())

	// Money and setup rules
	case errors.Is(err, shared.ErrInsufficientFunds):
		Error(w, http.StatusUnprocessableEntity, "INSUFFICIENT_FUNDS", err.Error())
	case errors.Is(err, shared.ErrExceedsBalance):
		Error(w, http.StatusUnprocessableEntity, "EXCEEDS_BALANCE", err.Error())
	case errors.Is(err, shared.ErrConfigurationMissing):
		Error(w, http.StatusUnprocessableEntity, "CONFIGURATION_MISSING", err.Error())
	case errors.Is(err, shared.ErrNoConfiguration):
		Error(w, http.StatusUnprocessableEntity, "NO_CONFIGURATION", err.Error())
	case errors.Is(err, shared.ErrNoEligibleEmployees):
		Error(w, http.StatusUnprocessableEntity, "NO_ELIGIBLE_EMPLOYEES", err.Error())

	default:
		slog.Error("Unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}
