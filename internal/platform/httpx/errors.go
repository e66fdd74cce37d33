// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/drumtrack/drumtrack/internal/shared"
)

// Problem kinds rendered in the "kind" member so the SPA can tell
// "fix your input" apart from "you lack permission".
const (
	KindValidation        = "validation"
	KindAuthentication    = "authentication"
	KindAuthorization     = "authorization"
	KindNotFound          = "not_found"
	KindInvalidTransition = "invalid_transition"
	KindConflict          = "conflict"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	detail := shared.UserSafeMessage(err)
	field := shared.FieldOf(err)
	switch {
	case errors.Is(err, shared.ErrValidation):
		problem(w, http.StatusBadRequest, "Validation Failed", KindValidation, detail, field)
	case errors.Is(err, shared.ErrAuthentication):
		problem(w, http.StatusUnauthorized, "Unauthorized", KindAuthentication, detail, "")
	case errors.Is(err, shared.ErrAuthorization):
		problem(w, http.StatusForbidden, "Forbidden", KindAuthorization, detail, "")
	case errors.Is(err, shared.ErrNotFound):
		problem(w, http.StatusNotFound, "Not Found", KindNotFound, detail, field)
	case errors.Is(err, shared.ErrInvalidTransition):
		problem(w, http.StatusConflict, "Invalid Transition", KindInvalidTransition, detail, field)
	case errors.Is(err, shared.ErrConflict):
		w.Header().Set("Retry-After", "1")
		problem(w, http.StatusConflict, "Conflict", KindConflict, detail, "")
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

// IsClientError reports whether err is caused by the caller rather than the server.
func IsClientError(err error) bool {
	return shared.KindOf(err) != nil
}

// Fail renders err and logs it when the failure is not the caller's fault.
func Fail(w http.ResponseWriter, logger *slog.Logger, msg string, err error) {
	if !IsClientError(err) && logger != nil {
		logger.Error(msg, slog.Any("error", err))
	}
	RespondError(w, err)
}

// DecodeBody decodes the JSON body into target and runs struct validation.
func DecodeBody(r *http.Request, target any) error {
	if err := DecodeJSON(r, target); err != nil {
		return shared.Validation("", "request body must be valid JSON")
	}
	return shared.ValidateStruct(target)
}
