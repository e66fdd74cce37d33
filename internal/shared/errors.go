package shared

import (
	"errors"
	"fmt"
)

// Kind sentinels. Every *Error unwraps to exactly one of them, so callers can
// branch with errors.Is without caring about the concrete message.
var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation failed")
	// ErrAuthentication marks a missing, bad or expired credential.
	ErrAuthentication = errors.New("authentication failed")
	// ErrAuthorization marks an authenticated principal without the required role.
	ErrAuthorization = errors.New("not authorized")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidTransition marks a return-request state machine violation.
	ErrInvalidTransition = errors.New("invalid status transition")
	// ErrConflict marks a lost concurrent write. Safe to retry.
	ErrConflict = errors.New("conflict")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = fmt.Errorf("%w: invalid credentials", ErrAuthentication)
)

// Error carries the failure kind plus the offending field or business key.
type Error struct {
	Kind    error
	Field   string
	Message string
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Kind }

// Validation builds a validation error for field.
func Validation(field, format string, args ...any) error {
	return &Error{Kind: ErrValidation, Field: field, Message: fmt.Sprintf(format, args...)}
}

// NotFound builds a not-found error naming the entity and its business key.
func NotFound(entity, key string) error {
	return &Error{Kind: ErrNotFound, Field: entity, Message: fmt.Sprintf("%s %q not found", entity, key)}
}

// Forbidden builds an authorization error.
func Forbidden(format string, args ...any) error {
	return &Error{Kind: ErrAuthorization, Message: fmt.Sprintf(format, args...)}
}

// Unauthenticated builds an authentication error.
func Unauthenticated(format string, args ...any) error {
	return &Error{Kind: ErrAuthentication, Message: fmt.Sprintf(format, args...)}
}

// InvalidTransition builds a state machine error.
func InvalidTransition(from, to string) error {
	return &Error{Kind: ErrInvalidTransition, Field: "status", Message: fmt.Sprintf("cannot move from %s to %s", from, to)}
}

// Conflict builds a retryable concurrent-write error.
func Conflict(format string, args ...any) error {
	return &Error{Kind: ErrConflict, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the sentinel kind of err, or nil for infrastructure errors.
func KindOf(err error) error {
	for _, kind := range []error{ErrValidation, ErrAuthentication, ErrAuthorization, ErrNotFound, ErrInvalidTransition, ErrConflict} {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// FieldOf returns the field attached to err, if any.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

// UserSafeMessage returns a message safe to show to end users. Infrastructure
// errors collapse to a generic text so storage details never leak.
func UserSafeMessage(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "unexpected error"
}
