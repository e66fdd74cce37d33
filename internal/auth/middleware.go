package auth

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/drumtrack/drumtrack/internal/platform/httpx"
	"github.com/drumtrack/drumtrack/internal/shared"
)

// Middleware authenticates bearer tokens and stores the principal in context.
type Middleware struct {
	Guard  Guard
	Logger *slog.Logger
}

// Authenticate rejects requests without a valid bearer credential.
func (m Middleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		credential, err := BearerToken(r)
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		principal, err := m.Guard.Authenticate(r.Context(), credential)
		if err != nil {
			if !httpx.IsClientError(err) && m.Logger != nil {
				m.Logger.Error("authenticate request", slog.Any("error", err))
			}
			httpx.RespondError(w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
	})
}

// BearerToken extracts the credential from the Authorization header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", shared.Unauthenticated("authorization header missing")
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", shared.Unauthenticated("authorization header must be 'Bearer <token>'")
	}
	return strings.TrimSpace(parts[1]), nil
}
