package rbac

import (
	"log/slog"
	"net/http"

	"github.com/drumtrack/drumtrack/internal/auth"
	"github.com/drumtrack/drumtrack/internal/platform/httpx"
	"github.com/drumtrack/drumtrack/internal/shared"
)

// Middleware wires role authorization helpers for HTTP handlers. It must run
// after auth.Middleware.Authenticate.
type Middleware struct {
	Logger *slog.Logger
}

// RequireAdministrative admits admin and supervisor principals.
func (m Middleware) RequireAdministrative() func(http.Handler) http.Handler {
	return m.require(func(p auth.Principal) bool { return p.IsAdministrative() })
}

// RequireAny admits principals holding at least one of roles.
func (m Middleware) RequireAny(roles ...auth.Role) func(http.Handler) http.Handler {
	allowed := make(map[auth.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return m.require(func(p auth.Principal) bool {
		if len(allowed) == 0 {
			return true
		}
		_, ok := allowed[p.Role]
		return ok
	})
}

func (m Middleware) require(admit func(auth.Principal) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := auth.PrincipalFromContext(r.Context())
			if !ok {
				httpx.RespondError(w, shared.Unauthenticated("not signed in"))
				return
			}
			if !admit(principal) {
				if m.Logger != nil {
					m.Logger.Warn("rbac denied", slog.String("role", string(principal.Role)), slog.String("path", r.URL.Path))
				}
				httpx.RespondError(w, shared.Forbidden("role %s may not access this resource", principal.Role))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
