package rbac

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/drumtrack/drumtrack/internal/auth"
)

func serve(t *testing.T, mw func(http.Handler) http.Handler, principal *auth.Principal) int {
	t.Helper()
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	req := httptest.NewRequest(http.MethodGet, "/admin/companies", nil)
	if principal != nil {
		req = req.WithContext(auth.ContextWithPrincipal(req.Context(), *principal))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr.Code
}

func TestRequireAdministrative(t *testing.T) {
	m := Middleware{}
	require.Equal(t, http.StatusOK, serve(t, m.RequireAdministrative(), &auth.Principal{UserID: 1, Role: auth.RoleAdmin}))
	require.Equal(t, http.StatusOK, serve(t, m.RequireAdministrative(), &auth.Principal{UserID: 2, Role: auth.RoleSupervisor}))
	require.Equal(t, http.StatusForbidden, serve(t, m.RequireAdministrative(), &auth.Principal{UserID: 3, Role: auth.RoleClient, CompanyTaxID: "1"}))
	require.Equal(t, http.StatusUnauthorized, serve(t, m.RequireAdministrative(), nil))
}

func TestRequireAny(t *testing.T) {
	m := Middleware{}
	require.Equal(t, http.StatusOK, serve(t, m.RequireAny(auth.RoleClient), &auth.Principal{Role: auth.RoleClient, CompanyTaxID: "1"}))
	require.Equal(t, http.StatusForbidden, serve(t, m.RequireAny(auth.RoleClient), &auth.Principal{Role: auth.RoleAdmin}))
}
