package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/drumtrack/drumtrack/internal/auth"
	"github.com/drumtrack/drumtrack/internal/shared"
	_ "github.com/drumtrack/drumtrack/testing"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type stubRepo struct {
	users map[string]*auth.User
}

func (s *stubRepo) FindByLogin(ctx context.Context, login string) (*auth.User, error) {
	u, ok := s.users[login]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return u, nil
}

func hash(t *testing.T, password string) string {
	t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hashed)
}

func newRouter(t *testing.T, repo auth.Repository) (http.Handler, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	tokens := auth.NewTokenManager(testSecret, time.Hour, auth.NewRedisRevocationStore(client, ""))
	mw := auth.Middleware{Guard: tokens}
	handler := auth.NewHandler(nil, auth.NewService(repo, tokens), mw)
	r := chi.NewRouter()
	r.Route("/auth", handler.MountRoutes)
	return r, mr
}

func login(t *testing.T, router http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestLoginIssuesTokenUsableForMe(t *testing.T) {
	repo := &stubRepo{users: map[string]*auth.User{
		"1234567890": {ID: 7, Login: "1234567890", PasswordHash: hash(t, "client-pass"), Role: auth.RoleClient, CompanyTaxID: "1234567890", IsActive: true},
	}}
	router, _ := newRouter(t, repo)

	res := login(t, router, `{"login":"1234567890","password":"client-pass"}`)
	require.Equal(t, http.StatusOK, res.Code)

	var result auth.LoginResult
	require.NoError(t, json.NewDecoder(res.Body).Decode(&result))
	require.NotEmpty(t, result.Token)
	require.Equal(t, auth.RoleClient, result.Principal.Role)

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+result.Token)
	me := httptest.NewRecorder()
	router.ServeHTTP(me, req)
	require.Equal(t, http.StatusOK, me.Code)

	var principal auth.Principal
	require.NoError(t, json.NewDecoder(me.Body).Decode(&principal))
	require.Equal(t, "1234567890", principal.CompanyTaxID)
	require.Equal(t, int64(7), principal.UserID)
}

func TestLoginInvalidCredentials(t *testing.T) {
	repo := &stubRepo{users: map[string]*auth.User{
		"admin": {ID: 1, Login: "admin", PasswordHash: hash(t, "correctpass"), Role: auth.RoleAdmin, IsActive: true},
	}}
	router, _ := newRouter(t, repo)

	res := login(t, router, `{"login":"admin","password":"wrongpass"}`)
	require.Equal(t, http.StatusUnauthorized, res.Code)
	require.Contains(t, res.Body.String(), `"kind":"authentication"`)

	res = login(t, router, `{"login":"admin"}`)
	require.Equal(t, http.StatusBadRequest, res.Code)
	require.Contains(t, res.Body.String(), `"field":"password"`)
}

func TestLogoutRevokesToken(t *testing.T) {
	repo := &stubRepo{users: map[string]*auth.User{
		"admin": {ID: 1, Login: "admin", PasswordHash: hash(t, "correctpass"), Role: auth.RoleSupervisor, IsActive: true},
	}}
	router, mr := newRouter(t, repo)

	res := login(t, router, `{"login":"admin","password":"correctpass"}`)
	require.Equal(t, http.StatusOK, res.Code)
	var result auth.LoginResult
	require.NoError(t, json.NewDecoder(res.Body).Decode(&result))

	req := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	req.Header.Set("Authorization", "Bearer "+result.Token)
	out := httptest.NewRecorder()
	router.ServeHTTP(out, req)
	require.Equal(t, http.StatusNoContent, out.Code)
	require.Len(t, mr.Keys(), 1)

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+result.Token)
	me := httptest.NewRecorder()
	router.ServeHTTP(me, req)
	require.Equal(t, http.StatusUnauthorized, me.Code)
}

func TestMeRequiresBearer(t *testing.T) {
	router, _ := newRouter(t, &stubRepo{})

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code)

	req = httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	res = httptest.NewRecorder()
	router.ServeHTTP(res, req)
	require.Equal(t, http.StatusUnauthorized, res.Code)
}
