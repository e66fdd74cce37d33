package returnperiod

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/drumtrack/drumtrack/internal/auth"
	"github.com/drumtrack/drumtrack/internal/shared"
)

type memoryStore struct {
	overrides map[string]int
	failRead  error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{overrides: map[string]int{}}
}

func (m *memoryStore) GetOverride(ctx context.Context, taxID string) (int, bool, error) {
	if m.failRead != nil {
		return 0, false, m.failRead
	}
	days, ok := m.overrides[taxID]
	return days, ok, nil
}

func (m *memoryStore) ListOverrides(ctx context.Context) ([]Override, error) {
	if m.failRead != nil {
		return nil, m.failRead
	}
	out := make([]Override, 0, len(m.overrides))
	for taxID, days := range m.overrides {
		out = append(out, Override{CompanyTaxID: taxID, Days: days})
	}
	return out, nil
}

func (m *memoryStore) PutOverride(ctx context.Context, taxID string, days int) error {
	m.overrides[taxID] = days
	return nil
}

func (m *memoryStore) ClearOverride(ctx context.Context, taxID string) error {
	delete(m.overrides, taxID)
	return nil
}

type knownCompanies map[string]bool

func (k knownCompanies) Exists(ctx context.Context, taxID string) (bool, error) {
	return k[taxID], nil
}

type auditSpy struct {
	logs []shared.AuditLog
}

func (a *auditSpy) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

var (
	admin      = auth.Principal{UserID: 1, Role: auth.RoleAdmin}
	supervisor = auth.Principal{UserID: 2, Role: auth.RoleSupervisor}
	client     = auth.Principal{UserID: 3, Role: auth.RoleClient, CompanyTaxID: "C1"}
)

func newTestService() (*Service, *memoryStore, *auditSpy) {
	store := newMemoryStore()
	audit := &auditSpy{}
	svc := NewService(store, NewResolver(store, DefaultDays), knownCompanies{"C1": true, "C2": true}, audit, nil)
	return svc, store, audit
}

func TestResolveDaysDefaultsWithoutOverride(t *testing.T) {
	svc, _, _ := newTestService()
	for _, taxID := range []string{"C1", "C2", "unknown"} {
		days, err := svc.Resolver().ResolveDays(context.Background(), taxID)
		require.NoError(t, err)
		require.Equal(t, 85, days)
	}
}

func TestSetReturnPeriodRoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, store, audit := newTestService()

	for _, days := range []int{1, 30, 84, 86, 90, 365} {
		result, err := svc.SetReturnPeriod(ctx, admin, "C1", days)
		require.NoError(t, err)
		require.False(t, result.IsDefault)
		resolved, err := svc.Resolver().ResolveDays(ctx, "C1")
		require.NoError(t, err)
		require.Equal(t, days, resolved)
	}

	result, err := svc.SetReturnPeriod(ctx, supervisor, "C1", 85)
	require.NoError(t, err)
	require.True(t, result.IsDefault)
	_, present := store.overrides["C1"]
	require.False(t, present)
	require.Equal(t, "return_period.reset", audit.logs[len(audit.logs)-1].Action)

	// clearing twice is fine
	_, err = svc.ResetReturnPeriod(ctx, admin, "C1")
	require.NoError(t, err)
}

func TestSetReturnPeriodRejectsOutOfRange(t *testing.T) {
	ctx := context.Background()
	svc, store, _ := newTestService()
	store.overrides["C1"] = 40

	for _, days := range []int{-5, 0, 366, 1000} {
		_, err := svc.SetReturnPeriod(ctx, admin, "C1", days)
		require.ErrorIs(t, err, shared.ErrValidation)
		require.Equal(t, "days", shared.FieldOf(err))
	}
	require.Equal(t, 40, store.overrides["C1"])
}

func TestSetReturnPeriodErrors(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	_, err := svc.SetReturnPeriod(ctx, client, "C1", 30)
	require.ErrorIs(t, err, shared.ErrAuthorization)

	_, err = svc.SetReturnPeriod(ctx, admin, "missing", 30)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestResolveDaysPropagatesStorageErrors(t *testing.T) {
	svc, store, _ := newTestService()
	store.failRead = errors.New("connection reset")
	_, err := svc.Resolver().ResolveDays(context.Background(), "C1")
	require.Error(t, err)
	require.Nil(t, shared.KindOf(err))
}

func TestSnapshotUsesOverridesAndDefault(t *testing.T) {
	svc, store, _ := newTestService()
	store.overrides["C2"] = 90
	periods, err := svc.Resolver().Snapshot(context.Background())
	require.NoError(t, err)
	require.Equal(t, 90, periods.Days("C2"))
	require.Equal(t, 85, periods.Days("C1"))
}

func TestNewResolverFallsBackOnInvalidDefault(t *testing.T) {
	require.Equal(t, DefaultDays, NewResolver(newMemoryStore(), 0).DefaultDays())
	require.Equal(t, 60, NewResolver(newMemoryStore(), 60).DefaultDays())
}

func TestHandlerSetAndShow(t *testing.T) {
	svc, _, _ := newTestService()
	h := NewHandler(nil, svc)
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), admin)))
		})
	})
	router.Route("/companies", h.MountCompanyRoutes)

	req := httptest.NewRequest(http.MethodPut, "/companies/C1/return-period", strings.NewReader(`{"days":90}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"company_tax_id":"C1","days":90,"is_default":false}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodPut, "/companies/C1/return-period", strings.NewReader(`{}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	req = httptest.NewRequest(http.MethodDelete, "/companies/C1/return-period", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"company_tax_id":"C1","days":85,"is_default":true}`, rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/companies/nope/return-period", nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}
