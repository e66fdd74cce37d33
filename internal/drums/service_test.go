package drums

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/drumtrack/drumtrack/internal/auth"
	"github.com/drumtrack/drumtrack/internal/returnperiod"
	"github.com/drumtrack/drumtrack/internal/shared"
)

type memoryRepo struct {
	drums     map[string]Drum
	companies map[string]bool
}

func newMemoryRepo(drums ...Drum) *memoryRepo {
	repo := &memoryRepo{drums: map[string]Drum{}, companies: map[string]bool{}}
	for _, d := range drums {
		repo.drums[d.Code] = d
		repo.companies[d.CompanyTaxID] = true
	}
	return repo
}

func (m *memoryRepo) List(ctx context.Context, filter ListFilter) ([]Drum, error) {
	var out []Drum
	for _, d := range m.drums {
		if filter.CompanyTaxID != "" && d.CompanyTaxID != filter.CompanyTaxID {
			continue
		}
		if filter.Status != "" && d.Status != filter.Status {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (m *memoryRepo) Get(ctx context.Context, code string) (Drum, error) {
	d, ok := m.drums[code]
	if !ok {
		return Drum{}, shared.NotFound("drum", code)
	}
	return d, nil
}

func (m *memoryRepo) FindOwned(ctx context.Context, taxID string, codes []string) ([]Drum, error) {
	var out []Drum
	for _, code := range codes {
		if d, ok := m.drums[code]; ok && d.CompanyTaxID == taxID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *memoryRepo) Create(ctx context.Context, d Drum) (Drum, error) {
	if _, ok := m.drums[d.Code]; ok {
		return Drum{}, shared.Validation("code", "drum %s already exists", d.Code)
	}
	m.drums[d.Code] = d
	return d, nil
}

func (m *memoryRepo) UpdateStatus(ctx context.Context, code, status string) (Drum, error) {
	d, ok := m.drums[code]
	if !ok {
		return Drum{}, shared.NotFound("drum", code)
	}
	d.Status = status
	m.drums[code] = d
	return d, nil
}

func (m *memoryRepo) Import(ctx context.Context, rows []ImportRow) (ImportResult, error) {
	var result ImportResult
	for _, row := range rows {
		if !m.companies[row.Drum.CompanyTaxID] {
			m.companies[row.Drum.CompanyTaxID] = true
			result.CompaniesCreated++
		}
		m.drums[row.Drum.Code] = row.Drum
		result.Drums++
	}
	return result, nil
}

func (m *memoryRepo) Exists(ctx context.Context, taxID string) (bool, error) {
	return m.companies[taxID], nil
}

type snapshotPeriods map[string]int

func (s snapshotPeriods) ResolveDays(ctx context.Context, taxID string) (int, error) {
	return returnperiod.NewPeriods(85, s).Days(taxID), nil
}

func (s snapshotPeriods) Snapshot(ctx context.Context) (returnperiod.Periods, error) {
	return returnperiod.NewPeriods(85, s), nil
}

var (
	testNow     = shared.Date(2025, time.March, 20)
	adminActor  = auth.Principal{UserID: 1, Role: auth.RoleAdmin}
	clientActor = auth.Principal{UserID: 2, Role: auth.RoleClient, CompanyTaxID: "C1"}
)

func newTestService(repo *memoryRepo, periods snapshotPeriods) *Service {
	return NewService(repo, periods, repo, nil, nil, WithClock(func() time.Time { return testNow }))
}

func TestListOwnOnlyReturnsCompanyDrums(t *testing.T) {
	repo := newMemoryRepo(
		Drum{Code: "D1", CompanyTaxID: "C1", StockReceiptDate: datePtr(2025, time.January, 1)},
		Drum{Code: "D2", CompanyTaxID: "C2", StockReceiptDate: datePtr(2025, time.January, 1)},
	)
	svc := newTestService(repo, snapshotPeriods{})

	views, err := svc.ListOwn(context.Background(), clientActor)
	require.NoError(t, err)
	require.Len(t, views, 1)
	require.Equal(t, "D1", views[0].Code)
	require.Equal(t, "2025-03-27", *views[0].SupplierReturnDueDate)
	require.Equal(t, CategoryDueSoon, views[0].Classification.Category)

	_, err = svc.ListOwn(context.Background(), adminActor)
	require.ErrorIs(t, err, shared.ErrAuthorization)
}

func TestListAllUsesPerCompanyPeriods(t *testing.T) {
	repo := newMemoryRepo(
		Drum{Code: "D1", CompanyTaxID: "C1", StockReceiptDate: datePtr(2025, time.January, 1)},
		Drum{Code: "D2", CompanyTaxID: "C2", StockReceiptDate: datePtr(2025, time.January, 1)},
	)
	svc := newTestService(repo, snapshotPeriods{"C2": 30})

	views, err := svc.ListAll(context.Background(), adminActor, ListFilter{}, "")
	require.NoError(t, err)
	require.Len(t, views, 2)
	require.Equal(t, 85, views[0].ReturnPeriodDays)
	require.Equal(t, 30, views[1].ReturnPeriodDays)
	require.Equal(t, CategoryOverdue, views[1].Classification.Category)

	overdue, err := svc.ListAll(context.Background(), adminActor, ListFilter{}, CategoryOverdue)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	require.Equal(t, "D2", overdue[0].Code)

	_, err = svc.ListAll(context.Background(), adminActor, ListFilter{}, "Late")
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.ListAll(context.Background(), clientActor, ListFilter{}, "")
	require.ErrorIs(t, err, shared.ErrAuthorization)
}

func TestCreateRequiresExistingCompany(t *testing.T) {
	repo := newMemoryRepo(Drum{Code: "D1", CompanyTaxID: "C1"})
	svc := newTestService(repo, snapshotPeriods{})

	_, err := svc.Create(context.Background(), adminActor, DrumForm{Code: "D9", CompanyTaxID: "NOPE"})
	require.ErrorIs(t, err, shared.ErrNotFound)

	_, err = svc.Create(context.Background(), adminActor, DrumForm{Code: "D9", CompanyTaxID: "C1", StockReceiptDate: "31/31/2025"})
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Equal(t, "stock_receipt_date", shared.FieldOf(err))

	view, err := svc.Create(context.Background(), adminActor, DrumForm{Code: "D9", CompanyTaxID: "C1", StockReceiptDate: "2025-01-01"})
	require.NoError(t, err)
	require.Equal(t, "Active", view.Status)
	require.Equal(t, "2025-03-27", *view.SupplierReturnDueDate)
}

func TestImportCreatesCompanies(t *testing.T) {
	repo := newMemoryRepo(Drum{Code: "D1", CompanyTaxID: "C1"})
	svc := newTestService(repo, snapshotPeriods{})

	result, err := svc.Import(context.Background(), adminActor, []map[string]any{
		{"Kod": "D1", "NIP": "C1", "Data przyjęcia na stan": "2025-01-02"},
		{"Kod": "D5", "NIP": "C5"},
	})
	require.NoError(t, err)
	require.Equal(t, ImportResult{Drums: 2, CompaniesCreated: 1}, result)
	require.Equal(t, shared.Date(2025, time.January, 2), *repo.drums["D1"].StockReceiptDate)

	_, err = svc.Import(context.Background(), clientActor, nil)
	require.ErrorIs(t, err, shared.ErrAuthorization)
}

func TestUpdateStatusHandlesEscapedCode(t *testing.T) {
	repo := newMemoryRepo(Drum{Code: "B11ELP/ELP", CompanyTaxID: "C1", Status: "Active"})
	h := NewHandler(nil, newTestService(repo, snapshotPeriods{}))
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), adminActor)))
		})
	})
	router.Route("/admin/drums", h.MountAdminRoutes)

	req := httptest.NewRequest(http.MethodPatch, "/admin/drums/B11ELP%2FELP/status", strings.NewReader(`{"status":"Returned"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.Equal(t, "Returned", repo.drums["B11ELP/ELP"].Status)

	req = httptest.NewRequest(http.MethodPatch, "/admin/drums/unknown/status", strings.NewReader(`{"status":"Returned"}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)

	req = httptest.NewRequest(http.MethodPatch, "/admin/drums/unknown/status", strings.NewReader(`{}`))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreviewDueDateResolvesCompanyPeriod(t *testing.T) {
	svc := newTestService(newMemoryRepo(), snapshotPeriods{"1234567890": 90})

	preview, err := svc.PreviewDueDate(context.Background(), adminActor, "123-456-78-90", "2025-01-01")
	require.NoError(t, err)
	require.Equal(t, "1234567890", preview.CompanyTaxID)
	require.Equal(t, "2025-01-01", preview.Reference)
	require.NotNil(t, preview.DueDate)
	require.Equal(t, "2025-04-01", *preview.DueDate)

	preview, err = svc.PreviewDueDate(context.Background(), adminActor, "C9", "2025-01-01")
	require.NoError(t, err)
	require.Equal(t, "2025-03-27", *preview.DueDate)

	_, err = svc.PreviewDueDate(context.Background(), adminActor, "C9", "")
	require.ErrorIs(t, err, shared.ErrValidation)
	require.Equal(t, "reference_date", shared.FieldOf(err))

	_, err = svc.PreviewDueDate(context.Background(), clientActor, "C1", "2025-01-01")
	require.ErrorIs(t, err, shared.ErrAuthorization)
}

func TestPreviewDueDateRoute(t *testing.T) {
	h := NewHandler(nil, newTestService(newMemoryRepo(), snapshotPeriods{}))
	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(auth.ContextWithPrincipal(r.Context(), adminActor)))
		})
	})
	router.Route("/admin/drums", h.MountAdminRoutes)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/drums/due-date?company_tax_id=C1&reference_date=2025-01-01", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	require.JSONEq(t, `{"company_tax_id":"C1","reference_date":"2025-01-01","supplier_return_due_date":"2025-03-27"}`, rec.Body.String())
}
