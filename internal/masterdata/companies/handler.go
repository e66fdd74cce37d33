package companies

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/drumtrack/drumtrack/internal/auth"
	mdshared "github.com/drumtrack/drumtrack/internal/masterdata/shared"
	"github.com/drumtrack/drumtrack/internal/platform/httpx"
	"github.com/drumtrack/drumtrack/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountAdminRoutes registers company management routes. Callers guard the
// router with administrative RBAC.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{nip}", h.Show)
	r.Put("/{nip}", h.Update)
}

// MountSelfRoutes registers routes for the signed-in client's own company.
func (h *Handler) MountSelfRoutes(r chi.Router) {
	r.Get("/company", h.Own)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, limit := shared.PageParams(q, mdshared.DefaultLimit)
	filters := mdshared.ListFilters{
		Page:    page,
		Limit:   limit,
		Search:  q.Get("search"),
		SortBy:  q.Get("sort"),
		SortDir: q.Get("dir"),
		Status:  q.Get("status"),
	}

	companies, total, err := h.service.List(r.Context(), filters)
	if err != nil {
		httpx.Fail(w, h.logger, "list companies failed", err)
		return
	}
	if companies == nil {
		companies = []Company{}
	}
	httpx.JSON(w, http.StatusOK, ListResponse{Items: companies, Pagination: shared.NewPagination(page, limit, total)})
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	company, err := h.service.Get(r.Context(), chi.URLParam(r, "nip"))
	if err != nil {
		httpx.Fail(w, h.logger, "get company failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

func (h *Handler) Own(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.Unauthenticated("not signed in"))
		return
	}
	if !principal.IsClient() {
		httpx.RespondError(w, shared.Forbidden("only client accounts have an own company"))
		return
	}
	company, err := h.service.Get(r.Context(), principal.CompanyTaxID)
	if err != nil {
		httpx.Fail(w, h.logger, "get own company failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, company)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var form CompanyForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, shared.Validation("", "request body must be valid JSON"))
		return
	}
	created, err := h.service.Create(r.Context(), form)
	if err != nil {
		httpx.Fail(w, h.logger, "create company failed", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var form CompanyForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, shared.Validation("", "request body must be valid JSON"))
		return
	}
	updated, err := h.service.Update(r.Context(), chi.URLParam(r, "nip"), form)
	if err != nil {
		httpx.Fail(w, h.logger, "update company failed", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}
