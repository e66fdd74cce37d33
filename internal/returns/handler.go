package returns

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/drumtrack/drumtrack/internal/auth"
	"github.com/drumtrack/drumtrack/internal/masterdata/companies"
	"github.com/drumtrack/drumtrack/internal/platform/httpx"
	"github.com/drumtrack/drumtrack/internal/shared"
)

// Handler exposes the return request lifecycle over HTTP.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers lifecycle routes. Role checks happen in the service.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.show)
	r.Patch("/{id}/status", h.updateStatus)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.Unauthenticated("not signed in"))
		return
	}
	q := r.URL.Query()
	filter := ListFilter{
		CompanyTaxID: companies.NormalizeTaxID(q.Get("company_tax_id")),
		Status:       Status(q.Get("status")),
	}
	list, err := h.service.List(r.Context(), actor, filter)
	if err != nil {
		httpx.Fail(w, h.logger, "list return requests", err)
		return
	}
	if list == nil {
		list = []ReturnRequest{}
	}
	httpx.JSON(w, http.StatusOK, ListResponse{Items: list})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.Unauthenticated("not signed in"))
		return
	}
	var req CreateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validation("", "request body must be valid JSON"))
		return
	}
	created, err := h.service.Create(r.Context(), actor, req)
	if err != nil {
		httpx.Fail(w, h.logger, "create return request", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.Unauthenticated("not signed in"))
		return
	}
	id, err := requestID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	request, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httpx.Fail(w, h.logger, "get return request", err)
		return
	}
	httpx.JSON(w, http.StatusOK, request)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.Unauthenticated("not signed in"))
		return
	}
	id, err := requestID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req StatusRequest
	if err := httpx.DecodeBody(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	updated, err := h.service.UpdateStatus(r.Context(), actor, id, Status(req.Status))
	if err != nil {
		httpx.Fail(w, h.logger, "update return request status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func requestID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validation("id", "must be a positive integer")
	}
	return id, nil
}
