package drums

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/drumtrack/drumtrack/internal/auth"
	"github.com/drumtrack/drumtrack/internal/masterdata/companies"
	"github.com/drumtrack/drumtrack/internal/platform/httpx"
	"github.com/drumtrack/drumtrack/internal/shared"
)

// Handler exposes drum listings and administration over HTTP.
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

// MountAdminRoutes registers administrative drum routes.
func (h *Handler) MountAdminRoutes(r chi.Router) {
	r.Get("/", h.listAll)
	r.Post("/", h.create)
	r.Post("/import", h.importRows)
	r.Get("/due-date", h.previewDueDate)
	r.Patch("/{code}/status", h.updateStatus)
}

// MountSelfRoutes registers the client's own drum listing.
func (h *Handler) MountSelfRoutes(r chi.Router) {
	r.Get("/drums", h.listOwn)
}

func (h *Handler) listOwn(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	views, err := h.service.ListOwn(r.Context(), actor)
	if err != nil {
		httpx.Fail(w, h.logger, "list own drums", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": views})
}

func (h *Handler) listAll(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := ListFilter{
		CompanyTaxID: companies.NormalizeTaxID(q.Get("company_tax_id")),
		Status:       q.Get("status"),
		Search:       q.Get("search"),
	}
	views, err := h.service.ListAll(r.Context(), actor, filter, Category(q.Get("category")))
	if err != nil {
		httpx.Fail(w, h.logger, "list drums", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": views})
}

func (h *Handler) previewDueDate(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	preview, err := h.service.PreviewDueDate(r.Context(), actor, q.Get("company_tax_id"), q.Get("reference_date"))
	if err != nil {
		httpx.Fail(w, h.logger, "preview due date", err)
		return
	}
	httpx.JSON(w, http.StatusOK, preview)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	var form DrumForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.RespondError(w, shared.Validation("", "request body must be valid JSON"))
		return
	}
	view, err := h.service.Create(r.Context(), actor, form)
	if err != nil {
		httpx.Fail(w, h.logger, "create drum", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, view)
}

type statusRequest struct {
	Status string `json:"status" validate:"required,max=64"`
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	// drum codes may contain an escaped slash
	code, err := url.PathUnescape(chi.URLParam(r, "code"))
	if err != nil {
		httpx.RespondError(w, shared.Validation("code", "is not a valid path segment"))
		return
	}
	var req statusRequest
	if err := httpx.DecodeBody(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	view, err := h.service.UpdateStatus(r.Context(), actor, code, req.Status)
	if err != nil {
		httpx.Fail(w, h.logger, "update drum status", err)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}

type importRequest struct {
	Rows []map[string]any `json:"rows"`
}

func (h *Handler) importRows(w http.ResponseWriter, r *http.Request) {
	actor, ok := principal(w, r)
	if !ok {
		return
	}
	var req importRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validation("", "request body must be valid JSON"))
		return
	}
	result, err := h.service.Import(r.Context(), actor, req.Rows)
	if err != nil {
		httpx.Fail(w, h.logger, "import drums", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func principal(w http.ResponseWriter, r *http.Request) (auth.Principal, bool) {
	p, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.Unauthenticated("not signed in"))
	}
	return p, ok
}
