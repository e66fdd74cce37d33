package returnperiod

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/drumtrack/drumtrack/internal/auth"
	"github.com/drumtrack/drumtrack/internal/platform/httpx"
	"github.com/drumtrack/drumtrack/internal/shared"
)

// Handler exposes return period administration.
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

// MountCompanyRoutes registers per-company routes on the companies router.
func (h *Handler) MountCompanyRoutes(r chi.Router) {
	r.Get("/{nip}/return-period", h.show)
	r.Put("/{nip}/return-period", h.set)
	r.Delete("/{nip}/return-period", h.reset)
}

// MountRoutes registers the override listing.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
}

type setRequest struct {
	Days *int `json:"days" validate:"required"`
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.Unauthenticated("not signed in"))
		return
	}
	result, err := h.service.GetReturnPeriod(r.Context(), actor, chi.URLParam(r, "nip"))
	if err != nil {
		httpx.Fail(w, h.logger, "get return period", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) set(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.Unauthenticated("not signed in"))
		return
	}
	var req setRequest
	if err := httpx.DecodeBody(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	result, err := h.service.SetReturnPeriod(r.Context(), actor, chi.URLParam(r, "nip"), *req.Days)
	if err != nil {
		httpx.Fail(w, h.logger, "set return period", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) reset(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.Unauthenticated("not signed in"))
		return
	}
	result, err := h.service.ResetReturnPeriod(r.Context(), actor, chi.URLParam(r, "nip"))
	if err != nil {
		httpx.Fail(w, h.logger, "reset return period", err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, shared.Unauthenticated("not signed in"))
		return
	}
	overrides, err := h.service.ListOverrides(r.Context(), actor)
	if err != nil {
		httpx.Fail(w, h.logger, "list return periods", err)
		return
	}
	if overrides == nil {
		overrides = []Override{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"default_days": h.service.Resolver().DefaultDays(), "items": overrides})
}
