package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/drumtrack/drumtrack/internal/auth"
	"github.com/drumtrack/drumtrack/internal/drums"
	"github.com/drumtrack/drumtrack/internal/masterdata/companies"
	"github.com/drumtrack/drumtrack/internal/observability"
	"github.com/drumtrack/drumtrack/internal/platform/httpx"
	"github.com/drumtrack/drumtrack/internal/rbac"
	"github.com/drumtrack/drumtrack/internal/returnperiod"
	"github.com/drumtrack/drumtrack/internal/returns"
	"github.com/drumtrack/drumtrack/jobs"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger              *slog.Logger
	Config              *Config
	AuthMiddleware      auth.Middleware
	RBACMiddleware      rbac.Middleware
	AuthHandler         *auth.Handler
	CompaniesHandler    *companies.Handler
	ReturnPeriodHandler *returnperiod.Handler
	DrumsHandler        *drums.Handler
	ReturnsHandler      *returns.Handler
	JobHandler          *jobs.Handler
	Metrics             *observability.Metrics
	Database            Pinger
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}
	if !InTestMode() {
		r.Use(chimw.Logger)
	}

	r.Get("/healthz", health(params.Database))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}

	r.Route("/api", func(r chi.Router) {
		if params.AuthHandler != nil {
			r.Route("/auth", params.AuthHandler.MountRoutes)
		}

		r.Group(func(r chi.Router) {
			r.Use(params.AuthMiddleware.Authenticate)

			r.Route("/me", func(r chi.Router) {
				r.Use(params.RBACMiddleware.RequireAny(auth.RoleClient))
				if params.CompaniesHandler != nil {
					params.CompaniesHandler.MountSelfRoutes(r)
				}
				if params.DrumsHandler != nil {
					params.DrumsHandler.MountSelfRoutes(r)
				}
			})

			if params.ReturnsHandler != nil {
				r.Route("/return-requests", params.ReturnsHandler.MountRoutes)
			}

			r.Route("/admin", func(r chi.Router) {
				r.Use(params.RBACMiddleware.RequireAdministrative())
				r.Route("/companies", func(r chi.Router) {
					if params.CompaniesHandler != nil {
						params.CompaniesHandler.MountAdminRoutes(r)
					}
					if params.ReturnPeriodHandler != nil {
						params.ReturnPeriodHandler.MountCompanyRoutes(r)
					}
				})
				if params.ReturnPeriodHandler != nil {
					r.Route("/return-periods", params.ReturnPeriodHandler.MountRoutes)
				}
				if params.DrumsHandler != nil {
					r.Route("/drums", params.DrumsHandler.MountAdminRoutes)
				}
			})
		})
	})

	return r
}

func health(db Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := db.Ping(ctx); err != nil {
				httpx.JSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded", "database": "unreachable"})
				return
			}
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
