// Package httptransport assembles the HTTP surface: public complaint routes,
// proof endpoints, the admin group and operational endpoints. Handlers stay
// thin; this package only decides who is mounted where and behind what.
package httptransport

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hellokitty09/inharitance/internal/platform/middleware"
	platformredis "github.com/hellokitty09/inharitance/internal/platform/redis"
	"github.com/hellokitty09/inharitance/pkg/platform/httputil"
)

// Deps carries everything the router mounts. Optional members may be nil and
// their routes degrade gracefully.
type Deps struct {
	Complaints interface {
		Register(r chi.Router, submitLimit func(http.Handler) http.Handler)
		RegisterAdmin(r chi.Router)
	}
	Commitment interface{ Register(r chi.Router) }
	Admin      interface{ Register(r chi.Router) }

	SubmitLimit func(http.Handler) http.Handler
	AdminAuth   func(http.Handler) http.Handler

	ServeWS http.HandlerFunc

	DB    *sql.DB
	Redis *platformredis.Client

	Middleware []func(http.Handler) http.Handler
}

// NewRouter wires the full route tree.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	for _, mw := range deps.Middleware {
		r.Use(mw)
	}

	r.Get("/health", healthHandler(deps.DB, deps.Redis))
	r.Handle("/metrics", promhttp.Handler())
	if deps.ServeWS != nil {
		r.Get("/ws", deps.ServeWS)
	}

	r.Route("/api", func(api chi.Router) {
		api.Group(func(public chi.Router) {
			public.Use(middleware.ContentTypeJSON)
			deps.Complaints.Register(public, deps.SubmitLimit)
			if deps.Commitment != nil {
				deps.Commitment.Register(public)
			}
		})

		api.Route("/admin", func(adm chi.Router) {
			if deps.AdminAuth != nil {
				adm.Use(deps.AdminAuth)
			}
			adm.Use(middleware.ContentTypeJSON)
			deps.Complaints.RegisterAdmin(adm)
			if deps.Admin != nil {
				deps.Admin.Register(adm)
			}
		})
	})

	return r
}

// healthHandler reports liveness plus best-effort dependency checks. A
// missing optional dependency reports "skipped", not a failure.
func healthHandler(db *sql.DB, redis *platformredis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		status := http.StatusOK
		body := map[string]string{"status": "ok", "database": "skipped", "redis": "skipped"}

		if db != nil {
			if err := db.PingContext(ctx); err != nil {
				body["status"] = "degraded"
				body["database"] = "unreachable"
				status = http.StatusServiceUnavailable
			} else {
				body["database"] = "ok"
			}
		}
		if redis != nil {
			if err := redis.Health(ctx); err != nil {
				body["status"] = "degraded"
				body["redis"] = "unreachable"
				status = http.StatusServiceUnavailable
			} else {
				body["redis"] = "ok"
			}
		}

		httputil.WriteJSON(w, status, body)
	}
}
