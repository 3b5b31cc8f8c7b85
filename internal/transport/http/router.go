// Package httptransport assembles the HTTP surface: route mounting, auth
// guards, and operational endpoints. Business logic stays in the domain
// handlers it mounts.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"taptrail/internal/auth/models"
	"taptrail/internal/platform/middleware"
)

// Registrar mounts a handler's routes onto a router subtree.
type Registrar interface {
	Register(r chi.Router)
}

// Deps carries everything the router mounts. Nil registrars are skipped so
// tests can assemble partial routers.
type Deps struct {
	Logger    *slog.Logger
	Validator middleware.TokenValidator

	Auth      Registrar
	Scan      Registrar
	Reports   Registrar
	Subjects  Registrar
	Schedule  Registrar
	Overrides Registrar

	Health *Health
}

// NewRouter builds the full route tree.
//
// Three access tiers: /auth/login, /health and /metrics are public; scan
// ingestion accepts kiosk tokens as well as staff ones; everything else
// requires a staff token, with directory and policy administration limited to
// admins and managers.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.StampReceiptTime)

	r.Method(http.MethodGet, "/metrics", promhttp.Handler())
	if deps.Health != nil {
		r.Get("/health", deps.Health.Handle)
	}
	mount(r, deps.Auth)

	requireAuth := middleware.RequireAuth(deps.Validator, deps.Logger)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireRole(
			string(models.RoleKiosk), string(models.RoleAdmin), string(models.RoleManager)))
		mount(r, deps.Scan)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		mount(r, deps.Reports)
	})

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Use(middleware.RequireRole(string(models.RoleAdmin), string(models.RoleManager)))
		mount(r, deps.Subjects)
		mount(r, deps.Schedule)
		mount(r, deps.Overrides)
	})

	return r
}

func mount(r chi.Router, reg Registrar) {
	if reg != nil {
		reg.Register(r)
	}
}
