// Package httpapi exposes the ledger services as a JSON REST API.
package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mmynk/kanak/internal/auth"
	"github.com/mmynk/kanak/internal/middleware"
	"github.com/mmynk/kanak/internal/service"
)

// Services are the use cases served by the router.
type Services struct {
	Auth         *service.AuthService
	Groups       *service.GroupService
	Transactions *service.TransactionService
	Invitations  *service.InvitationService
}

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Options struct {
	JWT         *auth.JWTManager
	CORSOrigins []string

	// Health is checked by /healthz.
	Health Pinger

	// Metrics and Gatherer are optional. /metrics is served only when
	// Gatherer is set.
	Metrics  *middleware.Metrics
	Gatherer prometheus.Gatherer
}

func New(svcs Services, opts Options) http.Handler {
	router := chi.NewRouter()

	router.Use(chimw.RequestID)
	router.Use(chimw.RealIP)
	router.Use(middleware.Logging(opts.Metrics))
	router.Use(chimw.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	router.Get("/healthz", health(opts.Health))
	if opts.Gatherer != nil {
		router.Handle("/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}

	requireAuth := middleware.RequireAuth(opts.JWT, writeError)

	authV1 := &authHandler{svc: svcs.Auth}
	groupsV1 := &groupHandler{
		svc:          svcs.Groups,
		transactions: &transactionHandler{svc: svcs.Transactions},
	}
	invitationsV1 := &invitationHandler{svc: svcs.Invitations}

	router.Route("/auth", func(r chi.Router) {
		authV1.publicRoutes(r)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			authV1.Routes(r)
		})
	})

	router.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Route("/groups", groupsV1.Routes)
		r.Route("/invitations", invitationsV1.Routes)
	})

	return router
}

func health(p Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if p != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := p.Ping(ctx); err != nil {
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
