package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/khata-app/khata-backend/internal/api/handlers"
	"github.com/khata-app/khata-backend/internal/auth"
	"github.com/khata-app/khata-backend/internal/config"
	"github.com/khata-app/khata-backend/internal/middleware"
	repo "github.com/khata-app/khata-backend/internal/repository"
	"github.com/khata-app/khata-backend/internal/services"
)

func NewRouter(cfg config.Config, tm *auth.TokenManager, us *services.UserService, rec *services.Reconciler, audits repo.AuditLogs) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.Recover, middleware.HTTPMetrics, middleware.RateLimit(cfg.RateRPS))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	// health & metrics
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", promhttp.Handler())

	ah := handlers.NewAuthHandler(us)
	lh := handlers.NewLedgerHandler(rec)
	audh := handlers.NewAuditHandler(audits)
	am := middleware.NewAuthMiddleware(tm)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", ah.Register)
		r.Post("/auth/login", ah.Login)
		r.Post("/auth/refresh", ah.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(am.Auth)

			r.Get("/contacts", lh.List)
			r.Post("/contacts", lh.Create)
			r.Get("/contacts/by-phone/{phone}", lh.GetByPhone)
			r.Get("/contacts/{id}", lh.Get)
			r.Put("/contacts/{id}", lh.Update)
			r.Put("/contacts/{id}/transactions/{txnID}", lh.UpdateTransactionAmount)
			r.Post("/transactions", lh.AddTransaction)
		})

		r.Group(func(r chi.Router) {
			r.Use(am.Auth, middleware.RequireRole("admin"))
			r.Get("/audit-logs", audh.List)
		})
	})

	return r
}
