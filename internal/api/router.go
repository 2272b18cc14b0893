/**
 * @description
 * This file sets up the HTTP router for the bank-accounts service using the `chi`
 * routing library. It defines all the API routes and applies necessary middleware.
 *
 * @dependencies
 * - github.com/go-chi/chi/v5: The routing library.
 * - github.com/go-chi/cors: CORS handling for browser clients.
 */
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/achumpitazy/bootcamp-bankaccounts/internal/app"
	"github.com/achumpitazy/bootcamp-bankaccounts/internal/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates and configures a new HTTP router. metricsHandler may be nil.
func NewRouter(cfg *config.Config, service *app.AccountService, metricsHandler http.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Setup middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins(),
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300, // Maximum value not ignored by any major browsers
	}))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	accountHandler := NewAccountHandler(service, logger)

	throttle := cfg.MovementThrottle
	if throttle <= 0 {
		throttle = 100
	}

	r.Route("/account", func(r chi.Router) {
		r.Get("/", accountHandler.ListAccounts)
		r.Put("/", accountHandler.UpdateAccount)
		r.Post("/person", accountHandler.CreatePersonAccount)
		r.Post("/company", accountHandler.CreateCompanyAccount)
		r.Get("/consult/{customerId}", accountHandler.ListCustomerAccounts)
		r.Put("/restartTransactions", accountHandler.RestartTransactions)
		r.Get("/{id}", accountHandler.GetAccount)
		r.Delete("/{id}", accountHandler.DeleteAccount)

		// Movements hold a per-account lock; cap how many wait on it at once.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Throttle(throttle))
			r.Post("/deposit", accountHandler.Deposit)
			r.Post("/withdrawal", accountHandler.Withdrawal)
		})
	})

	return r
}
