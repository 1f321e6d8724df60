package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sunchandi/sunchandi-backend/internal/api/handlers"
	custommiddleware "github.com/sunchandi/sunchandi-backend/internal/api/middleware"
	"github.com/sunchandi/sunchandi-backend/internal/config"
	"github.com/sunchandi/sunchandi-backend/internal/gateway"
	"github.com/sunchandi/sunchandi-backend/internal/service"
)

// NewRouter creates and configures the HTTP router
func NewRouter(
	systemService *service.SystemService,
	refreshService *service.RefreshService,
	gw *gateway.Gateway,
	cfg *config.Config,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(custommiddleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS middleware
	corsMiddleware := custommiddleware.NewCORS(cfg.CORS.AllowedOrigins)
	r.Use(corsMiddleware.Handler)

	// API routes
	r.Route("/api", func(r chi.Router) {
		// System namespace
		r.Route("/system", func(r chi.Router) {
			systemHandler := handlers.NewSystemHandler(systemService)
			r.Get("/health", systemHandler.Health)
		})

		r.Route("/v1", func(r chi.Router) {
			pricesHandler := handlers.NewPricesHandler(refreshService)
			r.Get("/prices", pricesHandler.Prices)
			r.Get("/prices/{symbol}", pricesHandler.Price)
			r.Post("/prices/refresh", pricesHandler.Refresh)
			r.Get("/rate", pricesHandler.Rate)
		})

		// Pass-through relay for frontends talking to the providers
		// directly; credentials stay server-side.
		r.Route("/relay", func(r chi.Router) {
			relayHandler := handlers.NewRelayHandler(gw)
			r.Get("/history", relayHandler.History)
			r.Get("/rate", relayHandler.Rate)
		})
	})

	return r
}
