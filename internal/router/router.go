// Package router sets up the HTTP routes and middleware chains of the
// autoblog API.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"autoblog/internal/handlers"
	"autoblog/internal/metrics"
	"autoblog/internal/middleware"
)

// Options configure the middleware stack.
type Options struct {
	// APIToken protects /api when set.
	APIToken string
	// CORSOrigin is the dashboard origin list; empty disables CORS.
	CORSOrigin string
	// RateLimiter throttles /api when set.
	RateLimiter *middleware.RateLimiter
}

// New creates the chi router with every route wired up.
func New(api *handlers.API, opts Options) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.CORS(opts.CORSOrigin))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	// Health and metrics, no auth.
	r.Get("/health", healthHandler)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireToken(opts.APIToken))
		if opts.RateLimiter != nil {
			r.Use(opts.RateLimiter.Middleware)
		}

		// Generation
		r.Post("/generate-article", api.GenerateArticle)
		r.Post("/generate-product-review", api.GenerateProductReview)
		r.Post("/batch-generate", api.BatchGenerate)

		// Catalog
		r.Route("/products", func(r chi.Router) {
			r.Get("/search", api.SearchProducts)
			r.Post("/cache/clear", api.ClearProductCache)
			r.Get("/{id}", api.ProductDetails)
		})

		// AI providers
		r.Get("/providers", api.ListProviders)
		r.Post("/providers/active", api.SetProvider)

		// Sites, license and status
		r.Get("/get-sites", api.GetSites)
		r.Get("/get-stats", api.GetStats)
		r.Get("/license", api.GetLicense)
		r.Get("/test-connection", api.TestConnection)
		r.Get("/templates", api.Templates)
		r.Get("/history", api.History)
		r.Get("/health-check", api.HealthCheck)

		// Schedule
		r.Get("/schedule", api.Schedule)
		r.Post("/schedule/toggle", api.ToggleSchedule)
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write([]byte(`{"success":false,"error":"` + msg + `"}`))
}
