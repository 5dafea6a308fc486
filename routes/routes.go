package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/loomhq/tenantgate/app"
	"github.com/loomhq/tenantgate/handlers"
	"github.com/loomhq/tenantgate/middleware"
	"github.com/loomhq/tenantgate/models"
)

// SetupRoutes configures all application routes and middleware.
// Registration order encodes the pipeline: the auth stage always runs
// before the tenant stage on protected routes.
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(propagateRequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-User-ID", "X-Email", "X-Selected-Org"},
		ExposedHeaders:   []string{"Link", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Public allowlist: these bypass both pipeline stages
	r.Get("/healthz", handlers.HealthCheck(deps))
	r.Get("/readyz", handlers.ReadinessCheck(deps))
	r.Get("/ping", handlers.Ping(deps))
	r.Get("/docs", handlers.Docs(deps))
	r.Get("/openapi.json", handlers.OpenAPISchema(deps))
	r.Get("/metrics", handlers.Metrics(deps))

	// API v1 routes, tenant-isolated. The tenant stage must sit where
	// the org_id path parameter is already matched: chi fills in URL
	// params during routing, after any group-level Use has run, so a
	// group-level registration would never see the parameter.
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(deps.AuthMiddleware.RequireAuth)

		r.With(deps.TenantMiddleware.RequireTenant).
			Get("/me", handlers.CurrentUserHandler(deps))

		r.Route("/organizations/{org_id}", func(r chi.Router) {
			r.Use(deps.TenantMiddleware.RequireTenant)

			r.Get("/", handlers.GetOrganizationHandler(deps))

			r.With(deps.TenantMiddleware.RequireRole(models.RoleAdmin)).
				Put("/", handlers.UpdateOrganizationHandler(deps))
			r.With(deps.TenantMiddleware.RequireRole(models.RoleOwner)).
				Delete("/", handlers.DeleteOrganizationHandler(deps))
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}

// propagateRequestID copies chi's request id into our typed context key
// so pipeline logs can correlate without importing chi internals
func propagateRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if reqID := chimiddleware.GetReqID(ctx); reqID != "" {
			ctx = middleware.WithRequestID(ctx, reqID)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
