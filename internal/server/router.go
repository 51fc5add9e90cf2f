package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/palisadehq/palisade/internal/auth"
	pmiddleware "github.com/palisadehq/palisade/internal/middleware"
	"github.com/palisadehq/palisade/internal/services/iam"
	"github.com/palisadehq/palisade/internal/telemetry"
)

// RouterOptions controls the construction of the HTTP router. Service is
// required; everything else has a working default.
type RouterOptions struct {
	Service iam.Service

	// CORSOptions overrides the development CORS policy.
	CORSOptions *cors.Options

	// Middleware is appended after the baseline chain and before
	// authentication.
	Middleware []func(http.Handler) http.Handler

	// Metrics enables per-route request telemetry when non-nil.
	Metrics *telemetry.ServerMetrics

	// ExtraRoutes mounts additional routes (tests, embedders).
	ExtraRoutes func(chi.Router)
}

// DefaultCORSOptions returns the shared development CORS policy.
func DefaultCORSOptions() cors.Options {
	return cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173",
			"http://127.0.0.1:5173",
		},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{
			"Content-Type",
			"Authorization",
			iam.HeaderAPIKey,
			HeaderIDToken,
			HeaderAccessToken,
		},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

// NewRouter assembles the chi router: baseline middleware, CORS,
// authentication, and the credential/admin endpoints. Login endpoints sit
// outside any permission guard; the admin surface requires
// ACCESS_MANAGEMENT.
func NewRouter(opts RouterOptions) chi.Router {
	r := chi.NewRouter()

	// Baseline middleware shared across entrypoints.
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(pmiddleware.RequestMetrics(opts.Metrics))

	corsCfg := DefaultCORSOptions()
	if opts.CORSOptions != nil {
		corsCfg = *opts.CORSOptions
	}
	r.Use(cors.Handler(corsCfg))

	for _, mw := range opts.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	// Credential resolution runs on every request; routes decide what an
	// anonymous principal may reach.
	r.Use(pmiddleware.Authentication(opts.Service))

	svc := opts.Service

	r.Get("/health", HandleHealth(svc))

	r.Post("/auth/login", HandleLogin(svc))
	r.Post("/auth/login/oidc", HandleOIDCLogin(svc))
	r.Post("/auth/password", HandleChangePassword(svc))

	r.Group(func(r chi.Router) {
		r.Use(pmiddleware.RequireAuthenticated())
		r.Get("/api/auth/whoami", HandleWhoAmI())
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(pmiddleware.RequirePermission(svc, auth.PermissionAccessManagement))

		r.Post("/users", HandleCreateUser(svc))
		r.Get("/users", HandleListUsers(svc))
		r.Post("/users/{username}/suspend", HandleSuspendUser(svc))
		r.Post("/users/{username}/force-password-change", HandleForcePasswordChange(svc))

		r.Post("/apikeys", HandleCreateApiKey(svc))
		r.Get("/apikeys", HandleListApiKeys(svc))
		r.Post("/apikeys/{publicID}/rotate", HandleRotateApiKey(svc))

		r.Post("/teams", HandleCreateTeam(svc))
		r.Get("/teams", HandleListTeams(svc))
		r.Post("/teams/group-mappings", HandleMapGroup(svc))

		r.Post("/permissions", HandleCreatePermission(svc))
		r.Get("/permissions", HandleListPermissions(svc))
		r.Post("/grants", HandleGrantPermission(svc))
	})

	if opts.ExtraRoutes != nil {
		opts.ExtraRoutes(r)
	}

	return r
}
