package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/ratelimit"
	"github.com/utafrali/storefront/pkg/sessioncookie"
)

// ServiceName labels metrics and spans.
const ServiceName = "storefront"

// RouterDeps holds everything the router wires into handlers.
type RouterDeps struct {
	Gate         SessionGate
	Accounts     Accounts
	Addresses    Addresses
	Cookies      *sessioncookie.Manager
	LoginLimiter *ratelimit.Limiter
	Health       *health.Handler
	CORS         middleware.CORSConfig
	Logger       *slog.Logger
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(deps RouterDeps) http.Handler {
	logger := orDefault(deps.Logger)
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.PrometheusMetrics(ServiceName))
	r.Use(middleware.CORS(deps.CORS))

	// Health check endpoints
	if deps.Health != nil {
		r.Get("/health/live", deps.Health.LivenessHandler())
		r.Get("/health/ready", deps.Health.ReadinessHandler())
	}
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	authHandler := NewAuthHandler(deps.Gate, deps.Accounts, deps.Cookies, logger)
	accountHandler := NewAccountHandler(deps.Accounts, logger)
	addressHandler := NewAddressHandler(deps.Addresses, logger)

	r.Group(func(r chi.Router) {
		r.Use(middleware.NoStore)
		r.Use(Session(deps.Gate, deps.Cookies, logger))
		// Rebuild the request logger now that the user id is known.
		r.Use(middleware.RequestLogger(logger))

		// Public
		r.With(deps.LoginLimiter.Middleware(ratelimit.KeyByIPAndPath)).
			Post("/api/auth/login", authHandler.Login)
		r.Post("/actions/auth/signup", authHandler.Signup)
		r.Post("/actions/auth/logout", authHandler.Logout)

		// Signed in
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireUser)

			r.Get("/api/me", accountHandler.Me)
			r.Post("/actions/profile/update", accountHandler.UpdateProfile)

			r.Get("/api/addresses", addressHandler.List)
			r.Route("/actions/addresses", func(r chi.Router) {
				r.Post("/add", addressHandler.Add)
				r.Post("/update", addressHandler.Update)
				r.Post("/delete", addressHandler.Delete)
				r.Post("/default", addressHandler.SetDefault)
			})
		})
	})

	return r
}
