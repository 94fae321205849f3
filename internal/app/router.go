// Package app wires application components and startup helpers.
//
// It provides dependency injection and application initialization.
// The package coordinates between different layers and provides
// a clean application bootstrap process.
package app

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wardengate/authcore/internal/adapter/httpserver"
	"github.com/wardengate/authcore/internal/config"
	"github.com/wardengate/authcore/internal/observability"
)

// BuildRouter constructs the HTTP handler with all middleware and routes
// for the PoW, auth, and user-details surfaces of SPEC_FULL.md §6.
func BuildRouter(cfg config.Config, srv *httpserver.Server) http.Handler {
	r := chi.NewRouter()
	r.Use(httpserver.Recoverer())
	r.Use(httpserver.RequestID())
	r.Use(httpserver.TimeoutMiddleware(cfg.RequestTimeout))
	r.Use(httpserver.AccessLog())
	r.Use(observability.HTTPMetricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   config.ParseOrigins(cfg.FrontendOrigins),
		AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// IP-level backstop rate limit per §11.1, sitting above the PoW/auth
	// domain-specific rate limits enforced inside the services themselves.
	r.Use(httprate.LimitByIP(cfg.IPRateLimitPerMin, time.Minute))

	r.Route("/api/pow", func(wr chi.Router) {
		wr.Get("/challenge", srv.ChallengeHandler())
		wr.Post("/submit", srv.SubmitHandler())
		wr.Get("/status", srv.PowStatusHandler())
		wr.Post("/logout", srv.PowLogoutHandler())
	})

	r.Route("/api/auth", func(wr chi.Router) {
		wr.Post("/signup", srv.SignUpHandler())
		wr.Post("/signin", srv.SignInHandler())
		wr.Post("/signout", srv.SignOutHandler())
		wr.Post("/signout-all", srv.SignOutAllHandler())
		wr.Get("/status", srv.AuthStatusHandler())
		wr.Post("/totp/setup", srv.TOTPSetupHandler())
		wr.Post("/totp/verify", srv.TOTPVerifyHandler())
		wr.Post("/totp/disable", srv.TOTPDisableHandler())
	})

	r.Route("/api/users/me/details", func(wr chi.Router) {
		wr.Get("/", srv.UserDetailsGetHandler())
		wr.Put("/", srv.UserDetailsPutHandler())
	})

	r.Get("/healthz", srv.HealthzHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) { promhttp.Handler().ServeHTTP(w, r) })

	return httpserver.SecurityHeaders(r)
}
