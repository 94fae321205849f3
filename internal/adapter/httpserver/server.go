package httpserver

import (
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wardengate/authcore/internal/auth"
	"github.com/wardengate/authcore/internal/domain"
	"github.com/wardengate/authcore/internal/pow"
)

// Server holds every collaborator the HTTP handlers in this package need:
// the PoW and auth cores, the peripheral user-details repository, the
// request validator, and the cookie policy derived from config.
type Server struct {
	pow          *pow.Service
	auth         *auth.Service
	userDetails  domain.UserDetailsRepository
	validator    *validator.Validate
	cookiePolicy cookiePolicy

	powSessionTTL time.Duration
}

// NewServer wires a Server from its collaborators.
func NewServer(
	powSvc *pow.Service,
	authSvc *auth.Service,
	userDetails domain.UserDetailsRepository,
	cookieSecure bool,
	cookieSameSite string,
	powSessionTTL time.Duration,
) *Server {
	return &Server{
		pow:          powSvc,
		auth:         authSvc,
		userDetails:  userDetails,
		validator:    validator.New(),
		cookiePolicy: cookiePolicy{Secure: cookieSecure, SameSite: sameSiteFromString(cookieSameSite)},
		powSessionTTL: powSessionTTL,
	}
}

// HealthzHandler reports liveness. It stays process-local (no dependency
// pings) so a Postgres/Redis blip never flaps the container's health
// check; readiness concerns belong to the orchestrator's own probes
// against those backends directly.
func (s *Server) HealthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
