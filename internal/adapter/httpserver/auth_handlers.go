package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/wardengate/authcore/internal/auth"
	"github.com/wardengate/authcore/internal/domain"
	"github.com/wardengate/authcore/internal/fingerprint"
	"github.com/wardengate/authcore/internal/observability"
	"github.com/wardengate/authcore/internal/password"
)

const authCookieName = "auth_session"

type signUpRequest struct {
	UserName string `json:"userName" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type signUpResponse struct {
	PublicID string `json:"publicId"`
}

type signInRequest struct {
	Identifier string `json:"identifier" validate:"required"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
	TOTPCode   string `json:"totpCode"`
}

type signInResponse struct {
	PublicID    string `json:"publicId"`
	Requires2FA bool   `json:"requires2fa"`
}

type signOutAllResponse struct {
	DeletedCount int `json:"deletedCount"`
}

type authStatusResponse struct {
	Authenticated bool    `json:"authenticated"`
	PublicID      string  `json:"publicId,omitempty"`
	UserRole      string  `json:"userRole,omitempty"`
	ExpiresAtMs   *int64  `json:"expiresAtMs,omitempty"`
}

type totpSetupResponse struct {
	QRCode     string `json:"qrCode"`
	Secret     string `json:"secret"`
	OtpauthURL string `json:"otpauthUrl"`
}

type totpCodeRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// SignUpHandler handles POST /api/auth/signup.
func (s *Server) SignUpHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signUpRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, domain.ErrInvalidArgument, "malformed request body")
			return
		}
		if err := s.validator.Struct(req); err != nil {
			writeError(w, r, domain.ErrInvalidArgument, "")
			return
		}

		res, err := s.auth.SignUp(r.Context(), auth.SignUpInput{
			UserName: req.UserName,
			Password: password.NewRaw(req.Password),
		})
		if err != nil {
			writeError(w, r, err, "")
			return
		}
		writeJSON(w, http.StatusOK, signUpResponse{PublicID: res.PublicID})
	}
}

// SignInHandler handles POST /api/auth/signin.
func (s *Server) SignInHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fp, err := fingerprint.Extract(r)
		if err != nil {
			writeError(w, r, err, "")
			return
		}

		var req signInRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, domain.ErrInvalidArgument, "malformed request body")
			return
		}
		if err := s.validator.Struct(req); err != nil {
			writeError(w, r, domain.ErrInvalidArgument, "")
			return
		}

		res, err := s.auth.SignIn(r.Context(), auth.SignInInput{
			Identifier: req.Identifier,
			Password:   password.NewRaw(req.Password),
			RememberMe: req.RememberMe,
			TOTPCode:   req.TOTPCode,
		}, fp)
		if err != nil {
			result := "invalid_credentials"
			switch {
			case errors.Is(err, domain.ErrAccountLocked):
				result = "locked"
				observability.AuthLockoutsTotal.Inc()
			case errors.Is(err, domain.ErrAccountDisabled):
				result = "disabled"
			case errors.Is(err, domain.ErrInvalidTwoFactorCode):
				result = "invalid_totp"
			case errors.Is(err, domain.ErrTwoFactorNotSetup):
				result = "totp_not_setup"
			}
			observability.AuthSigninsTotal.WithLabelValues(result).Inc()
			writeError(w, r, err, "")
			return
		}

		if res.Requires2FA {
			observability.AuthSigninsTotal.WithLabelValues("requires_2fa").Inc()
			writeJSON(w, http.StatusOK, signInResponse{PublicID: res.PublicID, Requires2FA: true})
			return
		}

		observability.AuthSigninsTotal.WithLabelValues("ok").Inc()
		observability.AuthSessionsActive.Inc()
		setCookie(w, s.cookiePolicy, authCookieName, res.Token, time.Until(res.ExpiresAt))
		writeJSON(w, http.StatusOK, signInResponse{PublicID: res.PublicID, Requires2FA: false})
	}
}

// SignOutHandler handles POST /api/auth/signout.
func (s *Server) SignOutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := cookieValue(r, authCookieName)
		if token != "" {
			if err := s.auth.SignOut(r.Context(), token); err != nil {
				observability.LoggerFromContext(r.Context()).Warn("sign-out failed", "error", err)
			} else {
				observability.AuthSessionsActive.Dec()
			}
		}
		clearCookie(w, s.cookiePolicy, authCookieName)
		w.WriteHeader(http.StatusNoContent)
	}
}

// SignOutAllHandler handles POST /api/auth/signout-all.
func (s *Server) SignOutAllHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fp, err := fingerprint.Extract(r)
		if err != nil {
			writeError(w, r, err, "")
			return
		}
		token := cookieValue(r, authCookieName)
		if token == "" {
			writeError(w, r, domain.ErrSessionInvalid, "")
			return
		}
		n, err := s.auth.SignOutAll(r.Context(), token, fp)
		if err != nil {
			writeError(w, r, err, "")
			return
		}
		clearCookie(w, s.cookiePolicy, authCookieName)
		writeJSON(w, http.StatusOK, signOutAllResponse{DeletedCount: n})
	}
}

// AuthStatusHandler handles GET /api/auth/status.
func (s *Server) AuthStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fp, err := fingerprint.Extract(r)
		if err != nil {
			writeJSON(w, http.StatusOK, authStatusResponse{Authenticated: false})
			return
		}
		token := cookieValue(r, authCookieName)
		if token == "" {
			writeJSON(w, http.StatusOK, authStatusResponse{Authenticated: false})
			return
		}
		res, err := s.auth.CheckSession(r.Context(), token, fp)
		if err != nil {
			writeJSON(w, http.StatusOK, authStatusResponse{Authenticated: false})
			return
		}
		ms := res.ExpiresAt.UnixMilli()
		writeJSON(w, http.StatusOK, authStatusResponse{
			Authenticated: true,
			PublicID:      res.PublicID,
			UserRole:      res.Role.String(),
			ExpiresAtMs:   &ms,
		})
	}
}

// requireSession resolves the current caller's session or writes an
// Unauthorized response and returns ok=false.
func (s *Server) requireSession(w http.ResponseWriter, r *http.Request) (*auth.CheckResult, bool) {
	fp, err := fingerprint.Extract(r)
	if err != nil {
		writeError(w, r, err, "")
		return nil, false
	}
	token := cookieValue(r, authCookieName)
	if token == "" {
		writeError(w, r, domain.ErrSessionInvalid, "")
		return nil, false
	}
	res, err := s.auth.CheckSession(r.Context(), token, fp)
	if err != nil {
		writeError(w, r, err, "")
		return nil, false
	}
	return res, true
}

// TOTPSetupHandler handles POST /api/auth/totp/setup (requires auth).
func (s *Server) TOTPSetupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		user, err := s.auth.ResolveUserID(r.Context(), session.PublicID)
		if err != nil {
			writeError(w, r, err, "")
			return
		}
		res, err := s.auth.TOTPSetup(r.Context(), user)
		if err != nil {
			writeError(w, r, err, "")
			return
		}
		writeJSON(w, http.StatusOK, totpSetupResponse{QRCode: res.QRPNGBase64, Secret: res.SecretBase32, OtpauthURL: res.OtpauthURL})
	}
}

// TOTPVerifyHandler handles POST /api/auth/totp/verify (requires auth).
func (s *Server) TOTPVerifyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var req totpCodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || s.validator.Struct(req) != nil {
			writeError(w, r, domain.ErrInvalidTwoFactorCode, "")
			return
		}
		user, err := s.auth.ResolveUserID(r.Context(), session.PublicID)
		if err != nil {
			writeError(w, r, err, "")
			return
		}
		if err := s.auth.TOTPVerify(r.Context(), user, req.Code); err != nil {
			writeError(w, r, err, "")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// TOTPDisableHandler handles POST /api/auth/totp/disable (requires auth).
func (s *Server) TOTPDisableHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		var req totpCodeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || s.validator.Struct(req) != nil {
			writeError(w, r, domain.ErrInvalidTwoFactorCode, "")
			return
		}
		user, err := s.auth.ResolveUserID(r.Context(), session.PublicID)
		if err != nil {
			writeError(w, r, err, "")
			return
		}
		if err := s.auth.TOTPDisable(r.Context(), user, req.Code); err != nil {
			writeError(w, r, err, "")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
