// Package httpserver contains HTTP handlers and middleware for the
// authentication and anti-abuse API surface.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/wardengate/authcore/internal/domain"
)

// problemDetails is a Problem Details-style ({type, title, status, detail})
// JSON error body, widened with an optional "action" field for
// user-actionable guidance (e.g. "retry_after_backoff").
type problemDetails struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
	Action string `json:"action,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// kindFor classifies err into the taxonomy of §7: status code, a stable
// "type" slug, and a human title. Unrecognized errors (including a bare
// domain.ErrInternal surfaced from an unrecognized role/status integer)
// fall through to InternalServerError.
func kindFor(err error) (status int, typ, title string) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrSessionInvalid),
		errors.Is(err, domain.ErrSessionFingerprintMismatch),
		errors.Is(err, domain.ErrInvalidTwoFactorCode):
		return http.StatusUnauthorized, "unauthorized", "Unauthorized"
	case errors.Is(err, domain.ErrAccountDisabled):
		return http.StatusForbidden, "forbidden", "Forbidden"
	case errors.Is(err, domain.ErrTwoFactorRoleGated):
		// §6/§4.6: disabling 2FA for a role that mandates it is an internal
		// policy error, not a client-facing permission error — 500, not 403.
		return http.StatusInternalServerError, "internal_error", "Internal Server Error"
	case errors.Is(err, domain.ErrAccountLocked):
		return http.StatusLocked, "locked", "Account Locked"
	case errors.Is(err, domain.ErrChallengeNotFound), errors.Is(err, domain.ErrChallengeExpired):
		return http.StatusGone, "gone", "Gone"
	case errors.Is(err, domain.ErrInvalidNonce):
		return http.StatusConflict, "conflict", "Conflict"
	case errors.Is(err, domain.ErrUserNameTaken), errors.Is(err, domain.ErrConflict):
		return http.StatusConflict, "conflict", "Conflict"
	case errors.Is(err, domain.ErrTwoFactorNotSetup):
		return http.StatusPreconditionFailed, "precondition_failed", "Precondition Failed"
	case errors.Is(err, domain.ErrPasswordPolicy), errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrMissingHeader):
		return http.StatusBadRequest, "bad_request", "Bad Request"
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests, "too_many_requests", "Too Many Requests"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found", "Not Found"
	case errors.Is(err, domain.ErrUnavailable):
		return http.StatusServiceUnavailable, "service_unavailable", "Service Unavailable"
	default:
		return http.StatusInternalServerError, "internal_error", "Internal Server Error"
	}
}

// writeError renders err as a Problem Details body. detail, when set,
// overrides the message shown to the caller (sentinel errors never leak
// their wrapped cause).
func writeError(w http.ResponseWriter, _ *http.Request, err error, detail string) {
	status, typ, title := kindFor(err)
	if detail == "" {
		detail = title
	}
	writeJSON(w, status, problemDetails{Type: typ, Title: title, Status: status, Detail: detail})
}

// writeEmptyError writes just the status line with no body, used by the
// PoW endpoints (§7) so a caller can never distinguish "challenge expired"
// from "challenge never existed" by response shape.
func writeEmptyError(w http.ResponseWriter, err error) {
	status, _, _ := kindFor(err)
	w.WriteHeader(status)
}
