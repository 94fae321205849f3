package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/wardengate/authcore/internal/domain"
	"github.com/wardengate/authcore/internal/fingerprint"
	"github.com/wardengate/authcore/internal/observability"
	"github.com/wardengate/authcore/internal/pow"
)

const powCookieName = "pow_session"

type challengeResponse struct {
	PowChallengeID    string `json:"powChallengeId"`
	PowChallengeB64   string `json:"powChallengeB64"`
	PowDifficultyBits uint8  `json:"powDifficultyBits"`
	PowExpiresAtMs    int64  `json:"powExpiresAtMs"`
}

type submitRequest struct {
	ChallengeID string `json:"challengeId" validate:"required,uuid4"`
	NonceU32    uint32 `json:"nonceU32"`
	ElapsedMs   *int64 `json:"elapsedMs"`
	TotalHashes *int64 `json:"totalHashes"`
}

type powStatusResponse struct {
	Passed bool `json:"passed"`
}

// ChallengeHandler handles GET /api/pow/challenge.
func (s *Server) ChallengeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fp, err := fingerprint.Extract(r)
		if err != nil {
			writeEmptyError(w, err)
			return
		}

		issued, err := s.pow.IssueChallenge(r.Context(), fp)
		if err != nil {
			if !errors.Is(err, domain.ErrRateLimited) {
				observability.LoggerFromContext(r.Context()).Error("pow challenge issue failed", "error", err)
			}
			writeEmptyError(w, err)
			return
		}
		observability.PowChallengesIssuedTotal.Inc()

		writeJSON(w, http.StatusOK, challengeResponse{
			PowChallengeID:    issued.ChallengeID.String(),
			PowChallengeB64:   issued.ChallengeB64,
			PowDifficultyBits: issued.DifficultyBits,
			PowExpiresAtMs:    issued.ExpiresAt.UnixMilli(),
		})
	}
}

// SubmitHandler handles POST /api/pow/submit.
func (s *Server) SubmitHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fp, err := fingerprint.Extract(r)
		if err != nil {
			writeEmptyError(w, err)
			return
		}

		var req submitRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeEmptyError(w, domain.ErrInvalidArgument)
			return
		}
		if err := s.validator.Struct(req); err != nil {
			writeEmptyError(w, domain.ErrInvalidArgument)
			return
		}
		challengeID, err := uuid.Parse(req.ChallengeID)
		if err != nil {
			writeEmptyError(w, domain.ErrChallengeNotFound)
			return
		}

		token, err := s.pow.SubmitSolution(r.Context(), pow.SubmitInput{
			ChallengeID: challengeID,
			Nonce:       req.NonceU32,
			ElapsedMs:   req.ElapsedMs,
			TotalHashes: req.TotalHashes,
		}, fp)
		result := "ok"
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrInvalidNonce):
				result = "invalid_nonce"
			case errors.Is(err, domain.ErrChallengeExpired), errors.Is(err, domain.ErrChallengeNotFound):
				result = "expired_or_missing"
			default:
				result = "error"
				observability.LoggerFromContext(r.Context()).Error("pow submit failed", "error", err)
			}
			observability.PowSolutionsVerifiedTotal.WithLabelValues(result).Inc()
			writeEmptyError(w, err)
			return
		}
		observability.PowSolutionsVerifiedTotal.WithLabelValues(result).Inc()

		setCookie(w, s.cookiePolicy, powCookieName, token, s.powSessionTTL)
		w.WriteHeader(http.StatusNoContent)
	}
}

// PowStatusHandler handles GET /api/pow/status.
func (s *Server) PowStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		fp, err := fingerprint.Extract(r)
		if err != nil {
			writeJSON(w, http.StatusOK, powStatusResponse{Passed: false})
			return
		}
		token := cookieValue(r, powCookieName)
		if token == "" {
			writeJSON(w, http.StatusOK, powStatusResponse{Passed: false})
			return
		}
		passed, err := s.pow.Check(r.Context(), token, fp)
		if err != nil {
			writeJSON(w, http.StatusOK, powStatusResponse{Passed: false})
			return
		}
		writeJSON(w, http.StatusOK, powStatusResponse{Passed: passed})
	}
}

// PowLogoutHandler handles POST /api/pow/logout.
func (s *Server) PowLogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := cookieValue(r, powCookieName)
		if token != "" {
			if err := s.pow.Logout(r.Context(), token); err != nil {
				observability.LoggerFromContext(r.Context()).Warn("pow logout failed", "error", err)
			}
		}
		clearCookie(w, s.cookiePolicy, powCookieName)
		w.WriteHeader(http.StatusNoContent)
	}
}
