package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/wardengate/authcore/internal/domain"
)

type userDetailsResponse struct {
	DisplayName string `json:"displayName"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatarUrl"`
}

type userDetailsUpdateRequest struct {
	DisplayName string `json:"displayName" validate:"max=80"`
	Bio         string `json:"bio" validate:"max=500"`
	AvatarURL   string `json:"avatarUrl" validate:"omitempty,url"`
}

// UserDetailsGetHandler handles GET /api/users/me/details (requires auth).
func (s *Server) UserDetailsGetHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		userID, err := s.auth.ResolveUserID(r.Context(), session.PublicID)
		if err != nil {
			writeError(w, r, err, "")
			return
		}

		details, err := s.userDetails.FindByUserID(r.Context(), userID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeJSON(w, http.StatusOK, userDetailsResponse{})
				return
			}
			writeError(w, r, err, "")
			return
		}
		writeJSON(w, http.StatusOK, userDetailsResponse{
			DisplayName: details.DisplayName,
			Bio:         details.Bio,
			AvatarURL:   details.AvatarURL,
		})
	}
}

// UserDetailsPutHandler handles PUT /api/users/me/details (requires auth).
// It upserts: a caller with no existing row gets one created.
func (s *Server) UserDetailsPutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, ok := s.requireSession(w, r)
		if !ok {
			return
		}
		userID, err := s.auth.ResolveUserID(r.Context(), session.PublicID)
		if err != nil {
			writeError(w, r, err, "")
			return
		}

		var req userDetailsUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, r, domain.ErrInvalidArgument, "malformed request body")
			return
		}
		if err := s.validator.Struct(req); err != nil {
			writeError(w, r, domain.ErrInvalidArgument, "")
			return
		}

		now := time.Now()
		existing, err := s.userDetails.FindByUserID(r.Context(), userID)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			writeError(w, r, err, "")
			return
		}
		if existing == nil {
			details := &domain.UserDetails{
				UserID:      userID,
				DisplayName: req.DisplayName,
				Bio:         req.Bio,
				AvatarURL:   req.AvatarURL,
				CreatedAt:   now,
				UpdatedAt:   now,
			}
			if err := s.userDetails.Create(r.Context(), details); err != nil {
				writeError(w, r, err, "")
				return
			}
		} else {
			existing.DisplayName = req.DisplayName
			existing.Bio = req.Bio
			existing.AvatarURL = req.AvatarURL
			existing.UpdatedAt = now
			if err := s.userDetails.Update(r.Context(), existing); err != nil {
				writeError(w, r, err, "")
				return
			}
		}

		writeJSON(w, http.StatusOK, userDetailsResponse{
			DisplayName: req.DisplayName,
			Bio:         req.Bio,
			AvatarURL:   req.AvatarURL,
		})
	}
}
