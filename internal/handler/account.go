package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/eventportal/internal/identity"
	"github.com/Shivanand-hulikatti/eventportal/internal/model"
	"github.com/Shivanand-hulikatti/eventportal/internal/service"
)

// TokenVerifier exchanges an identity-provider ID token for an identity.
type TokenVerifier interface {
	Verify(ctx context.Context, idToken string) (model.Identity, error)
}

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	Secure bool
}

// AccountHandler serves sign-in, the current session and the profile.
type AccountHandler struct {
	verifier TokenVerifier
	sessions *identity.Sessions
	profiles *service.ProfileService
	cookie   CookieConfig
	logger   *zap.Logger
}

// NewAccountHandler constructs an AccountHandler.
func NewAccountHandler(verifier TokenVerifier, sessions *identity.Sessions, profiles *service.ProfileService, cookie CookieConfig, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{verifier: verifier, sessions: sessions, profiles: profiles, cookie: cookie, logger: logger}
}

// SignIn handles POST /api/auth/session
// Verifies the ID token, creates or refreshes the profile and sets the
// session cookie.
func (h *AccountHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req model.SignInRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.verifier.Verify(r.Context(), req.IDToken)
	if err != nil {
		h.logger.Info("sign-in rejected", zap.Error(err))
		writeError(w, http.StatusUnauthorized, "sign-in failed")
		return
	}

	profile, err := h.profiles.SignIn(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load profile")
		return
	}

	token, exp, err := h.sessions.Issue(id)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to start session")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		Expires:  exp,
		MaxAge:   int(time.Until(exp).Seconds()),
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, model.SessionResponse{User: id, Profile: profile})
}

// Session handles GET /api/auth/session
// Returns the current user, or null when nobody is signed in.
func (h *AccountHandler) Session(w http.ResponseWriter, r *http.Request) {
	id, ok := currentIdentity(r)
	if !ok {
		writeJSON(w, http.StatusOK, nil)
		return
	}

	resp := model.SessionResponse{User: id}
	profile, err := h.profiles.Profile(r.Context(), id.ID)
	switch {
	case err == nil:
		resp.Profile = profile
	case errors.Is(err, model.ErrNotFound):
	default:
		writeServiceError(w, h.logger, err, "failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// SignOut handles DELETE /api/auth/session
func (h *AccountHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.cookie.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /api/me
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.profiles.Profile(r.Context(), userID(r))
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to load profile")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// UpdatePreferences handles PATCH /api/me/preferences
func (h *AccountHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	var req model.PreferencesUpdate
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	profile, err := h.profiles.UpdatePreferences(r.Context(), userID(r), req)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to update preferences")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// AddSkill handles POST /api/me/skills
func (h *AccountHandler) AddSkill(w http.ResponseWriter, r *http.Request) {
	var req model.AddSkillRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	profile, err := h.profiles.AddSkill(r.Context(), userID(r), req)
	if err != nil {
		writeServiceError(w, h.logger, err, "failed to add skill")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}
