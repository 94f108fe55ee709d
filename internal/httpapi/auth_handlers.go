package httpapi

import (
	"errors"
	"net/http"
	"time"

	"github.com/yikev/saas-skeleton/internal/audit"
	"github.com/yikev/saas-skeleton/internal/auth"
	"github.com/yikev/saas-skeleton/internal/obs"
)

const (
	refreshCookieName = "refresh_token"

	// authCookiePath keeps the refresh secret off every non-auth request.
	authCookiePath = "/auth"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken      string `json:"accessToken"`
	TokenType        string `json:"tokenType"`
	ExpiresInSeconds int    `json:"expiresInSeconds"`
}

func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	session, err := a.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			obs.AuthLogins.WithLabelValues("unauthorized").Inc()
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		obs.AuthLogins.WithLabelValues("error").Inc()
		writeError(w, http.StatusInternalServerError, "login failed")
		return
	}

	obs.AuthLogins.WithLabelValues("ok").Inc()
	_ = audit.LogEvent(r.Context(), "auth.login", map[string]any{
		"user_id": session.Principal.UserID,
		"org_id":  session.Principal.OrgID,
	})

	a.setRefreshCookie(w, session.RefreshSecret, session.RefreshExpiresAt)
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:      session.AccessToken,
		TokenType:        "Bearer",
		ExpiresInSeconds: session.ExpiresIn,
	})
}

func (a *API) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	cookie, err := r.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		obs.AuthRefreshes.WithLabelValues("unauthorized").Inc()
		writeError(w, http.StatusUnauthorized, "invalid session")
		return
	}

	session, err := a.auth.Refresh(r.Context(), cookie.Value)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrSessionReplayed):
			// Same outward signal as any invalid session; the distinction
			// feeds only metrics and the audit trail.
			obs.AuthRefreshes.WithLabelValues("replay").Inc()
			_ = audit.LogEvent(r.Context(), "auth.refresh.replay", nil)
			writeError(w, http.StatusUnauthorized, "invalid session")
		case errors.Is(err, auth.ErrInvalidSession):
			obs.AuthRefreshes.WithLabelValues("unauthorized").Inc()
			writeError(w, http.StatusUnauthorized, "invalid session")
		default:
			obs.AuthRefreshes.WithLabelValues("error").Inc()
			writeError(w, http.StatusInternalServerError, "refresh failed")
		}
		return
	}

	obs.AuthRefreshes.WithLabelValues("ok").Inc()
	_ = audit.LogEvent(r.Context(), "auth.refresh", map[string]any{
		"user_id": session.Principal.UserID,
		"org_id":  session.Principal.OrgID,
	})

	a.setRefreshCookie(w, session.RefreshSecret, session.RefreshExpiresAt)
	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:      session.AccessToken,
		TokenType:        "Bearer",
		ExpiresInSeconds: session.ExpiresIn,
	})
}

// handleLogout always answers 204: missing or unknown sessions are already
// logged out, and store faults are logged without changing the outcome.
func (a *API) handleLogout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, http.MethodPost)
		return
	}

	if cookie, err := r.Cookie(refreshCookieName); err == nil && cookie.Value != "" {
		if err := a.auth.Logout(r.Context(), cookie.Value); err != nil {
			_ = audit.LogEvent(r.Context(), "auth.logout.fault", map[string]any{
				"error": err.Error(),
			})
		} else {
			_ = audit.LogEvent(r.Context(), "auth.logout", nil)
		}
	}

	obs.AuthLogouts.Inc()
	a.clearRefreshCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, http.MethodGet)
		return
	}

	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"userId": principal.UserID,
		"orgId":  principal.OrgID,
		"email":  principal.Email,
		"role":   principal.Role.String(),
	})
}

func (a *API) setRefreshCookie(w http.ResponseWriter, secret string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    secret,
		Path:     authCookiePath,
		Expires:  expires,
		HttpOnly: true,
		Secure:   a.production,
		SameSite: http.SameSiteLaxMode,
	})
}

func (a *API) clearRefreshCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     authCookiePath,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   a.production,
		SameSite: http.SameSiteLaxMode,
	})
}
