package handlers

import (
	"errors"
	"net/http"

	"github.com/spgsite/cms-api/auth"
	"github.com/spgsite/cms-api/parsing"
)

// userResponse is the user object of login and me responses
type userResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
}

// newUserResponse builds the user object of an identity
func newUserResponse(id *auth.Identity, withEmail bool) userResponse {
	resp := userResponse{
		ID:       id.Admin.ID,
		Username: id.Admin.Username,
	}

	if withEmail {
		resp.Email = id.User.Email
	}

	return resp
}

// LoginHandler signs admins in.
//
// If a bearer token is sent it is validated and the admin returned. Otherwise
// the body must hold an email and password, a session is started and its
// token returned and set as a cookie.
type LoginHandler struct {
	BaseHandler
}

// ServeHTTP implements http.Handler
func (h LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// {{{1 Existing token
	if token := auth.BearerToken(r); len(token) > 0 {
		id, err := h.Auth.ValidateAdminToken(r.Context(), token)
		switch {
		case errors.Is(err, auth.ErrUnauthenticated):
			h.countLogin("bad_credentials")
			h.RespondError(w, http.StatusUnauthorized, "Invalid token", nil)
		case errors.Is(err, auth.ErrNotAdmin):
			h.countLogin("not_admin")
			h.RespondError(w, http.StatusForbidden, "Not an admin", nil)
		case err != nil:
			h.countLogin("error")
			h.RespondError(w, http.StatusInternalServerError, "Failed to validate token", err)
		default:
			h.countLogin("success")
			h.RespondJSON(w, http.StatusOK, map[string]interface{}{
				"user": newUserResponse(id, true),
			})
		}
		return
	}

	// {{{1 Email and password
	login, err := parsing.ParseLoginRequest(r)
	if err != nil {
		h.countLogin("bad_request")
		h.RespondParseError(w, err)
		return
	}

	res, err := h.Auth.Login(r.Context(), login.Email, login.Password)
	switch {
	case errors.Is(err, auth.ErrBadCredentials):
		h.countLogin("bad_credentials")
		h.RespondError(w, http.StatusUnauthorized, "Invalid email or password", nil)
		return
	case errors.Is(err, auth.ErrNotAdmin):
		h.countLogin("not_admin")
		h.RespondError(w, http.StatusForbidden, "Not an admin", nil)
		return
	case err != nil:
		h.countLogin("error")
		h.RespondError(w, http.StatusInternalServerError, "Failed to sign in", err)
		return
	}

	h.countLogin("success")
	h.Auth.SetSessionCookie(w, r, res.Token)
	h.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"user":         newUserResponse(&res.Identity, true),
		"access_token": res.Token,
		"expires_at":   res.ExpiresAt,
	})
}

// countLogin records a login attempt
func (h LoginHandler) countLogin(result string) {
	h.Metrics.LoginAttemptsTotal.WithLabelValues(result).Inc()
}

// LogoutHandler ends the session of the request, whether it was sent as a
// bearer token or a cookie
type LogoutHandler struct {
	BaseHandler
}

// ServeHTTP implements http.Handler
func (h LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	for _, token := range []string{auth.BearerToken(r), h.Auth.SessionCookie(r)} {
		if err := h.Auth.Logout(r.Context(), token); err != nil {
			h.RespondError(w, http.StatusInternalServerError, "Failed to sign out", err)
			return
		}
	}

	h.Auth.ClearSessionCookie(w, r)
	h.RespondJSON(w, http.StatusOK, map[string]bool{
		"success": true,
	})
}

// MeHandler returns the admin making the request. Must be wrapped in an
// AdminRequiredHandler.
type MeHandler struct {
	BaseHandler
}

// ServeHTTP implements http.Handler
func (h MeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := IdentityFromContext(r.Context())
	if id == nil {
		h.RespondError(w, http.StatusUnauthorized, "Not authenticated or not authorized", nil)
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"user": newUserResponse(id, false),
	})
}
