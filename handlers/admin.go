package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/spgsite/cms-api/auth"
)

// identityCtxKey is the request context key of the authenticated admin
type identityCtxKey struct{}

// IdentityFromContext returns the admin stored by AdminRequiredHandler, nil
// outside of admin routes
func IdentityFromContext(ctx context.Context) *auth.Identity {
	id, _ := ctx.Value(identityCtxKey{}).(*auth.Identity)
	return id
}

// AdminRequiredHandler only lets requests from admins through to Handler
type AdminRequiredHandler struct {
	BaseHandler

	// Handler runs once the request is authorized
	Handler http.Handler

	// UnauthorizedMsg is the error message of 401 responses, defaults to
	// "Unauthorized"
	UnauthorizedMsg string
}

// ServeHTTP implements http.Handler
func (h AdminRequiredHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id, err := h.Auth.ValidateAdminRequest(r)
	if err != nil {
		if !errors.Is(err, auth.ErrUnauthenticated) && !errors.Is(err, auth.ErrNotAdmin) {
			h.RespondError(w, http.StatusInternalServerError, "Failed to check authorization", err)
			return
		}

		msg := h.UnauthorizedMsg
		if len(msg) == 0 {
			msg = "Unauthorized"
		}

		h.RespondError(w, http.StatusUnauthorized, msg, nil)
		return
	}

	// Keep the cookie lifetime in step with the sliding session
	if len(id.CookieToken) > 0 {
		h.Auth.SetSessionCookie(w, r, id.CookieToken)
	}

	h.Handler.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), identityCtxKey{}, id)))
}

// isAdmin returns true if the request comes from an admin. Used by public
// routes which show more to admins.
func (h BaseHandler) isAdmin(r *http.Request) bool {
	if len(auth.BearerToken(r)) == 0 && len(h.Auth.SessionCookie(r)) == 0 {
		return false
	}

	_, err := h.Auth.ValidateAdminRequest(r)
	return err == nil
}
