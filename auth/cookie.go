package auth

import (
	"net/http"
	"strings"
)

// isHTTPS returns true if the client reached us over TLS, directly or
// through a reverse proxy
func isHTTPS(r *http.Request) bool {
	return r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}

// SetSessionCookie stores the session token in a cookie on the client
func (a *Authenticator) SetSessionCookie(w http.ResponseWriter, r *http.Request, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.Cfg.SessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(a.Cfg.SessionTTL.Seconds()),
	})
}

// ClearSessionCookie removes the session cookie from the client
func (a *Authenticator) ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     a.Cfg.SessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   isHTTPS(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

// SessionCookie returns the session token from the request's cookie, empty
// if there is none
func (a *Authenticator) SessionCookie(r *http.Request) string {
	cookie, err := r.Cookie(a.Cfg.SessionCookieName)
	if err != nil {
		return ""
	}

	return cookie.Value
}

// BearerToken returns the token of an "Authorization: Bearer <token>"
// header, empty if the header is missing or uses another scheme
func BearerToken(r *http.Request) string {
	parts := strings.SplitN(strings.TrimSpace(r.Header.Get("Authorization")), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
