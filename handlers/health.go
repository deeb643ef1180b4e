package handlers

import (
	"context"
	"net/http"
	"time"
)

// healthTimeout bounds the database ping of a health check
const healthTimeout = 2 * time.Second

// HealthHandler is used to determine if the server is running and can reach
// the database
type HealthHandler struct {
	BaseHandler
}

// ServeHTTP implements http.Handler
func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	if err := h.Store.Ping(ctx); err != nil {
		h.Logger.Errorf("health check failed to ping store: %s", err.Error())
		h.RespondJSON(w, http.StatusServiceUnavailable, map[string]bool{
			"ok": false,
		})
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]bool{
		"ok": true,
	})
}
