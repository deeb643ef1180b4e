package handlers

import (
	"net/http"
)

// PreFlightOptionsHandler responds to OPTIONS requests with the headers
// browsers require before sending cross origin requests
type PreFlightOptionsHandler struct {
	BaseHandler
}

// ServeHTTP implements http.Handler
func (h PreFlightOptionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.setCORSHeaders(w)
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
	w.Header().Set("Access-Control-Max-Age", "600")
	w.WriteHeader(http.StatusNoContent)
}
