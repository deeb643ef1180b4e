package handlers

import (
	"net/http"
)

// CORSHandler enables cross origin resource sharing (CORS)
type CORSHandler struct {
	BaseHandler

	// Handler to enabled CORS for
	Handler http.Handler
}

// setCORSHeaders sets the headers every response needs for CORS. Credentials
// (the session cookie) are only allowed for a specific origin, browsers
// reject them with a "*" origin.
func (h BaseHandler) setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", h.Cfg.CORSOrigin)

	if h.Cfg.CORSOrigin != "*" {
		w.Header().Add("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Credentials", "true")
	}
}

// ServeHTTP runs CorsHandler.Handler with CORS enabled
func (h CORSHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.setCORSHeaders(w)

	h.Handler.ServeHTTP(w, r)
}
