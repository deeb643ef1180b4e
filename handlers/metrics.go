package handlers

import (
	"net/http"
	"strconv"

	"github.com/spgsite/cms-api/metrics"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsHandler records the duration and status of responses. It must run
// inside the router so the matched route's path template can be used as the
// path label.
type MetricsHandler struct {
	BaseHandler

	// Handler will actually handle requests
	Handler http.Handler
}

// ServeHTTP will observe custom metrics and let the .Handler handle the request
func (h MetricsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	if route := mux.CurrentRoute(r); route != nil {
		if tmpl, err := route.GetPathTemplate(); err == nil {
			path = tmpl
		}
	}

	metricsW := metrics.NewMetricsResponseWriter(w)
	durationTimer := h.Metrics.StartTimer()

	h.Handler.ServeHTTP(metricsW, r)

	durationTimer.Finish(h.Metrics.APIResponseDurationsMilliseconds.With(prometheus.Labels{
		"path":        path,
		"method":      r.Method,
		"status_code": strconv.Itoa(metricsW.Status()),
	}))
}

// Middleware wraps route handlers in a MetricsHandler, for mux.Router.Use
func (h MetricsHandler) Middleware(next http.Handler) http.Handler {
	h.Handler = next
	return h
}
