package handlers

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/prometheus/client_golang/prometheus"
)

// PanicHandler runs another http.Handler and recovers from any panics which occur.
// Prevents server from crashing and prints the stack trace of the panic.
type PanicHandler struct {
	BaseHandler

	// Handler to run
	Handler http.Handler
}

// ServeHTTP implements http.Handler
func (h PanicHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		recovery := recover()
		if recovery == nil {
			return
		}

		// http.ErrAbortHandler is the accepted way to abort a response
		if recovery == http.ErrAbortHandler {
			panic(recovery)
		}

		h.Metrics.APIHandlerPanicsTotal.With(prometheus.Labels{
			"path":   r.URL.Path,
			"method": r.Method,
		}).Inc()

		h.Logger.Error(string(debug.Stack()))
		h.Logger.Errorf("panicked while handling request: %#v", recovery)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		if _, err := fmt.Fprintln(w, "{\"error\": \"internal server error\"}"); err != nil {
			h.Logger.Errorf("failed to send panic response: %s", err.Error())
		}
	}()

	h.Handler.ServeHTTP(w, r)
}
