package metrics

import (
	"net/http"
)

// MetricsResponseWriter wraps an net/http.ResponseWriter and remembers the
// status code of the response
type MetricsResponseWriter struct {
	// ResponseWriter which will actually perform work
	http.ResponseWriter

	// status is the code passed to WriteHeader, 0 until a header is written
	status int
}

// NewMetricsResponseWriter wraps w
func NewMetricsResponseWriter(w http.ResponseWriter) *MetricsResponseWriter {
	return &MetricsResponseWriter{ResponseWriter: w}
}

// WriteHeader records the status code and calls ResponseWriter.WriteHeader
func (r *MetricsResponseWriter) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}

	r.ResponseWriter.WriteHeader(code)
}

// Write calls ResponseWriter.Write, which implies a 200 status if no header
// was written yet
func (r *MetricsResponseWriter) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}

	return r.ResponseWriter.Write(b)
}

// Status returns the response status code, 200 if nothing was written
func (r *MetricsResponseWriter) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}

	return r.status
}

// Unwrap lets http.ResponseController reach the wrapped writer
func (r *MetricsResponseWriter) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
