// Package metrics records Prometheus metrics about the API and background jobs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// namespace prefixes every metric name
const namespace = "cms_api"

// Metrics holds all the available internal metrics
type Metrics struct {
	// APIResponseDurationsMilliseconds is the number of milliseconds it takes to
	// complete API responses.
	//
	// Labels: path (route path template), method (request HTTP method),
	// status_code (response HTTP status code)
	APIResponseDurationsMilliseconds *prometheus.HistogramVec

	// APIHandlerPanicsTotal is the number of times HTTP request handlers have paniced.
	//
	// Labels: path (route path template), method (request HTTP method)
	APIHandlerPanicsTotal *prometheus.CounterVec

	// LoginAttemptsTotal counts admin logins.
	//
	// Labels: result (success, bad_request, bad_credentials, not_admin, error)
	LoginAttemptsTotal *prometheus.CounterVec

	// UploadedBytesTotal is the number of bytes written to the bucket.
	//
	// Labels: kind (highlight, content, category, slider)
	UploadedBytesTotal *prometheus.CounterVec

	// JobsSubmittedTotal is the number of jobs which are submitted.
	//
	// Labels: job_type (jobs.JobStartRequest.Type field)
	JobsSubmittedTotal *prometheus.CounterVec

	// JobsRunDurationsMilliseconds is the number of milliseconds jobs run for.
	//
	// Labels: job_type (jobs.JobStartRequest.Type field), successful (0 = fail, 1 = success)
	JobsRunDurationsMilliseconds *prometheus.HistogramVec
}

// NewMetrics creates all the Prometheus recorders and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		APIResponseDurationsMilliseconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "response_durations_milliseconds",
			Help:      "Time, in milliseconds, it took to respond to API requests",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"path", "method", "status_code"}),
		APIHandlerPanicsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "api",
			Name:      "handler_panics_total",
			Help:      "Total number of HTTP handlers which have panicked while processing a request",
		}, []string{"path", "method"}),
		LoginAttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "login_attempts_total",
			Help:      "Total number of admin login attempts by result",
		}, []string{"result"}),
		UploadedBytesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "uploaded_bytes_total",
			Help:      "Total number of bytes uploaded to the image bucket",
		}, []string{"kind"}),
		JobsSubmittedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "submitted_total",
			Help:      "Total number of jobs submitted",
		}, []string{"job_type"}),
		JobsRunDurationsMilliseconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "jobs",
			Name:      "run_durations_milliseconds",
			Help:      "Duration, in milliseconds, of jobs",
		}, []string{"job_type", "successful"}),
	}

	reg.MustRegister(
		m.APIResponseDurationsMilliseconds,
		m.APIHandlerPanicsTotal,
		m.LoginAttemptsTotal,
		m.UploadedBytesTotal,
		m.JobsSubmittedTotal,
		m.JobsRunDurationsMilliseconds,
	)

	return m
}

// StartTimer starts a Timer. Calling .Finish() on the returned timer records
// the time elapsed in milliseconds.
func (m *Metrics) StartTimer() Timer {
	return Timer{
		startTime: time.Now(),
	}
}
