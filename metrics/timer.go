package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Timer measures the duration of an operation. Time units are milliseconds.
type Timer struct {
	// startTime is the time the timer was started
	startTime time.Time
}

// Elapsed returns the milliseconds since the timer was started
func (t Timer) Elapsed() float64 {
	return float64(time.Since(t.startTime)) / float64(time.Millisecond)
}

// Finish records the elapsed milliseconds in observer. Labels often depend on
// the outcome of the operation so the observer is picked by the caller once
// the operation is done.
func (t Timer) Finish(observer prometheus.Observer) {
	observer.Observe(t.Elapsed())
}
