// Package jobs runs background work off the request path: session cleanup,
// removal of replaced images and sweeps of unreferenced bucket objects.
package jobs

import (
	"context"
)

// Job is a piece of logic
type Job interface {
	// Do job. Data argument holds arbitrary data. It is up to each job
	// to define what data it takes.
	Do(ctx context.Context, data []byte) error
}
