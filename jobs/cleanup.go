package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spgsite/cms-api/storage"
	"github.com/spgsite/cms-api/store"

	"github.com/Noah-Huppert/golog"
)

// SessionCleanupJob deletes expired sessions. Takes no data.
type SessionCleanupJob struct {
	// Logger
	Logger golog.Logger

	// Store holds sessions
	Store store.SessionStore

	// now returns the current time
	now func() time.Time
}

// NewSessionCleanupJob creates a SessionCleanupJob which uses the wall clock
func NewSessionCleanupJob(logger golog.Logger, s store.SessionStore) SessionCleanupJob {
	return SessionCleanupJob{
		Logger: logger,
		Store:  s,
		now:    time.Now,
	}
}

// Do job actions
func (j SessionCleanupJob) Do(ctx context.Context, data []byte) error {
	n, err := j.Store.DeleteExpiredSessions(ctx, j.now())
	if err != nil {
		return err
	}

	if n > 0 {
		j.Logger.Infof("deleted %d expired session(s)", n)
	}

	return nil
}

// RemoveObjectsDefinition is the data of a RemoveObjectsJob
type RemoveObjectsDefinition struct {
	// Paths of the objects to remove
	Paths []string `json:"paths"`
}

// NewRemoveObjectsRequest builds the request to start a RemoveObjectsJob
func NewRemoveObjectsRequest(paths ...string) (JobStartRequest, error) {
	data, err := json.Marshal(RemoveObjectsDefinition{Paths: paths})
	if err != nil {
		return JobStartRequest{}, fmt.Errorf("failed to encode remove objects job definition: %w", err)
	}

	return JobStartRequest{
		Type: JobTypeRemoveObjects,
		Data: data,
	}, nil
}

// RemoveObjectsJob deletes objects from the bucket. The data field must be a
// JSON encoded RemoveObjectsDefinition.
type RemoveObjectsJob struct {
	// Logger
	Logger golog.Logger

	// Bucket to remove objects from
	Bucket storage.Bucket
}

// Do job actions
func (j RemoveObjectsJob) Do(ctx context.Context, data []byte) error {
	var def RemoveObjectsDefinition
	if err := json.Unmarshal(data, &def); err != nil {
		return fmt.Errorf("failed to decode data field as RemoveObjectsDefinition JSON: %w", err)
	}

	if len(def.Paths) == 0 {
		return nil
	}

	if err := j.Bucket.Remove(ctx, def.Paths...); err != nil {
		return fmt.Errorf("failed to remove objects: %w", err)
	}

	j.Logger.Debugf("removed objects %v", def.Paths)

	return nil
}

// OrphanCleanupJob removes bucket objects no category, content or slider
// image refers to. Objects younger than GracePeriod are kept so uploads whose
// row is not written yet survive. Takes no data.
type OrphanCleanupJob struct {
	// Logger
	Logger golog.Logger

	// Store holds the rows which reference objects
	Store store.Store

	// Bucket to sweep
	Bucket storage.Bucket

	// GracePeriod protects recently written objects
	GracePeriod time.Duration

	// now returns the current time
	now func() time.Time
}

// NewOrphanCleanupJob creates an OrphanCleanupJob which uses the wall clock
func NewOrphanCleanupJob(logger golog.Logger, s store.Store, bucket storage.Bucket, gracePeriod time.Duration) OrphanCleanupJob {
	return OrphanCleanupJob{
		Logger:      logger,
		Store:       s,
		Bucket:      bucket,
		GracePeriod: gracePeriod,
		now:         time.Now,
	}
}

// Do job actions
func (j OrphanCleanupJob) Do(ctx context.Context, data []byte) error {
	// {{{1 Find referenced objects
	urls, err := j.Store.ListImageURLs(ctx)
	if err != nil {
		return err
	}

	referenced := map[string]bool{}
	for _, u := range urls {
		if p, ok := j.Bucket.ObjectPath(u); ok {
			referenced[p] = true
		}
	}

	// {{{1 Remove the rest
	objects, err := j.Bucket.List(ctx)
	if err != nil {
		return err
	}

	cutoff := j.now().Add(-j.GracePeriod)
	orphans := []string{}

	for _, obj := range objects {
		if referenced[obj.Path] || obj.ModTime.After(cutoff) {
			continue
		}

		orphans = append(orphans, obj.Path)
	}

	if len(orphans) == 0 {
		return nil
	}

	if err := j.Bucket.Remove(ctx, orphans...); err != nil {
		return fmt.Errorf("failed to remove orphaned objects: %w", err)
	}

	j.Logger.Infof("removed %d orphaned object(s)", len(orphans))

	return nil
}
