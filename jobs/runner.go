package jobs

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/spgsite/cms-api/config"
	"github.com/spgsite/cms-api/metrics"
	"github.com/spgsite/cms-api/storage"
	"github.com/spgsite/cms-api/store"

	"github.com/Noah-Huppert/golog"
)

// JobTypeT is used to specify what type of job to start
type JobTypeT string

// JobTypeCleanupSessions identifies a SessionCleanupJob
var JobTypeCleanupSessions JobTypeT = "cleanup_sessions"

// JobTypeCleanupOrphans identifies an OrphanCleanupJob
var JobTypeCleanupOrphans JobTypeT = "cleanup_orphans"

// JobTypeRemoveObjects identifies a RemoveObjectsJob
var JobTypeRemoveObjects JobTypeT = "remove_objects"

// ErrUnknownJobType is returned when submitting a job no instance exists for
var ErrUnknownJobType = errors.New("unknown job type")

// ErrStopped is returned when submitting to a runner which is shutting down
var ErrStopped = errors.New("job runner stopped")

// JobStartRequest provides informtion required to start a job
type JobStartRequest struct {
	// Type of job to start
	Type JobTypeT

	// Data required to start job
	Data []byte
}

// Submitter accepts jobs
type Submitter interface {
	Submit(ctx context.Context, req JobStartRequest) error
}

// JobRunner manages starting jobs and shutting down gracefully
type JobRunner struct {
	// queue is a channel to which requests to start jobs are sent
	queue chan JobStartRequest

	// jobInstances holds jobs which can be run
	jobInstances map[JobTypeT]Job

	// tickers tracks goroutines started by Every
	tickers sync.WaitGroup

	// Ctx stops the runner when canceled
	Ctx context.Context

	// Logger
	Logger golog.Logger

	// Cfg is the server configuration
	Cfg *config.Config

	// Metrics records job durations
	Metrics *metrics.Metrics

	// Store is the database jobs clean up
	Store store.Store

	// Bucket holds uploaded objects
	Bucket storage.Bucket
}

// Init initializes a JobRunner. The Submit() and Run() methods will not work properly
// unless this method is called.
func (r *JobRunner) Init() {
	r.queue = make(chan JobStartRequest, r.Cfg.JobQueueSize)

	r.jobInstances = map[JobTypeT]Job{}
	r.jobInstances[JobTypeCleanupSessions] = NewSessionCleanupJob(
		r.Logger.GetChild(string(JobTypeCleanupSessions)), r.Store)
	r.jobInstances[JobTypeCleanupOrphans] = NewOrphanCleanupJob(
		r.Logger.GetChild(string(JobTypeCleanupOrphans)), r.Store, r.Bucket,
		r.Cfg.OrphanGracePeriod)
	r.jobInstances[JobTypeRemoveObjects] = RemoveObjectsJob{
		Logger: r.Logger.GetChild(string(JobTypeRemoveObjects)),
		Bucket: r.Bucket,
	}
}

// Submit queues a job. Blocks while the queue is full, until ctx or the
// runner's context is done.
func (r *JobRunner) Submit(ctx context.Context, req JobStartRequest) error {
	if _, ok := r.jobInstances[req.Type]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownJobType, req.Type)
	}

	if r.Ctx.Err() != nil {
		return ErrStopped
	}

	select {
	case <-r.Ctx.Done():
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	case r.queue <- req:
		r.Metrics.JobsSubmittedTotal.WithLabelValues(string(req.Type)).Inc()
		return nil
	}
}

// Run reads requests off the queue and runs them one at a time.
// If the JobRunner.Ctx is canceled JobRunner will stop accepting jobs and
// return once the running job and any Every tickers are done.
// Should be run in a goroutine b/c this method blocks to run jobs.
func (r *JobRunner) Run() {
	defer r.tickers.Wait()

	for {
		select {
		case <-r.Ctx.Done():
			return

		case req := <-r.queue:
			r.run(req)
		}
	}
}

// run executes a single job and records its duration
func (r *JobRunner) run(req JobStartRequest) {
	job := r.jobInstances[req.Type]

	timer := r.Metrics.StartTimer()
	err := job.Do(r.Ctx, req.Data)

	successful := err == nil
	timer.Finish(r.Metrics.JobsRunDurationsMilliseconds.WithLabelValues(
		string(req.Type), strconv.Itoa(boolToInt(successful))))

	if err != nil {
		r.Logger.Errorf("failed to run %s job: %s", req.Type, err.Error())
	}
}

// Every submits a job of type jobType each interval until the runner's
// context is done. Intervals of 0 or less disable the job.
func (r *JobRunner) Every(interval time.Duration, jobType JobTypeT) {
	if interval <= 0 {
		return
	}

	r.tickers.Add(1)
	go func() {
		defer r.tickers.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Ctx.Done():
				return
			case <-ticker.C:
				err := r.Submit(r.Ctx, JobStartRequest{Type: jobType})
				if err != nil && !errors.Is(err, ErrStopped) && !errors.Is(err, context.Canceled) {
					r.Logger.Errorf("failed to submit periodic %s job: %s", jobType, err.Error())
				}
			}
		}
	}()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}

	return 0
}
