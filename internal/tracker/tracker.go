// Package tracker owns the lifecycle of the single asynchronous CSV
// processing job RankScope follows on the insights backend. It persists
// the job identity so tracking survives a restart, polls the status
// endpoint on a fixed interval, and fires exactly one notifier hook when
// the job reaches a terminal state or the poll budget runs out.
package tracker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sanjaynair/rankscope/pkg/models"
)

const (
	// DefaultInterval is the fixed polling cadence.
	DefaultInterval = 500 * time.Millisecond
	// DefaultMaxPolls is the client-side give-up budget. It is a tick
	// count, not a wall-clock deadline: at the default interval it works
	// out to roughly two minutes, but changing the interval changes the
	// effective timeout with it.
	DefaultMaxPolls = 240
)

// StatusClient fetches the current state of a processing job.
type StatusClient interface {
	JobStatus(ctx context.Context, projectID, jobID string) (*models.ProcessingJob, error)
}

// RecordStore persists the durable tracking record. It is a single
// key-value cell: each save fully overwrites the previous value, and a
// load that cannot be parsed reads as absent.
type RecordStore interface {
	SaveTrackingRecord(ctx context.Context, rec models.TrackingRecord) error
	LoadTrackingRecord(ctx context.Context) (models.TrackingRecord, bool, error)
	DeleteTrackingRecord(ctx context.Context) error
}

// Outcome describes how a tracked job ended.
type Outcome struct {
	ProjectID string
	JobID     string
	Status    string
	Message   string
	Polls     int
}

// Notifier receives the one-time side effect for each terminal outcome.
type Notifier interface {
	JobCompleted(ctx context.Context, o Outcome)
	JobFailed(ctx context.Context, o Outcome)
	JobCancelled(ctx context.Context, o Outcome)
	JobTimedOut(ctx context.Context, o Outcome)
}

// Tracker tracks at most one processing job at a time. All methods are
// safe for concurrent use; the polling loop runs in one owned goroutine
// whose handle is the stop channel held under the mutex, so there is never
// more than one live loop.
type Tracker struct {
	client   StatusClient
	records  RecordStore
	notifier Notifier
	interval time.Duration
	maxPolls int

	mu        sync.Mutex
	activeJob *models.ProcessingJob
	projectID string
	jobID     string
	polls     int
	stop      chan struct{}
}

// New creates a Tracker. Zero interval and maxPolls fall back to the
// defaults.
func New(client StatusClient, records RecordStore, notifier Notifier, interval time.Duration, maxPolls int) *Tracker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if maxPolls <= 0 {
		maxPolls = DefaultMaxPolls
	}
	return &Tracker{
		client:   client,
		records:  records,
		notifier: notifier,
		interval: interval,
		maxPolls: maxPolls,
	}
}

// StartJob begins tracking (projectID, jobID): it persists the durable
// record, stops any previous polling loop, resets the poll counter, and
// starts polling on the fixed interval. Idempotent in the sense that
// calling it again simply replaces what is being tracked.
func (t *Tracker) StartJob(ctx context.Context, projectID, jobID string) {
	t.mu.Lock()
	t.stopLoopLocked()
	t.projectID = projectID
	t.jobID = jobID
	t.activeJob = nil
	t.polls = 0
	stop := make(chan struct{})
	t.stop = stop
	t.mu.Unlock()

	if err := t.records.SaveTrackingRecord(ctx, models.TrackingRecord{ProjectID: projectID, JobID: jobID}); err != nil {
		slog.Warn("save tracking record failed", "project_id", projectID, "job_id", jobID, "error", err)
	}

	go t.loop(stop, projectID, jobID)
	slog.Info("job tracking started", "project_id", projectID, "job_id", jobID)
}

// ClearJob cancels the polling loop, clears in-memory state, and deletes
// the durable record. Safe to call when nothing is active; double-clear is
// a no-op.
func (t *Tracker) ClearJob(ctx context.Context) {
	t.mu.Lock()
	t.stopLoopLocked()
	t.activeJob = nil
	t.projectID = ""
	t.jobID = ""
	t.polls = 0
	t.mu.Unlock()

	if err := t.records.DeleteTrackingRecord(ctx); err != nil {
		slog.Warn("delete tracking record failed", "error", err)
	}
}

// Stop cancels the polling loop without touching the durable record, so
// tracking resumes on the next start. Used on process shutdown.
func (t *Tracker) Stop() {
	t.mu.Lock()
	t.stopLoopLocked()
	t.mu.Unlock()
}

// Resume restores tracking from the durable record, if one parses. Records
// left behind by an older build read as absent and are never fatal.
func (t *Tracker) Resume(ctx context.Context) {
	rec, ok, err := t.records.LoadTrackingRecord(ctx)
	if err != nil {
		slog.Warn("load tracking record failed", "error", err)
		return
	}
	if !ok || rec.ProjectID == "" || rec.JobID == "" {
		return
	}
	t.StartJob(ctx, rec.ProjectID, rec.JobID)
}

// CheckJobStatus performs one fetch-and-update outside the timer cadence.
// No-op when no job is being tracked. It does not advance the poll counter.
func (t *Tracker) CheckJobStatus(ctx context.Context) {
	t.mu.Lock()
	stop := t.stop
	projectID, jobID := t.projectID, t.jobID
	t.mu.Unlock()
	if stop == nil {
		return
	}
	t.poll(ctx, stop, projectID, jobID, false)
}

// Snapshot returns the most recently received job, the tracked identifiers,
// and the poll count.
func (t *Tracker) Snapshot() (job *models.ProcessingJob, projectID, jobID string, polls int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.activeJob != nil {
		j := *t.activeJob
		job = &j
	}
	return job, t.projectID, t.jobID, t.polls
}

// IsProcessing reports whether the tracked job is pending or in progress.
func (t *Tracker) IsProcessing() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.activeJob != nil && t.activeJob.Processing()
}

// stopLoopLocked cancels the current loop, if any. Callers hold t.mu.
// Closing twice cannot happen because the handle is nilled here.
func (t *Tracker) stopLoopLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
}

// loop drives the fixed-interval polling. Fetches run synchronously inside
// the loop goroutine, so responses are applied strictly in the order they
// arrive and a slow fetch simply drops ticks instead of piling up
// overlapping requests.
func (t *Tracker) loop(stop chan struct{}, projectID, jobID string) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if t.tick(stop, projectID, jobID) {
				return
			}
		}
	}
}

// tick is one timed poll: advance the counter, fetch, apply, and enforce
// the poll budget. Returns true when the loop should exit.
func (t *Tracker) tick(stop chan struct{}, projectID, jobID string) bool {
	t.mu.Lock()
	if t.stop != stop {
		// Superseded by a newer StartJob or a clear.
		t.mu.Unlock()
		return true
	}
	t.polls++
	t.mu.Unlock()

	return t.poll(context.Background(), stop, projectID, jobID, true)
}

// poll fetches the job status once and handles the outcome. Terminal
// statuses stop the loop, delete the durable record, clear state, and fire
// the matching notifier hook before anything else can run; each branch
// returns immediately. Fetch failures are logged and swallowed so the next
// tick retries; they carry no separate failure budget. When enforceBudget
// is set, reaching the poll cap tears tracking down as a client-side
// timeout even though the backend job may still be running.
func (t *Tracker) poll(ctx context.Context, stop chan struct{}, projectID, jobID string, enforceBudget bool) bool {
	job, err := t.client.JobStatus(ctx, projectID, jobID)
	if err != nil {
		slog.Warn("job status poll failed", "project_id", projectID, "job_id", jobID, "error", err)
	} else {
		t.mu.Lock()
		if t.stop != stop {
			t.mu.Unlock()
			return true
		}
		// Last received response wins, whatever the status, so progress
		// fields stay live.
		t.activeJob = job
		polls := t.polls
		t.mu.Unlock()

		switch job.Status {
		case models.JobStatusCompleted:
			if t.finish(stop) {
				t.notifier.JobCompleted(ctx, Outcome{
					ProjectID: projectID, JobID: jobID,
					Status: models.JobStatusCompleted, Polls: polls,
				})
			}
			return true
		case models.JobStatusFailed:
			msg := "keyword processing failed"
			if job.Error != nil && *job.Error != "" {
				msg = *job.Error
			}
			if t.finish(stop) {
				t.notifier.JobFailed(ctx, Outcome{
					ProjectID: projectID, JobID: jobID,
					Status: models.JobStatusFailed, Message: msg, Polls: polls,
				})
			}
			return true
		case models.JobStatusCancelled:
			if t.finish(stop) {
				t.notifier.JobCancelled(ctx, Outcome{
					ProjectID: projectID, JobID: jobID,
					Status: models.JobStatusCancelled, Message: "processing was cancelled", Polls: polls,
				})
			}
			return true
		}
	}

	if !enforceBudget {
		return false
	}

	t.mu.Lock()
	polls := t.polls
	timedOut := t.stop == stop && polls >= t.maxPolls
	t.mu.Unlock()
	if timedOut {
		if t.finish(stop) {
			t.notifier.JobTimedOut(ctx, Outcome{
				ProjectID: projectID, JobID: jobID,
				Status: models.JobEventTimeout,
				Message: "processing is taking longer than expected, please refresh",
				Polls:   polls,
			})
		}
		return true
	}
	return false
}

// finish tears tracking down for a terminal outcome: the loop handle is
// cleared first, then in-memory state, then the durable record. Reports
// whether this call actually owned the teardown, so the notifier fires
// exactly once.
func (t *Tracker) finish(stop chan struct{}) bool {
	t.mu.Lock()
	if t.stop != stop {
		t.mu.Unlock()
		return false
	}
	close(stop)
	t.stop = nil
	t.activeJob = nil
	t.projectID = ""
	t.jobID = ""
	t.mu.Unlock()

	if err := t.records.DeleteTrackingRecord(context.Background()); err != nil {
		slog.Warn("delete tracking record failed", "error", err)
	}
	return true
}
