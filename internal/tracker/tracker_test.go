package tracker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/sanjaynair/rankscope/pkg/models"
)

const testInterval = 2 * time.Millisecond

// fakeStatusClient returns scripted statuses in order, repeating the last
// one once the script runs out.
type fakeStatusClient struct {
	mu       sync.Mutex
	statuses []string
	err      error
	calls    int
	lastJob  string
}

func (c *fakeStatusClient) JobStatus(_ context.Context, projectID, jobID string) (*models.ProcessingJob, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.lastJob = jobID
	if c.err != nil {
		return nil, c.err
	}
	i := c.calls - 1
	if i >= len(c.statuses) {
		i = len(c.statuses) - 1
	}
	return &models.ProcessingJob{
		JobID:     jobID,
		ProjectID: projectID,
		Status:    c.statuses[i],
	}, nil
}

func (c *fakeStatusClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type fakeRecordStore struct {
	mu      sync.Mutex
	rec     models.TrackingRecord
	present bool
	saveErr error
	deletes int
}

func (s *fakeRecordStore) SaveTrackingRecord(_ context.Context, rec models.TrackingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.rec = rec
	s.present = true
	return nil
}

func (s *fakeRecordStore) LoadTrackingRecord(_ context.Context) (models.TrackingRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec, s.present, nil
}

func (s *fakeRecordStore) DeleteTrackingRecord(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.present = false
	s.deletes++
	return nil
}

func (s *fakeRecordStore) hasRecord() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.present
}

// fakeNotifier sends every outcome on a channel so tests can wait for the
// terminal hook without sleeping.
type fakeNotifier struct {
	outcomes chan Outcome
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{outcomes: make(chan Outcome, 16)}
}

func (n *fakeNotifier) JobCompleted(_ context.Context, o Outcome) { n.outcomes <- o }
func (n *fakeNotifier) JobFailed(_ context.Context, o Outcome)    { n.outcomes <- o }
func (n *fakeNotifier) JobCancelled(_ context.Context, o Outcome) { n.outcomes <- o }
func (n *fakeNotifier) JobTimedOut(_ context.Context, o Outcome)  { n.outcomes <- o }

func (n *fakeNotifier) wait(t *testing.T) Outcome {
	t.Helper()
	select {
	case o := <-n.outcomes:
		return o
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a terminal outcome")
		return Outcome{}
	}
}

func (n *fakeNotifier) expectNone(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case o := <-n.outcomes:
		t.Fatalf("unexpected outcome %+v", o)
	case <-time.After(d):
	}
}

func TestStartJobPersistsRecordAndPolls(t *testing.T) {
	client := &fakeStatusClient{statuses: []string{models.JobStatusInProgress}}
	records := &fakeRecordStore{}
	notifier := newFakeNotifier()
	tr := New(client, records, notifier, testInterval, 10_000)
	defer tr.Stop()

	tr.StartJob(context.Background(), "p1", "j1")

	if !records.hasRecord() {
		t.Fatal("expected a tracking record after StartJob")
	}
	if rec, _, _ := records.LoadTrackingRecord(context.Background()); rec.ProjectID != "p1" || rec.JobID != "j1" {
		t.Fatalf("unexpected record %+v", rec)
	}

	waitFor(t, func() bool { return client.callCount() >= 2 })

	_, projectID, jobID, polls := tr.Snapshot()
	if projectID != "p1" || jobID != "j1" {
		t.Fatalf("got identifiers (%q, %q)", projectID, jobID)
	}
	if polls < 2 {
		t.Fatalf("polls = %d, want >= 2", polls)
	}
	if !tr.IsProcessing() {
		t.Fatal("expected IsProcessing while the job is in progress")
	}
}

func TestCompletedJobFiresNotifierOnceAndClearsState(t *testing.T) {
	client := &fakeStatusClient{statuses: []string{
		models.JobStatusPending,
		models.JobStatusInProgress,
		models.JobStatusCompleted,
	}}
	records := &fakeRecordStore{}
	notifier := newFakeNotifier()
	tr := New(client, records, notifier, testInterval, 10_000)

	tr.StartJob(context.Background(), "p1", "j1")

	o := notifier.wait(t)
	if o.Status != models.JobStatusCompleted {
		t.Fatalf("status = %q, want %q", o.Status, models.JobStatusCompleted)
	}
	if o.ProjectID != "p1" || o.JobID != "j1" {
		t.Fatalf("unexpected outcome identifiers %+v", o)
	}

	notifier.expectNone(t, 20*testInterval)

	job, projectID, jobID, _ := tr.Snapshot()
	if job != nil || projectID != "" || jobID != "" {
		t.Fatalf("expected cleared state, got job=%v (%q, %q)", job, projectID, jobID)
	}
	if records.hasRecord() {
		t.Fatal("expected the tracking record to be deleted on completion")
	}
}

func TestFailedJobCarriesBackendError(t *testing.T) {
	msg := "csv parse error on row 12"
	records := &fakeRecordStore{}
	notifier := newFakeNotifier()
	tr := New(&errJobClient{status: models.JobStatusFailed, errMsg: &msg}, records, notifier, testInterval, 10_000)

	tr.StartJob(context.Background(), "p1", "j1")

	o := notifier.wait(t)
	if o.Status != models.JobStatusFailed {
		t.Fatalf("status = %q, want %q", o.Status, models.JobStatusFailed)
	}
	if o.Message != msg {
		t.Fatalf("message = %q, want %q", o.Message, msg)
	}
}

func TestFailedJobDefaultMessage(t *testing.T) {
	records := &fakeRecordStore{}
	notifier := newFakeNotifier()
	tr := New(&errJobClient{status: models.JobStatusFailed}, records, notifier, testInterval, 10_000)

	tr.StartJob(context.Background(), "p1", "j1")

	o := notifier.wait(t)
	if o.Message != "keyword processing failed" {
		t.Fatalf("message = %q", o.Message)
	}
}

func TestCancelledJobFiresCancelledHook(t *testing.T) {
	records := &fakeRecordStore{}
	notifier := newFakeNotifier()
	tr := New(&errJobClient{status: models.JobStatusCancelled}, records, notifier, testInterval, 10_000)

	tr.StartJob(context.Background(), "p1", "j1")

	o := notifier.wait(t)
	if o.Status != models.JobStatusCancelled {
		t.Fatalf("status = %q, want %q", o.Status, models.JobStatusCancelled)
	}
	if o.Message != "processing was cancelled" {
		t.Fatalf("message = %q", o.Message)
	}
}

func TestUnknownStatusIsNotTerminal(t *testing.T) {
	client := &fakeStatusClient{statuses: []string{"reticulating"}}
	records := &fakeRecordStore{}
	notifier := newFakeNotifier()
	tr := New(client, records, notifier, testInterval, 10_000)
	defer tr.Stop()

	tr.StartJob(context.Background(), "p1", "j1")

	waitFor(t, func() bool { return client.callCount() >= 3 })
	notifier.expectNone(t, 5*testInterval)

	job, _, _, _ := tr.Snapshot()
	if job == nil || job.Status != "reticulating" {
		t.Fatalf("expected the unknown status to be retained, got %+v", job)
	}
	if !records.hasRecord() {
		t.Fatal("unknown status must not tear tracking down")
	}
}

func TestPollBudgetExpiresAsTimeout(t *testing.T) {
	const maxPolls = 5
	client := &fakeStatusClient{statuses: []string{models.JobStatusInProgress}}
	records := &fakeRecordStore{}
	notifier := newFakeNotifier()
	tr := New(client, records, notifier, testInterval, maxPolls)

	tr.StartJob(context.Background(), "p1", "j1")

	o := notifier.wait(t)
	if o.Status != models.JobEventTimeout {
		t.Fatalf("status = %q, want %q", o.Status, models.JobEventTimeout)
	}
	if o.Polls != maxPolls {
		t.Fatalf("polls = %d, want exactly %d", o.Polls, maxPolls)
	}
	if o.Message != "processing is taking longer than expected, please refresh" {
		t.Fatalf("message = %q", o.Message)
	}
	if records.hasRecord() {
		t.Fatal("expected the tracking record to be deleted on timeout")
	}
}

func TestFetchErrorsAreSwallowedAndStillCountTowardBudget(t *testing.T) {
	const maxPolls = 4
	client := &fakeStatusClient{err: errors.New("connection refused")}
	records := &fakeRecordStore{}
	notifier := newFakeNotifier()
	tr := New(client, records, notifier, testInterval, maxPolls)

	tr.StartJob(context.Background(), "p1", "j1")

	o := notifier.wait(t)
	if o.Status != models.JobEventTimeout {
		t.Fatalf("status = %q, want %q", o.Status, models.JobEventTimeout)
	}
	if o.Polls != maxPolls {
		t.Fatalf("polls = %d, want %d", o.Polls, maxPolls)
	}
}

func TestStartJobReplacesPreviousLoop(t *testing.T) {
	client := &fakeStatusClient{statuses: []string{models.JobStatusInProgress}}
	records := &fakeRecordStore{}
	notifier := newFakeNotifier()
	tr := New(client, records, notifier, testInterval, 10_000)
	defer tr.Stop()

	tr.StartJob(context.Background(), "p1", "j1")
	waitFor(t, func() bool { return client.callCount() >= 1 })

	tr.StartJob(context.Background(), "p1", "j2")
	waitFor(t, func() bool {
		client.mu.Lock()
		defer client.mu.Unlock()
		return client.lastJob == "j2"
	})

	// Once the new loop is live, every further fetch must target j2.
	client.mu.Lock()
	base := client.calls
	client.mu.Unlock()
	waitFor(t, func() bool { return client.callCount() >= base+3 })

	client.mu.Lock()
	defer client.mu.Unlock()
	if client.lastJob != "j2" {
		t.Fatalf("an old loop is still polling: lastJob = %q", client.lastJob)
	}

	_, _, jobID, polls := tr.Snapshot()
	if jobID != "j2" {
		t.Fatalf("tracked jobID = %q, want j2", jobID)
	}
	if polls < 3 {
		t.Fatalf("polls = %d, want the counter reset and advancing for j2", polls)
	}
}

func TestClearJobIsIdempotent(t *testing.T) {
	client := &fakeStatusClient{statuses: []string{models.JobStatusInProgress}}
	records := &fakeRecordStore{}
	notifier := newFakeNotifier()
	tr := New(client, records, notifier, testInterval, 10_000)

	tr.StartJob(context.Background(), "p1", "j1")
	tr.ClearJob(context.Background())
	tr.ClearJob(context.Background())
	tr.ClearJob(context.Background())

	if records.hasRecord() {
		t.Fatal("expected the tracking record to be deleted")
	}
	if tr.IsProcessing() {
		t.Fatal("expected no active processing after clear")
	}
	notifier.expectNone(t, 5*testInterval)
}

func TestClearJobWithoutActiveJob(t *testing.T) {
	tr := New(&fakeStatusClient{}, &fakeRecordStore{}, newFakeNotifier(), testInterval, 10_000)
	tr.ClearJob(context.Background())
	tr.ClearJob(context.Background())
}

func TestStopKeepsRecordForResume(t *testing.T) {
	client := &fakeStatusClient{statuses: []string{models.JobStatusInProgress}}
	records := &fakeRecordStore{}
	notifier := newFakeNotifier()
	tr := New(client, records, notifier, testInterval, 10_000)

	tr.StartJob(context.Background(), "p1", "j1")
	tr.Stop()
	tr.Stop()

	if !records.hasRecord() {
		t.Fatal("Stop must not delete the tracking record")
	}

	base := client.callCount()
	time.Sleep(10 * testInterval)
	if client.callCount() != base {
		t.Fatal("polling continued after Stop")
	}
}

func TestResumeRestoresTracking(t *testing.T) {
	client := &fakeStatusClient{statuses: []string{models.JobStatusInProgress}}
	records := &fakeRecordStore{rec: models.TrackingRecord{ProjectID: "p9", JobID: "j9"}, present: true}
	notifier := newFakeNotifier()
	tr := New(client, records, notifier, testInterval, 10_000)
	defer tr.Stop()

	tr.Resume(context.Background())

	waitFor(t, func() bool { return client.callCount() >= 1 })
	_, projectID, jobID, _ := tr.Snapshot()
	if projectID != "p9" || jobID != "j9" {
		t.Fatalf("resumed (%q, %q), want (p9, j9)", projectID, jobID)
	}
}

func TestResumeWithNoRecordIsNoop(t *testing.T) {
	client := &fakeStatusClient{statuses: []string{models.JobStatusInProgress}}
	tr := New(client, &fakeRecordStore{}, newFakeNotifier(), testInterval, 10_000)

	tr.Resume(context.Background())

	time.Sleep(5 * testInterval)
	if client.callCount() != 0 {
		t.Fatal("resume without a record must not start polling")
	}
	if _, projectID, jobID, _ := tr.Snapshot(); projectID != "" || jobID != "" {
		t.Fatal("expected empty identifiers")
	}
}

func TestCheckJobStatusDoesNotAdvanceCounter(t *testing.T) {
	// Interval long enough that no timed tick fires during the test.
	client := &fakeStatusClient{statuses: []string{models.JobStatusInProgress}}
	records := &fakeRecordStore{}
	notifier := newFakeNotifier()
	tr := New(client, records, notifier, time.Hour, 10_000)
	defer tr.Stop()

	tr.StartJob(context.Background(), "p1", "j1")

	tr.CheckJobStatus(context.Background())
	tr.CheckJobStatus(context.Background())

	if got := client.callCount(); got != 2 {
		t.Fatalf("fetches = %d, want 2", got)
	}
	job, _, _, polls := tr.Snapshot()
	if polls != 0 {
		t.Fatalf("polls = %d, on-demand checks must not advance the counter", polls)
	}
	if job == nil || job.Status != models.JobStatusInProgress {
		t.Fatalf("expected the fetched job to be applied, got %+v", job)
	}
}

func TestCheckJobStatusAppliesTerminalState(t *testing.T) {
	records := &fakeRecordStore{}
	notifier := newFakeNotifier()
	tr := New(&errJobClient{status: models.JobStatusCompleted}, records, notifier, time.Hour, 10_000)

	tr.StartJob(context.Background(), "p1", "j1")
	tr.CheckJobStatus(context.Background())

	o := notifier.wait(t)
	if o.Status != models.JobStatusCompleted {
		t.Fatalf("status = %q", o.Status)
	}
	if records.hasRecord() {
		t.Fatal("expected the record to be deleted")
	}

	// A second check after teardown is a no-op.
	tr.CheckJobStatus(context.Background())
	notifier.expectNone(t, 20*time.Millisecond)
}

func TestCheckJobStatusWithoutActiveJob(t *testing.T) {
	client := &fakeStatusClient{statuses: []string{models.JobStatusInProgress}}
	tr := New(client, &fakeRecordStore{}, newFakeNotifier(), testInterval, 10_000)

	tr.CheckJobStatus(context.Background())

	if client.callCount() != 0 {
		t.Fatal("check without an active job must not fetch")
	}
}

func TestFullJobLifecycle(t *testing.T) {
	client := &fakeStatusClient{statuses: []string{
		models.JobStatusPending,
		models.JobStatusPending,
		models.JobStatusInProgress,
		models.JobStatusInProgress,
		models.JobStatusCompleted,
	}}
	records := &fakeRecordStore{}
	notifier := newFakeNotifier()
	tr := New(client, records, notifier, testInterval, 240)

	tr.StartJob(context.Background(), "p1", "j1")

	o := notifier.wait(t)
	if o.Status != models.JobStatusCompleted {
		t.Fatalf("status = %q, want %q", o.Status, models.JobStatusCompleted)
	}
	if o.Polls != 5 {
		t.Fatalf("polls = %d, want 5", o.Polls)
	}
	if o.ProjectID != "p1" || o.JobID != "j1" {
		t.Fatalf("unexpected identifiers %+v", o)
	}

	if tr.IsProcessing() {
		t.Fatal("expected no active processing after completion")
	}
	if records.hasRecord() {
		t.Fatal("expected the tracking record to be deleted")
	}
	notifier.expectNone(t, 10*testInterval)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

// errJobClient always reports one fixed status.
type errJobClient struct {
	status string
	errMsg *string
}

func (c *errJobClient) JobStatus(_ context.Context, projectID, jobID string) (*models.ProcessingJob, error) {
	return &models.ProcessingJob{
		JobID:     jobID,
		ProjectID: projectID,
		Status:    c.status,
		Error:     c.errMsg,
	}, nil
}
