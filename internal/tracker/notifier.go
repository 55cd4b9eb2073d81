package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sanjaynair/rankscope/pkg/models"
)

// EventRecorder persists terminal job outcomes to job history.
type EventRecorder interface {
	CreateJobEvent(ctx context.Context, ev *models.JobEvent) error
}

// HistoryNotifier is the default Notifier: it logs each outcome and writes
// a job-history row. The dashboard reads the history to surface its
// completion redirect and failure/cancel/timeout alerts.
type HistoryNotifier struct {
	events EventRecorder
}

// NewHistoryNotifier creates a HistoryNotifier.
func NewHistoryNotifier(events EventRecorder) *HistoryNotifier {
	return &HistoryNotifier{events: events}
}

func (n *HistoryNotifier) JobCompleted(ctx context.Context, o Outcome) {
	slog.Info("job completed", "project_id", o.ProjectID, "job_id", o.JobID, "polls", o.Polls)
	n.record(ctx, o)
}

func (n *HistoryNotifier) JobFailed(ctx context.Context, o Outcome) {
	slog.Error("job failed", "project_id", o.ProjectID, "job_id", o.JobID, "error", o.Message)
	n.record(ctx, o)
}

func (n *HistoryNotifier) JobCancelled(ctx context.Context, o Outcome) {
	slog.Info("job cancelled", "project_id", o.ProjectID, "job_id", o.JobID)
	n.record(ctx, o)
}

func (n *HistoryNotifier) JobTimedOut(ctx context.Context, o Outcome) {
	slog.Warn("job polling timed out", "project_id", o.ProjectID, "job_id", o.JobID, "polls", o.Polls)
	n.record(ctx, o)
}

func (n *HistoryNotifier) record(ctx context.Context, o Outcome) {
	ev := &models.JobEvent{
		ID:        uuid.New(),
		ProjectID: o.ProjectID,
		JobID:     o.JobID,
		Status:    o.Status,
		Polls:     o.Polls,
		CreatedAt: time.Now().UTC(),
	}
	if o.Message != "" {
		msg := o.Message
		ev.ErrorMessage = &msg
	}
	if err := n.events.CreateJobEvent(ctx, ev); err != nil {
		slog.Warn("record job event failed", "job_id", o.JobID, "error", err)
	}
}

// Compile-time check that HistoryNotifier implements Notifier.
var _ Notifier = (*HistoryNotifier)(nil)
