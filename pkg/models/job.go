// Package models contains shared data models used across the RankScope codebase.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Job status values as reported by the insights backend. These are an
// explicit contract with the backend: lowercase, case-sensitive.
const (
	JobStatusPending    = "pending"
	JobStatusInProgress = "in_progress"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
	JobStatusCancelled  = "cancelled"
)

// JobProgress holds live progress fields, present while a job is in_progress.
type JobProgress struct {
	PercentageComplete int    `json:"percentage_complete"`
	ItemsProcessed     int    `json:"items_processed"`
	TotalItems         int    `json:"total_items"`
	CurrentStep        string `json:"current_step"`
	Message            string `json:"message"`
}

// ProcessingJob is one asynchronous CSV ingestion task on the insights
// backend. The backend creates it when an upload is accepted (HTTP 202);
// RankScope only ever re-fetches it, never persists it.
type ProcessingJob struct {
	JobID      string       `json:"job_id"`
	ProjectID  string       `json:"project_id"`
	Status     string       `json:"status"`
	Progress   *JobProgress `json:"progress,omitempty"`
	Error      *string      `json:"error,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	StartedAt  *time.Time   `json:"started_at,omitempty"`
	RetryCount int          `json:"retry_count"`
	MaxRetries int          `json:"max_retries"`
}

// Terminal reports whether no further status transition will occur.
// Unknown status strings are treated as non-terminal so that new backend
// statuses keep the polling loop alive rather than wedging it.
func (j *ProcessingJob) Terminal() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}

// Processing reports whether the job is still being worked on.
func (j *ProcessingJob) Processing() bool {
	return j.Status == JobStatusPending || j.Status == JobStatusInProgress
}

// EffectiveStartedAt returns StartedAt, falling back to CreatedAt.
func (j *ProcessingJob) EffectiveStartedAt() time.Time {
	if j.StartedAt != nil {
		return *j.StartedAt
	}
	return j.CreatedAt
}

// CanRetry reports whether the backend would accept another retry.
func (j *ProcessingJob) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// TrackingRecord is the durable record that lets job tracking survive a
// process restart. It is the only durable tracker state; the full job is
// always re-fetched from the backend.
type TrackingRecord struct {
	ProjectID string `json:"project_id"`
	JobID     string `json:"job_id"`
}

// JobEvent is one row of job history: the terminal outcome of a tracked job.
type JobEvent struct {
	ID           uuid.UUID `db:"id"            json:"id"`
	ProjectID    string    `db:"project_id"    json:"project_id"`
	JobID        string    `db:"job_id"        json:"job_id"`
	Status       string    `db:"status"        json:"status"`
	ErrorMessage *string   `db:"error_message" json:"error_message,omitempty"`
	Polls        int       `db:"polls"         json:"polls"`
	CreatedAt    time.Time `db:"created_at"    json:"created_at"`
}

// JobEventTimeout is recorded when the tracker gives up client-side; the
// backend job may still be running.
const JobEventTimeout = "timeout"
