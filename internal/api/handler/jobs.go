package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sanjaynair/rankscope/internal/api/response"
	"github.com/sanjaynair/rankscope/internal/insights"
	"github.com/sanjaynair/rankscope/internal/store"
	"github.com/sanjaynair/rankscope/pkg/models"
)

// maxUploadBytes caps accepted CSV uploads at 25 MiB.
const maxUploadBytes = 25 << 20

// JobTracker is the tracker surface the job handlers depend on.
type JobTracker interface {
	StartJob(ctx context.Context, projectID, jobID string)
	ClearJob(ctx context.Context)
	CheckJobStatus(ctx context.Context)
	Snapshot() (job *models.ProcessingJob, projectID, jobID string, polls int)
	IsProcessing() bool
}

// Uploader forwards a CSV export to the insights backend.
type Uploader interface {
	UploadCSV(ctx context.Context, projectID, filename string, file io.Reader) (string, error)
}

// JobCanceller asks the insights backend to cancel a processing job.
type JobCanceller interface {
	CancelJob(ctx context.Context, projectID, jobID string) error
}

// EventLister reads job history.
type EventLister interface {
	ListJobEvents(ctx context.Context, filter store.JobEventFilter) ([]*models.JobEvent, int, error)
}

// NewUploadHandler returns the handler for
// POST /api/v1/projects/{projectID}/uploads. It forwards the CSV upstream
// and starts tracking the job the backend created for it.
func NewUploadHandler(uploads Uploader, jobs JobTracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "projectID")
		if projectID == "" {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "projectID is required", nil)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		file, header, err := r.FormFile("file")
		if err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "A CSV file is required in the 'file' field", nil)
			return
		}
		defer file.Close()

		if ext := strings.ToLower(filepath.Ext(header.Filename)); ext != ".csv" {
			response.Error(w, http.StatusBadRequest, "INVALID_FILE_TYPE", "Only .csv files are accepted", nil)
			return
		}

		jobID, err := uploads.UploadCSV(r.Context(), projectID, header.Filename, file)
		if err != nil {
			writeUpstreamError(w, err)
			return
		}

		jobs.StartJob(r.Context(), projectID, jobID)

		response.Accepted(w, map[string]any{
			"job_id":     jobID,
			"project_id": projectID,
			"status":     models.JobStatusPending,
		})
	}
}

// NewCurrentJobHandler returns the handler for
// GET /api/v1/projects/{projectID}/jobs/current.
func NewCurrentJobHandler(jobs JobTracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, currentJobResponse(jobs))
	}
}

// NewCheckJobHandler returns the handler for
// POST /api/v1/projects/{projectID}/jobs/current/check. It performs one
// on-demand status fetch outside the timer cadence.
func NewCheckJobHandler(jobs JobTracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobs.CheckJobStatus(r.Context())
		response.JSON(w, currentJobResponse(jobs))
	}
}

// NewCancelJobHandler returns the handler for
// DELETE /api/v1/projects/{projectID}/jobs/current. It asks the backend to
// cancel the job and clears tracking regardless of the backend's answer.
func NewCancelJobHandler(canceller JobCanceller, jobs JobTracker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		_, projectID, jobID, _ := jobs.Snapshot()
		if jobID == "" {
			response.Error(w, http.StatusNotFound, "NO_ACTIVE_JOB", "No job is currently being tracked", nil)
			return
		}

		// Tracking is cleared either way; the backend may already have
		// finished the job.
		err := canceller.CancelJob(r.Context(), projectID, jobID)
		jobs.ClearJob(r.Context())
		if err != nil {
			writeUpstreamError(w, err)
			return
		}

		response.JSON(w, map[string]any{
			"job_id":     jobID,
			"project_id": projectID,
			"status":     models.JobStatusCancelled,
		})
	}
}

// NewJobHistoryHandler returns the handler for GET /api/v1/jobs/history.
func NewJobHistoryHandler(events EventLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		limit, _ := strconv.Atoi(q.Get("limit"))
		if page < 1 {
			page = 1
		}
		if limit < 1 || limit > 100 {
			limit = 20
		}

		list, total, err := events.ListJobEvents(r.Context(), store.JobEventFilter{
			ProjectID: q.Get("project_id"),
			Status:    q.Get("status"),
			Page:      page,
			Limit:     limit,
		})
		if err != nil {
			response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list job history", nil)
			return
		}
		if list == nil {
			list = []*models.JobEvent{}
		}

		response.Collection(w, list, response.NewPaginationMeta(page, limit, total))
	}
}

func currentJobResponse(jobs JobTracker) map[string]any {
	job, projectID, jobID, polls := jobs.Snapshot()
	return map[string]any{
		"active_job":    job,
		"project_id":    orNil(projectID),
		"job_id":        orNil(jobID),
		"polls":         polls,
		"is_processing": jobs.IsProcessing(),
	}
}

func orNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// writeUpstreamError maps insights client sentinel errors to HTTP status codes.
func writeUpstreamError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, insights.ErrUploadRejected):
		response.Error(w, http.StatusBadRequest, "UPLOAD_REJECTED",
			"The insights backend rejected the uploaded file", nil)
	case errors.Is(err, insights.ErrBackendTimeout):
		response.Error(w, http.StatusGatewayTimeout, "UPSTREAM_TIMEOUT",
			"The insights backend took too long to respond", nil)
	case errors.Is(err, insights.ErrBackendUnreachable):
		response.Error(w, http.StatusBadGateway, "UPSTREAM_UNAVAILABLE",
			"The insights backend is not reachable", nil)
	case errors.Is(err, insights.ErrBackendError):
		response.Error(w, http.StatusBadGateway, "UPSTREAM_ERROR",
			"The insights backend returned an error", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}
