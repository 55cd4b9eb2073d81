// Package insights is the HTTP client for the upstream keyword-insights
// backend. It does no response reshaping itself; dashboard payloads come
// back as decoded JSON for the normalizer.
package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sanjaynair/rankscope/pkg/models"
)

// Sentinel errors for insights backend failures.
var (
	ErrBackendUnreachable = errors.New("insights backend unreachable")
	ErrBackendError       = errors.New("insights backend error")
	ErrBackendTimeout     = errors.New("insights request timeout")
	ErrUploadRejected     = errors.New("csv upload rejected")
)

// KeywordQuery defines parameters for a keywords dashboard request.
type KeywordQuery struct {
	Page     int
	PageSize int
	Search   string
	SortBy   string
	SortDir  string
}

// Client is the interface for talking to the insights backend.
type Client interface {
	JobStatus(ctx context.Context, projectID, jobID string) (*models.ProcessingJob, error)
	CancelJob(ctx context.Context, projectID, jobID string) error
	UploadCSV(ctx context.Context, projectID, filename string, file io.Reader) (string, error)
	Keywords(ctx context.Context, projectID string, q KeywordQuery) (any, error)
	Clusters(ctx context.Context, projectID string, page, pageSize int) (any, error)
	Cluster(ctx context.Context, projectID, clusterID string) (any, error)
	StrategicAdvice(ctx context.Context, projectID string) (any, error)
	Ready(ctx context.Context) error
}

// HTTPClient implements Client against the backend's REST API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewHTTPClient creates a new insights HTTP client.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) JobStatus(ctx context.Context, projectID, jobID string) (*models.ProcessingJob, error) {
	u := fmt.Sprintf("%s/api/v1/projects/%s/jobs/%s",
		c.baseURL, url.PathEscape(projectID), url.PathEscape(jobID))

	var job models.ProcessingJob
	if err := c.getJSON(ctx, u, &job); err != nil {
		return nil, err
	}
	if job.JobID == "" {
		job.JobID = jobID
	}
	if job.ProjectID == "" {
		job.ProjectID = projectID
	}
	return &job, nil
}

func (c *HTTPClient) CancelJob(ctx context.Context, projectID, jobID string) error {
	u := fmt.Sprintf("%s/api/v1/projects/%s/jobs/%s",
		c.baseURL, url.PathEscape(projectID), url.PathEscape(jobID))

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted && resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: status %d", ErrBackendError, resp.StatusCode)
	}
	return nil
}

// UploadCSV streams a CSV export to the backend and returns the id of the
// processing job the backend created for it. The backend acknowledges
// accepted uploads with HTTP 202.
func (c *HTTPClient) UploadCSV(ctx context.Context, projectID, filename string, file io.Reader) (string, error) {
	pr, pw := io.Pipe()
	mp := multipart.NewWriter(pw)
	go func() {
		part, err := mp.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, file); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mp.Close())
	}()

	u := fmt.Sprintf("%s/api/v1/projects/%s/keywords/upload", c.baseURL, url.PathEscape(projectID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, pr)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", mp.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("%w: status %d", ErrUploadRejected, resp.StatusCode)
	}

	var body struct {
		JobID string `json:"job_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decoding upload response: %w", err)
	}
	if body.JobID == "" {
		return "", fmt.Errorf("%w: missing job_id", ErrBackendError)
	}
	return body.JobID, nil
}

func (c *HTTPClient) Keywords(ctx context.Context, projectID string, q KeywordQuery) (any, error) {
	params := url.Values{}
	if q.Page > 0 {
		params.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		params.Set("page_size", strconv.Itoa(q.PageSize))
	}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.SortBy != "" {
		params.Set("sort_by", q.SortBy)
	}
	if q.SortDir != "" {
		params.Set("sort_dir", q.SortDir)
	}

	u := fmt.Sprintf("%s/api/v1/projects/%s/keywords", c.baseURL, url.PathEscape(projectID))
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return c.getAny(ctx, u)
}

func (c *HTTPClient) Clusters(ctx context.Context, projectID string, page, pageSize int) (any, error) {
	params := url.Values{}
	if page > 0 {
		params.Set("page", strconv.Itoa(page))
	}
	if pageSize > 0 {
		params.Set("page_size", strconv.Itoa(pageSize))
	}

	u := fmt.Sprintf("%s/api/v1/projects/%s/clusters", c.baseURL, url.PathEscape(projectID))
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return c.getAny(ctx, u)
}

func (c *HTTPClient) Cluster(ctx context.Context, projectID, clusterID string) (any, error) {
	u := fmt.Sprintf("%s/api/v1/projects/%s/clusters/%s",
		c.baseURL, url.PathEscape(projectID), url.PathEscape(clusterID))
	return c.getAny(ctx, u)
}

func (c *HTTPClient) StrategicAdvice(ctx context.Context, projectID string) (any, error) {
	u := fmt.Sprintf("%s/api/v1/projects/%s/strategic-advice", c.baseURL, url.PathEscape(projectID))
	return c.getAny(ctx, u)
}

func (c *HTTPClient) Ready(ctx context.Context) error {
	u := fmt.Sprintf("%s/health", c.baseURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: backend not ready (status %d)", ErrBackendUnreachable, resp.StatusCode)
	}
	return nil
}

// getAny fetches u and decodes the body as arbitrary JSON.
func (c *HTTPClient) getAny(ctx context.Context, u string) (any, error) {
	var v any
	if err := c.getJSON(ctx, u, &v); err != nil {
		return nil, err
	}
	return v, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrBackendError, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding insights response: %w", err)
	}
	return nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrBackendTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrBackendTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
	}

	return fmt.Errorf("%w: %v", ErrBackendUnreachable, err)
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
