package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sanjaynair/rankscope/internal/api/response"
	"github.com/sanjaynair/rankscope/internal/cache"
	"github.com/sanjaynair/rankscope/internal/insights"
	"github.com/sanjaynair/rankscope/internal/normalize"
)

// adviceTTL is how long a normalized strategic-advice response is served
// from cache before being re-fetched.
const adviceTTL = 5 * time.Minute

// InsightsReader is the read surface of the insights backend the dashboard
// handlers depend on.
type InsightsReader interface {
	Keywords(ctx context.Context, projectID string, q insights.KeywordQuery) (any, error)
	Clusters(ctx context.Context, projectID string, page, pageSize int) (any, error)
	Cluster(ctx context.Context, projectID, clusterID string) (any, error)
	StrategicAdvice(ctx context.Context, projectID string) (any, error)
}

// NewKeywordsHandler returns the handler for
// GET /api/v1/projects/{projectID}/keywords.
func NewKeywordsHandler(reader InsightsReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "projectID")
		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		pageSize, _ := strconv.Atoi(q.Get("page_size"))

		raw, err := reader.Keywords(r.Context(), projectID, insights.KeywordQuery{
			Page:     page,
			PageSize: pageSize,
			Search:   q.Get("search"),
			SortBy:   q.Get("sort_by"),
			SortDir:  q.Get("sort_dir"),
		})
		if err != nil {
			writeUpstreamError(w, err)
			return
		}
		response.JSON(w, normalize.Response(raw))
	}
}

// NewClustersHandler returns the handler for
// GET /api/v1/projects/{projectID}/clusters.
func NewClustersHandler(reader InsightsReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "projectID")
		q := r.URL.Query()
		page, _ := strconv.Atoi(q.Get("page"))
		pageSize, _ := strconv.Atoi(q.Get("page_size"))

		raw, err := reader.Clusters(r.Context(), projectID, page, pageSize)
		if err != nil {
			writeUpstreamError(w, err)
			return
		}
		response.JSON(w, normalize.Response(raw))
	}
}

// NewClusterHandler returns the handler for
// GET /api/v1/projects/{projectID}/clusters/{clusterID}.
func NewClusterHandler(reader InsightsReader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, err := reader.Cluster(r.Context(),
			chi.URLParam(r, "projectID"), chi.URLParam(r, "clusterID"))
		if err != nil {
			writeUpstreamError(w, err)
			return
		}
		response.JSON(w, normalize.Response(raw))
	}
}

// NewAdviceHandler returns the handler for
// GET /api/v1/projects/{projectID}/advice. Normalized advice is cached per
// project; pass refresh=true to bypass the cache.
func NewAdviceHandler(reader InsightsReader, ca cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		projectID := chi.URLParam(r, "projectID")
		key := cache.AdviceKey(projectID)

		if r.URL.Query().Get("refresh") != "true" {
			if cached, ok, err := ca.Get(r.Context(), key); err == nil && ok {
				var v any
				if json.Unmarshal(cached, &v) == nil {
					response.JSON(w, v)
					return
				}
			}
		}

		raw, err := reader.StrategicAdvice(r.Context(), projectID)
		if err != nil {
			writeUpstreamError(w, err)
			return
		}

		normalized := normalize.Response(raw)
		if encoded, err := json.Marshal(normalized); err == nil {
			_ = ca.Set(r.Context(), key, encoded, adviceTTL)
		}
		response.JSON(w, normalized)
	}
}
