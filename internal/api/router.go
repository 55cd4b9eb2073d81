package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	mw "github.com/sanjaynair/rankscope/internal/api/middleware"
	"github.com/sanjaynair/rankscope/internal/api/response"
)

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Auth      *mw.Auth
	RateLimit *mw.RateLimit

	HealthHandler http.HandlerFunc

	UploadHandler     http.HandlerFunc
	CurrentJobHandler http.HandlerFunc
	CheckJobHandler   http.HandlerFunc
	CancelJobHandler  http.HandlerFunc
	JobHistoryHandler http.HandlerFunc

	KeywordsHandler http.HandlerFunc
	ClustersHandler http.HandlerFunc
	ClusterHandler  http.HandlerFunc
	AdviceHandler   http.HandlerFunc

	CreateKeyHandler http.HandlerFunc
	ListKeysHandler  http.HandlerFunc
	RevokeKeyHandler http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	// Public health check
	r.Get("/api/v1/health", orNotImplemented(deps.HealthHandler))

	// Protected routes
	r.Group(func(r chi.Router) {
		r.Use(deps.Auth.Authenticate)
		r.Use(deps.RateLimit.Limit)

		r.Route("/api/v1/projects/{projectID}", func(r chi.Router) {
			r.Post("/uploads", orNotImplemented(deps.UploadHandler))

			r.Get("/jobs/current", orNotImplemented(deps.CurrentJobHandler))
			r.Post("/jobs/current/check", orNotImplemented(deps.CheckJobHandler))
			r.Delete("/jobs/current", orNotImplemented(deps.CancelJobHandler))

			r.Get("/keywords", orNotImplemented(deps.KeywordsHandler))
			r.Get("/clusters", orNotImplemented(deps.ClustersHandler))
			r.Get("/clusters/{clusterID}", orNotImplemented(deps.ClusterHandler))
			r.Get("/advice", orNotImplemented(deps.AdviceHandler))
		})

		r.Get("/api/v1/jobs/history", orNotImplemented(deps.JobHistoryHandler))

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(deps.Auth.RequireScope("admin"))

			r.Post("/api/v1/admin/keys", orNotImplemented(deps.CreateKeyHandler))
			r.Get("/api/v1/admin/keys", orNotImplemented(deps.ListKeysHandler))
			r.Delete("/api/v1/admin/keys/{keyID}", orNotImplemented(deps.RevokeKeyHandler))
		})
	})

	return r
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
