package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/sanjaynair/rankscope/pkg/models"
)

var ErrNotFound = errors.New("resource not found")
var ErrDuplicateKey = errors.New("duplicate key violation")

// Store is the data access interface. All database operations go through here.
type Store interface {
	Ping(ctx context.Context) error

	GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error)
	UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error
	CreateAPIKey(ctx context.Context, key *models.APIKey) error
	ListAPIKeys(ctx context.Context) ([]*models.APIKey, error)
	RevokeAPIKey(ctx context.Context, id uuid.UUID) error

	CreateJobEvent(ctx context.Context, ev *models.JobEvent) error
	ListJobEvents(ctx context.Context, filter JobEventFilter) ([]*models.JobEvent, int, error)
}

// JobEventFilter narrows and pages the job history listing.
type JobEventFilter struct {
	ProjectID string
	Status    string
	Page      int
	Limit     int
}
