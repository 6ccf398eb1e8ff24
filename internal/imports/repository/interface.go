package repository

import (
	"context"
	"time"

	"leadboard_backend/internal/imports/domain"

	"github.com/google/uuid"
)

// JobStore persists import jobs.
type JobStore interface {
	Create(ctx context.Context, params CreateJobParams) (domain.Job, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Job, error)
	Claim(ctx context.Context, id uuid.UUID) (domain.Job, bool, error)
	SaveProgress(ctx context.Context, id uuid.UUID, totalRows int, progress domain.Progress) error
	Finish(ctx context.Context, id uuid.UUID, status domain.JobStatus, totalRows int, progress domain.Progress, message *string) (domain.Job, bool, error)
	FailStale(ctx context.Context, before time.Time, message string) ([]domain.Job, error)
	Discard(ctx context.Context, id uuid.UUID) error
	ObjectKeysInUse(ctx context.Context, keys []string) (map[string]bool, error)
	DeleteFinishedBefore(ctx context.Context, cutoff time.Time) ([]string, error)
}

// Previews keeps upload previews until they are confirmed or expire.
type Previews interface {
	Save(ctx context.Context, preview domain.Preview) error
	Get(ctx context.Context, id uuid.UUID) (domain.Preview, error)
	Take(ctx context.Context, id uuid.UUID) (domain.Preview, error)
	Delete(ctx context.Context, id uuid.UUID) error
	TTL() time.Duration
}

var (
	_ JobStore = (*JobRepository)(nil)
	_ Previews = (*PreviewStore)(nil)
)
