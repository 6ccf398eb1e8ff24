package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"leadboard_backend/internal/imports/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrJobNotFound = errors.New("import job not found")

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

const jobColumns = `j.id, j.campaign_id, j.actor_id, j.file_name, j.object_key, j.mapping, j.total_rows,
	j.processed, j.created, j.failed, j.errors, j.status, j.error_message, j.started_at, j.finished_at,
	j.created_at, j.updated_at`

func scanJob(row pgx.Row) (domain.Job, error) {
	var (
		job       domain.Job
		mapping   []byte
		rowErrors []byte
		status    string
	)
	err := row.Scan(
		&job.ID, &job.CampaignID, &job.ActorID, &job.FileName, &job.ObjectKey, &mapping, &job.TotalRows,
		&job.Processed, &job.Created, &job.Failed, &rowErrors, &status, &job.ErrorMessage, &job.StartedAt, &job.FinishedAt,
		&job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return domain.Job{}, err
	}
	job.Status = domain.JobStatus(status)
	if len(mapping) > 0 {
		if err := json.Unmarshal(mapping, &job.Mapping); err != nil {
			return domain.Job{}, fmt.Errorf("decode mapping: %w", err)
		}
	}
	if len(rowErrors) > 0 {
		if err := json.Unmarshal(rowErrors, &job.Errors); err != nil {
			return domain.Job{}, fmt.Errorf("decode row errors: %w", err)
		}
	}
	if job.Errors == nil {
		job.Errors = []domain.RowError{}
	}
	return job, nil
}

type CreateJobParams struct {
	ID         uuid.UUID
	CampaignID uuid.UUID
	ActorID    uuid.UUID
	FileName   string
	ObjectKey  string
	Mapping    domain.Mapping
	TotalRows  int
}

func (r *JobRepository) Create(ctx context.Context, params CreateJobParams) (domain.Job, error) {
	if params.ID == uuid.Nil {
		params.ID = uuid.New()
	}
	mapping, err := json.Marshal(params.Mapping)
	if err != nil {
		return domain.Job{}, fmt.Errorf("marshal mapping: %w", err)
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO import_jobs AS j (id, campaign_id, actor_id, file_name, object_key, mapping, total_rows, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'pending')
		RETURNING `+jobColumns,
		params.ID, params.CampaignID, params.ActorID, params.FileName, params.ObjectKey, mapping, params.TotalRows,
	)
	return scanJob(row)
}

func (r *JobRepository) GetByID(ctx context.Context, id uuid.UUID) (domain.Job, error) {
	job, err := scanJob(r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM import_jobs j WHERE j.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Job{}, ErrJobNotFound
	}
	return job, err
}

// Claim moves a pending job to processing. ok is false when the job is not
// pending anymore (another worker claimed it, or it already finished).
func (r *JobRepository) Claim(ctx context.Context, id uuid.UUID) (domain.Job, bool, error) {
	job, err := scanJob(r.pool.QueryRow(ctx, `
		UPDATE import_jobs j
		SET status = 'processing', started_at = now(), updated_at = now()
		WHERE j.id = $1 AND j.status = 'pending'
		RETURNING `+jobColumns, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Job{}, false, nil
	}
	if err != nil {
		return domain.Job{}, false, err
	}
	return job, true, nil
}

// SaveProgress writes the counters of a processing job.
func (r *JobRepository) SaveProgress(ctx context.Context, id uuid.UUID, totalRows int, progress domain.Progress) error {
	rowErrors, err := marshalRowErrors(progress.Errors)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx, `
		UPDATE import_jobs
		SET total_rows = $2, processed = $3, created = $4, failed = $5, errors = $6, updated_at = now()
		WHERE id = $1 AND status = 'processing'`,
		id, totalRows, progress.Processed, progress.Created, progress.Failed, rowErrors,
	)
	return err
}

// Finish moves a job to a terminal status. Terminal jobs are never updated
// again; finishing one twice returns ok=false.
func (r *JobRepository) Finish(ctx context.Context, id uuid.UUID, status domain.JobStatus, totalRows int, progress domain.Progress, message *string) (domain.Job, bool, error) {
	if !status.Terminal() {
		return domain.Job{}, false, fmt.Errorf("status %q is not terminal", status)
	}
	rowErrors, err := marshalRowErrors(progress.Errors)
	if err != nil {
		return domain.Job{}, false, err
	}

	job, err := scanJob(r.pool.QueryRow(ctx, `
		UPDATE import_jobs j
		SET status = $2, total_rows = $3, processed = $4, created = $5, failed = $6, errors = $7,
			error_message = $8, finished_at = now(), updated_at = now()
		WHERE j.id = $1 AND j.status IN ('pending', 'processing')
		RETURNING `+jobColumns,
		id, string(status), totalRows, progress.Processed, progress.Created, progress.Failed, rowErrors, message,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Job{}, false, nil
	}
	if err != nil {
		return domain.Job{}, false, err
	}
	return job, true, nil
}

// FailStale fails processing jobs whose last write is older than before and
// returns them. A worker that died mid-import leaves such jobs behind.
func (r *JobRepository) FailStale(ctx context.Context, before time.Time, message string) ([]domain.Job, error) {
	rows, err := r.pool.Query(ctx, `
		UPDATE import_jobs j
		SET status = 'failed', error_message = $2, finished_at = now(), updated_at = now()
		WHERE j.status = 'processing' AND j.updated_at < $1
		RETURNING `+jobColumns, before, message)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Discard deletes a job that was never picked up.
func (r *JobRepository) Discard(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM import_jobs WHERE id = $1 AND status = 'pending'`, id)
	return err
}

// ObjectKeysInUse reports which of keys belong to a job.
func (r *JobRepository) ObjectKeysInUse(ctx context.Context, keys []string) (map[string]bool, error) {
	inUse := make(map[string]bool)
	if len(keys) == 0 {
		return inUse, nil
	}
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT object_key FROM import_jobs WHERE object_key = ANY($1)`, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		inUse[key] = true
	}
	return inUse, rows.Err()
}

// DeleteFinishedBefore removes terminal jobs finished before cutoff and
// returns the object keys of their uploaded files.
func (r *JobRepository) DeleteFinishedBefore(ctx context.Context, cutoff time.Time) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		DELETE FROM import_jobs
		WHERE status IN ('completed', 'failed') AND finished_at < $1
		RETURNING object_key`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

func marshalRowErrors(rowErrors []domain.RowError) ([]byte, error) {
	if rowErrors == nil {
		rowErrors = []domain.RowError{}
	}
	data, err := json.Marshal(rowErrors)
	if err != nil {
		return nil, fmt.Errorf("marshal row errors: %w", err)
	}
	return data, nil
}
