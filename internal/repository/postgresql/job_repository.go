// Package postgresql holds the durable job store. Exactly one worker owns a
// given job's mutations, so the store needs no locking: guards here only
// enforce terminal-state immutability and monotonic progress.
package postgresql

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"radioeval-service/internal/entity"
)

var ErrNotFound = errors.New("job not found")

type JobRepository struct {
	pool *pgxpool.Pool
}

func NewJobRepository(pool *pgxpool.Pool) *JobRepository {
	return &JobRepository{pool: pool}
}

// Create persists the initial pending record with progress 0.
func (r *JobRepository) Create(ctx context.Context, id string, input entity.JobInput) error {
	inputJSON, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("encode job input: %w", err)
	}

	const q = `
INSERT INTO jobs (id, status, progress, input)
VALUES ($1, 'pending', 0, $2);
`
	if _, err := r.pool.Exec(ctx, q, id, inputJSON); err != nil {
		return fmt.Errorf("create job %s: %w", id, err)
	}
	return nil
}

func (r *JobRepository) Get(ctx context.Context, id string) (*entity.Job, error) {
	const q = `
SELECT id, status, progress, input, result, error, trace, created_at, updated_at
FROM jobs
WHERE id = $1;
`

	var (
		job         entity.Job
		statusText  string
		inputBytes  []byte
		resultBytes []byte
		errText     *string
		traceText   *string
		createdAt   time.Time
		updatedAt   time.Time
	)

	if err := r.pool.QueryRow(ctx, q, id).Scan(
		&job.ID,
		&statusText,
		&job.Progress,
		&inputBytes,
		&resultBytes, // NULL => nil
		&errText,
		&traceText,
		&createdAt,
		&updatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	job.Status = entity.JobStatus(statusText)
	if len(inputBytes) > 0 {
		if err := json.Unmarshal(inputBytes, &job.Input); err != nil {
			return nil, fmt.Errorf("decode input of job %s: %w", id, err)
		}
	}
	if resultBytes != nil {
		var res entity.SessionResult
		if err := json.Unmarshal(resultBytes, &res); err != nil {
			return nil, fmt.Errorf("decode result of job %s: %w", id, err)
		}
		job.Result = &res
	}
	job.Error = errText
	job.Trace = traceText
	job.CreatedAt = createdAt
	job.UpdatedAt = updatedAt

	return &job, nil
}

// SetProcessing claims the job: status moves to processing with a small
// non-zero progress to signal liveness. Terminal records are left alone.
func (r *JobRepository) SetProcessing(ctx context.Context, id string, progress int) error {
	const q = `
UPDATE jobs
SET status = 'processing', progress = GREATEST(progress, $2), updated_at = now()
WHERE id = $1 AND status NOT IN ('done', 'error');
`
	tag, err := r.pool.Exec(ctx, q, id, progress)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetProgress merges a progress checkpoint. Progress never decreases, and a
// missing record is upserted bare: a progress write may race a slow
// creation path, and losing it is worse than a skeleton row.
func (r *JobRepository) SetProgress(ctx context.Context, id string, progress int) error {
	const q = `
INSERT INTO jobs (id, status, progress)
VALUES ($1, 'processing', $2)
ON CONFLICT (id) DO UPDATE
SET progress = GREATEST(jobs.progress, EXCLUDED.progress), updated_at = now()
WHERE jobs.status NOT IN ('done', 'error');
`
	if _, err := r.pool.Exec(ctx, q, id, progress); err != nil {
		return fmt.Errorf("set progress of job %s: %w", id, err)
	}
	return nil
}

// SetDone writes the final result, forcing progress to 100.
func (r *JobRepository) SetDone(ctx context.Context, id string, result *entity.SessionResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("encode result of job %s: %w", id, err)
	}

	const q = `
UPDATE jobs
SET status = 'done', progress = 100, result = $2, error = NULL, trace = NULL, updated_at = now()
WHERE id = $1 AND status NOT IN ('done', 'error');
`
	tag, err := r.pool.Exec(ctx, q, id, resultJSON)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// SetError records the terminal failure. Progress keeps its last value.
func (r *JobRepository) SetError(ctx context.Context, id, message, trace string) error {
	const q = `
UPDATE jobs
SET status = 'error', error = $2, trace = NULLIF($3, ''), updated_at = now()
WHERE id = $1 AND status NOT IN ('done', 'error');
`
	tag, err := r.pool.Exec(ctx, q, id, message, trace)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
