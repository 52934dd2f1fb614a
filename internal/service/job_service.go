package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"radioeval-service/internal/entity"
)

// ErrNoAudioKeys rejects a start request without any audio unit.
var ErrNoAudioKeys = errors.New("audio_keys is required")

// JobRepository is the store port the orchestrator needs.
type JobRepository interface {
	Create(ctx context.Context, id string, input entity.JobInput) error
	Get(ctx context.Context, id string) (*entity.Job, error)
}

// JobQueue is the narrow enqueue-only view of the dispatch queue.
type JobQueue interface {
	Enqueue(ctx context.Context, jobID string) error
}

// JobService accepts analysis work: it persists the pending record and
// hands the job id to the dispatch queue without waiting for a worker.
type JobService struct {
	repo  JobRepository
	queue JobQueue
}

func NewJobService(repo JobRepository, queue JobQueue) *JobService {
	return &JobService{repo: repo, queue: queue}
}

// StartJob validates the input, creates the pending record, and dispatches
// it fire-and-forget. A dispatch failure is logged but not surfaced: the
// contract is "accepted for processing", and the caller observes an
// orphaned job as one that never leaves pending.
func (s *JobService) StartJob(ctx context.Context, input entity.JobInput) (string, error) {
	if len(input.AudioKeys) == 0 {
		return "", ErrNoAudioKeys
	}

	id := uuid.NewString()[:8]
	if err := s.repo.Create(ctx, id, input); err != nil {
		return "", err
	}

	if err := s.queue.Enqueue(ctx, id); err != nil {
		log.Warn().Err(err).Str("job_id", id).Msg("dispatch failed; job stays pending")
	}

	return id, nil
}

func (s *JobService) GetJob(ctx context.Context, id string) (*entity.Job, error) {
	return s.repo.Get(ctx, id)
}
