package service_test

import (
	"context"
	"errors"
	"testing"

	"radioeval-service/internal/entity"
	"radioeval-service/internal/repository/postgresql"
	"radioeval-service/internal/service"
)

type fakeRepo struct {
	created map[string]entity.JobInput

	createErr error
}

func (r *fakeRepo) Create(ctx context.Context, id string, input entity.JobInput) error {
	if r.createErr != nil {
		return r.createErr
	}
	if r.created == nil {
		r.created = map[string]entity.JobInput{}
	}
	r.created[id] = input
	return nil
}

func (r *fakeRepo) Get(ctx context.Context, id string) (*entity.Job, error) {
	if _, ok := r.created[id]; !ok {
		return nil, postgresql.ErrNotFound
	}
	return &entity.Job{ID: id, Status: entity.StatusPending, Input: r.created[id]}, nil
}

type fakeQueue struct {
	enqueued   []string
	enqueueErr error
}

func (q *fakeQueue) Enqueue(ctx context.Context, jobID string) error {
	q.enqueued = append(q.enqueued, jobID)
	return q.enqueueErr
}

func TestStartJob_RejectsEmptyAudioKeys(t *testing.T) {
	svc := service.NewJobService(&fakeRepo{}, &fakeQueue{})

	_, err := svc.StartJob(context.Background(), entity.JobInput{})
	if !errors.Is(err, service.ErrNoAudioKeys) {
		t.Fatalf("expected ErrNoAudioKeys, got %v", err)
	}
}

func TestStartJob_CreatesPendingAndEnqueues(t *testing.T) {
	repo := &fakeRepo{}
	queue := &fakeQueue{}
	svc := service.NewJobService(repo, queue)

	input := entity.JobInput{AudioKeys: []string{"input/1.wav"}}
	id, err := svc.StartJob(context.Background(), input)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if len(id) != 8 {
		t.Fatalf("expected 8-char job id, got %q", id)
	}

	job, err := svc.GetJob(context.Background(), id)
	if err != nil {
		t.Fatalf("get after create: %v", err)
	}
	if job.Status != entity.StatusPending || job.Progress != 0 {
		t.Fatalf("expected pending/0, got %s/%d", job.Status, job.Progress)
	}

	if len(queue.enqueued) != 1 || queue.enqueued[0] != id {
		t.Fatalf("expected enqueue of %s, got %v", id, queue.enqueued)
	}
}

func TestStartJob_DispatchFailureLeavesJobPending(t *testing.T) {
	repo := &fakeRepo{}
	queue := &fakeQueue{enqueueErr: errors.New("redis down")}
	svc := service.NewJobService(repo, queue)

	id, err := svc.StartJob(context.Background(), entity.JobInput{AudioKeys: []string{"a.wav"}})
	if err != nil {
		t.Fatalf("dispatch failure must not fail the request, got %v", err)
	}

	job, err := svc.GetJob(context.Background(), id)
	if err != nil {
		t.Fatalf("get after create: %v", err)
	}
	if job.Status != entity.StatusPending {
		t.Fatalf("orphaned job must stay pending, got %s", job.Status)
	}
}

func TestStartJob_CreateErrorPropagates(t *testing.T) {
	repo := &fakeRepo{createErr: errors.New("pg down")}
	svc := service.NewJobService(repo, &fakeQueue{})

	if _, err := svc.StartJob(context.Background(), entity.JobInput{AudioKeys: []string{"a.wav"}}); err == nil {
		t.Fatal("expected error when the store is unavailable")
	}
}
