package service

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// Queue is the dispatch channel between the orchestrator and the workers.
type Queue interface {
	Enqueue(ctx context.Context, jobID string) error
	ClaimBlocking(ctx context.Context, timeout time.Duration) (string, error)
	Ack(ctx context.Context, jobID string) error
	RequeueStale(ctx context.Context, max int64) (int64, error)
}

// redisQueue is a reliable Redis list queue.
// Claim: BRPOPLPUSH queue -> processing
// Ack:   LREM from processing
// A reaper moves abandoned processing entries back for re-delivery.
type redisQueue struct {
	rdb           *redis.Client
	queueKey      string
	processingKey string
}

func NewRedisQueue(rdb *redis.Client, queueKey, processingKey string) Queue {
	return &redisQueue{
		rdb:           rdb,
		queueKey:      queueKey,
		processingKey: processingKey,
	}
}

func (q *redisQueue) Enqueue(ctx context.Context, jobID string) error {
	return q.rdb.LPush(ctx, q.queueKey, jobID).Err()
}

// ClaimBlocking waits up to timeout for a job id. timeout <= 0 blocks
// indefinitely, like a worker daemon.
func (q *redisQueue) ClaimBlocking(ctx context.Context, timeout time.Duration) (string, error) {
	if timeout < 0 {
		timeout = 0
	}
	return q.rdb.BRPopLPush(ctx, q.queueKey, q.processingKey, timeout).Result()
}

func (q *redisQueue) Ack(ctx context.Context, jobID string) error {
	return q.rdb.LRem(ctx, q.processingKey, 1, jobID).Err()
}

// RequeueStale moves up to max entries from processing back to the queue.
// At-least-once delivery: a worker that crashed mid-job gets its claim
// re-delivered; terminal-state guards in the job store make the replay a
// no-op for jobs that already finished.
func (q *redisQueue) RequeueStale(ctx context.Context, max int64) (int64, error) {
	var moved int64
	for i := int64(0); i < max; i++ {
		_, err := q.rdb.RPopLPush(ctx, q.processingKey, q.queueKey).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				break
			}
			return moved, err
		}
		moved++
	}
	return moved, nil
}
