package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"radioeval-service/internal/service"
)

type Pool struct {
	queue      service.Queue
	processor  *Processor
	workers    int
	claimDelay time.Duration
}

func NewPool(queue service.Queue, processor *Processor, workers int) *Pool {
	if workers <= 0 {
		workers = 4
	}
	return &Pool{
		queue:      queue,
		processor:  processor,
		workers:    workers,
		claimDelay: 5 * time.Second,
	}
}

func (p *Pool) Run(ctx context.Context) {
	log.Info().Int("workers", p.workers).Msg("worker pool started")

	jobCh := make(chan string)

	for i := 0; i < p.workers; i++ {
		go func(n int) {
			for jobID := range jobCh {
				if err := p.processor.Process(ctx, jobID); err != nil {
					log.Error().Err(err).Int("worker", n).Str("job_id", jobID).Msg("process job")
				}

				// ACK either way: the job reached done/error in the store, or
				// Process failed before updating it and the reaper re-delivers.
				if ackErr := p.queue.Ack(ctx, jobID); ackErr != nil {
					log.Error().Err(ackErr).Int("worker", n).Str("job_id", jobID).Msg("ack job")
				}
			}
		}(i + 1)
	}

	// Listener: atomically claim from queue -> processing
	for {
		select {
		case <-ctx.Done():
			close(jobCh)
			log.Info().Msg("worker pool stopped")
			return
		default:
			jobID, err := p.queue.ClaimBlocking(ctx, p.claimDelay)
			if err != nil {
				// timeout / redis.Nil / ctx cancel, keep listening
				continue
			}
			select {
			case jobCh <- jobID:
			case <-ctx.Done():
				close(jobCh)
				return
			}
		}
	}
}
