package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/rs/zerolog/log"

	"radioeval-service/internal/entity"
)

// claimProgress is the first progress value a claimed job shows, so that a
// poller can tell a claimed job from one still sitting in the queue.
const claimProgress = 5

type JobStore interface {
	Get(ctx context.Context, id string) (*entity.Job, error)
	SetProcessing(ctx context.Context, id string, progress int) error
	SetProgress(ctx context.Context, id string, progress int) error
	SetDone(ctx context.Context, id string, result *entity.SessionResult) error
	SetError(ctx context.Context, id, message, trace string) error
}

// SessionPipeline runs the analysis phases for one job.
type SessionPipeline interface {
	Run(ctx context.Context, jobID string, input entity.JobInput, progress func(int)) (*entity.SessionResult, error)
}

type Processor struct {
	store    JobStore
	pipeline SessionPipeline
}

func NewProcessor(store JobStore, pipeline SessionPipeline) *Processor {
	return &Processor{store: store, pipeline: pipeline}
}

// Process drives one claimed job to a terminal state. A re-delivered id whose
// record is already terminal is acknowledged without work. Panics in the
// pipeline are converted into a job error with the stack as trace.
func (p *Processor) Process(ctx context.Context, jobID string) error {
	start := time.Now()

	job, err := p.store.Get(ctx, jobID)
	if err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("load job")
		return err
	}
	if job.Status.Terminal() {
		log.Info().Str("job_id", jobID).Str("status", string(job.Status)).Msg("job already terminal, skipping")
		return nil
	}

	if err := p.store.SetProcessing(ctx, jobID, claimProgress); err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("claim job")
		return err
	}

	log.Info().Str("job_id", jobID).Int("num_audios", len(job.Input.AudioKeys)).Msg("job processing")

	result, procErr := p.run(ctx, jobID, job.Input)
	if procErr != nil {
		msg, trace := procErr.Error(), ""
		var pe panicError
		if errors.As(procErr, &pe) {
			msg, trace = pe.msg, pe.stack
		}
		if err := p.store.SetError(ctx, jobID, msg, trace); err != nil {
			log.Error().Err(err).Str("job_id", jobID).Msg("record job error")
			return err
		}
		log.Error().
			Str("job_id", jobID).
			Dur("duration", time.Since(start)).
			Str("error", msg).
			Msg("job failed")
		return procErr
	}

	if err := p.store.SetDone(ctx, jobID, result); err != nil {
		log.Error().Err(err).Str("job_id", jobID).Msg("record job result")
		return err
	}

	log.Info().
		Str("job_id", jobID).
		Dur("duration", time.Since(start)).
		Msg("job done")
	return nil
}

func (p *Processor) run(ctx context.Context, jobID string, input entity.JobInput) (result *entity.SessionResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = panicError{msg: fmt.Sprintf("panic: %v", r), stack: string(debug.Stack())}
		}
	}()

	progress := func(pct int) {
		// best effort: losing a checkpoint only delays what the poller sees
		if err := p.store.SetProgress(ctx, jobID, pct); err != nil {
			log.Warn().Err(err).Str("job_id", jobID).Int("progress", pct).Msg("progress write failed")
		}
	}

	return p.pipeline.Run(ctx, jobID, input, progress)
}

type panicError struct {
	msg   string
	stack string
}

func (e panicError) Error() string { return e.msg }
