// Package pipeline sequences the analysis phases shared by the background
// worker and the synchronous analyze path: metadata parse, per-unit
// transcription, scoring.
package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"radioeval-service/internal/entity"
	"radioeval-service/internal/evaluate"
	"radioeval-service/internal/metadata"
	"radioeval-service/internal/objectstore"
	"radioeval-service/internal/transcript"
)

// ErrNoTranscription means every audio unit failed or produced no text.
var ErrNoTranscription = errors.New("no audio unit could be transcribed")

// Progress checkpoints of the async path. The transcription phase fills the
// span between metadata and evaluating proportionally to unit count.
const (
	progressMetadata   = 10
	transcriptionSpan  = 70
	progressEvaluating = 85
)

type Runner struct {
	store     objectstore.BlobStore
	assembler *transcript.Assembler
	engine    *evaluate.Engine
}

func NewRunner(store objectstore.BlobStore, assembler *transcript.Assembler, engine *evaluate.Engine) *Runner {
	return &Runner{store: store, assembler: assembler, engine: engine}
}

// Run executes the full session pipeline for one job. progress receives
// monotonically increasing checkpoints in (0,100); the caller persists them.
// Any phase failure aborts the run; partial transcription failures do not.
func (r *Runner) Run(ctx context.Context, jobID string, input entity.JobInput, progress func(int)) (*entity.SessionResult, error) {
	if progress == nil {
		progress = func(int) {}
	}

	holders, calls, turns, err := r.fetchMetadata(ctx, input.XMLKeys)
	if err != nil {
		return nil, err
	}
	progress(progressMetadata)

	asm, err := r.assembler.Assemble(ctx, jobID, input.AudioKeys, calls, holders, func(done, total int) {
		progress(progressMetadata + done*transcriptionSpan/total)
	})
	if err != nil {
		return nil, err
	}
	if asm.Fragments == 0 {
		return nil, ErrNoTranscription
	}
	progress(progressEvaluating)

	totalDuration := asm.TotalDuration
	if totalDuration == 0 {
		for _, t := range turns {
			totalDuration += t.Duration
		}
	}
	participants := evaluate.ParticipantNames(turns, holders)

	record, err := r.engine.EvaluateSession(ctx, evaluate.PromptContext{
		TotalDuration: totalDuration,
		Participants:  participants,
		Turns:         turns,
		Holders:       holders,
		Transcript:    asm.Transcript,
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("job_id", jobID).
		Int("fragments", asm.Fragments).
		Int("num_audios", len(input.AudioKeys)).
		Float64("score", record.Score).
		Msg("session evaluated")

	return &entity.SessionResult{
		Transcript: asm.Transcript,
		Evaluation: record,
		Session: entity.SessionInfo{
			TotalDuration: totalDuration,
			NumAudios:     len(input.AudioKeys),
			NumTurns:      len(turns),
			Participants:  participants,
		},
		Turns: capTurns(turns, 30),
	}, nil
}

// AnalyzeOne is the synchronous single-shot path: transcribe one unit and
// score it inline, with no job record and no progress reporting.
func (r *Runner) AnalyzeOne(ctx context.Context, audioKey string) (string, entity.EvaluationRecord, error) {
	runID := uuid.NewString()[:8]

	text, err := r.assembler.TranscribeOne(ctx, runID, audioKey)
	if err != nil {
		return "", entity.EvaluationRecord{}, err
	}
	if text == "" {
		return "", entity.EvaluationRecord{}, ErrNoTranscription
	}

	record, err := r.engine.EvaluateSingle(ctx, text)
	if err != nil {
		return "", entity.EvaluationRecord{}, err
	}
	return text, record, nil
}

// fetchMetadata loads and parses whichever metadata documents the input
// names. Unnamed documents yield empty tables; a named document that cannot
// be fetched or parsed fails the phase.
func (r *Runner) fetchMetadata(ctx context.Context, keys entity.XMLKeys) (
	map[string]entity.Participant,
	map[string]entity.CallRecord,
	[]entity.SpeakingTurn,
	error,
) {
	var holdersData, callRefsData []byte
	var err error

	if keys.Holders != "" {
		if holdersData, err = r.store.Get(ctx, keys.Holders); err != nil {
			return nil, nil, nil, fmt.Errorf("holders document: %w", err)
		}
	}
	if keys.CallRefs != "" {
		if callRefsData, err = r.store.Get(ctx, keys.CallRefs); err != nil {
			return nil, nil, nil, fmt.Errorf("callrefs document: %w", err)
		}
	}

	holders, err := metadata.ParseHolders(holdersData)
	if err != nil {
		return nil, nil, nil, err
	}
	calls, err := metadata.ParseCallRefs(callRefsData)
	if err != nil {
		return nil, nil, nil, err
	}

	var turns []entity.SpeakingTurn
	for _, key := range keys.Recordings {
		data, err := r.store.Get(ctx, key)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("recording document %q: %w", key, err)
		}
		docTurns, err := metadata.ParseRecordings(data)
		if err != nil {
			return nil, nil, nil, err
		}
		turns = append(turns, docTurns...)
	}
	metadata.SortTurns(turns)

	return holders, calls, turns, nil
}

func capTurns(turns []entity.SpeakingTurn, n int) []entity.SpeakingTurn {
	if len(turns) <= n {
		return turns
	}
	return turns[:n]
}
