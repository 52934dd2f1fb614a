// Package transcript drives the transcription collaborator per audio unit
// and merges the per-unit transcripts into one session document.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/rs/zerolog/log"

	"radioeval-service/internal/entity"
	"radioeval-service/internal/objectstore"
	"radioeval-service/internal/transcribe"
)

// jobNameMaxLen is the collaborator's limit on transcription job names.
const jobNameMaxLen = 64

// Assembly is the merged outcome of one session's transcription phase.
// Fragments counts the units that actually contributed text; callers must
// hard-fail the session when it is zero.
type Assembly struct {
	Transcript    string
	TotalDuration int
	Fragments     int
}

type Assembler struct {
	store       objectstore.BlobStore
	client      transcribe.Client
	poll        transcribe.PollPolicy
	language    string
	maxSpeakers int
}

func NewAssembler(store objectstore.BlobStore, client transcribe.Client, poll transcribe.PollPolicy, language string) *Assembler {
	return &Assembler{
		store:       store,
		client:      client,
		poll:        poll,
		language:    language,
		maxSpeakers: 10,
	}
}

// Assemble transcribes each audio unit sequentially in lexicographic key
// order and merges the results. Units the collaborator fails, or that never
// reach a terminal state within the poll budget, are skipped; the session
// proceeds on whatever subset succeeded. onUnit is invoked after each unit's
// outcome is known.
//
// Merge order is the lexicographic key order, not chronological call order.
// Turn metadata is sorted chronologically elsewhere; the two orderings can
// disagree for interleaved calls. TODO(product): confirm whether the merge
// should follow CallRecord timestamps instead.
func (a *Assembler) Assemble(
	ctx context.Context,
	jobID string,
	audioKeys []string,
	calls map[string]entity.CallRecord,
	holders map[string]entity.Participant,
	onUnit func(done, total int),
) (Assembly, error) {
	keys := make([]string, len(audioKeys))
	copy(keys, audioKeys)
	sort.Strings(keys)

	var (
		fragments []string
		total     int
	)

	for i, key := range keys {
		text, err := a.TranscribeOne(ctx, jobID, key)
		if err != nil {
			return Assembly{}, err
		}
		if text != "" {
			call, matched := calls[unitStem(key)]
			caller := "Unknown"
			if matched {
				if h, ok := holders[call.CallerID]; ok {
					caller = h.Name
				}
			}
			fragments = append(fragments, fmt.Sprintf("[%s - %s]: %s", call.Timestamp, caller, text))
			total += call.Duration
		}
		if onUnit != nil {
			onUnit(i+1, len(keys))
		}
	}

	return Assembly{
		Transcript:    strings.Join(fragments, "\n"),
		TotalDuration: total,
		Fragments:     len(fragments),
	}, nil
}

// TranscribeOne runs one unit to its outcome and returns its raw transcript
// text. A unit the collaborator fails, or whose poll budget runs out,
// yields empty text and nil error; only infrastructure failures
// (unreachable API, unreadable output document) return an error.
func (a *Assembler) TranscribeOne(ctx context.Context, jobID, key string) (string, error) {
	stem := unitStem(key)
	jobName := transcriptionJobName(jobID, stem)
	outputKey := "transcriptions/" + jobName + ".json"

	err := a.client.Submit(ctx, transcribe.SubmitRequest{
		JobName:      jobName,
		MediaURI:     a.store.URI(key),
		LanguageCode: a.language,
		MediaFormat:  mediaFormat(key),
		OutputKey:    outputKey,
		MaxSpeakers:  a.maxSpeakers,
	})
	if err != nil {
		return "", err
	}

	state, err := transcribe.WaitForTerminal(ctx, a.client, jobName, a.poll)
	if err != nil {
		if errors.Is(err, transcribe.ErrPollExhausted) {
			log.Warn().Str("job_id", jobID).Str("audio_key", key).Msg("transcription poll budget exhausted; unit skipped")
			return "", nil
		}
		return "", err
	}
	if state.Status == transcribe.StatusFailed {
		log.Warn().Str("job_id", jobID).Str("audio_key", key).Str("reason", state.Reason).Msg("transcription failed; unit skipped")
		return "", nil
	}

	raw, err := a.store.Get(ctx, outputKey)
	if err != nil {
		return "", fmt.Errorf("fetch transcript for %q: %w", key, err)
	}
	text, err := transcribe.ParseTranscriptDoc(raw)
	if err != nil {
		return "", fmt.Errorf("transcript for %q: %w", key, err)
	}
	return text, nil
}

// unitStem maps an audio key to its call reference: the base filename
// without extension.
func unitStem(key string) string {
	base := path.Base(key)
	return strings.TrimSuffix(base, path.Ext(base))
}

func mediaFormat(key string) string {
	ext := strings.TrimPrefix(strings.ToLower(path.Ext(key)), ".")
	if ext == "" {
		return "wav"
	}
	return ext
}

func transcriptionJobName(jobID, stem string) string {
	name := fmt.Sprintf("radioeval-%s-%s", jobID, stem)
	if len(name) > jobNameMaxLen {
		name = name[:jobNameMaxLen]
	}
	return name
}
