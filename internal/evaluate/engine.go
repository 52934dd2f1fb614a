// Package evaluate renders the scoring rubric, invokes the scoring model
// once per session, and parses its completion into the canonical evaluation
// record. Model output is untrusted text; parsing is a fallible boundary.
package evaluate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"radioeval-service/internal/entity"
)

// ErrMalformedVerdict marks a completion that could not be parsed as an
// evaluation record. Fatal for the job: never retried, never defaulted to a
// placeholder score.
var ErrMalformedVerdict = errors.New("evaluate: malformed model response")

// ModelClient is the scoring collaborator port.
type ModelClient interface {
	GenerateText(ctx context.Context, prompt string) (string, error)
}

type Engine struct {
	model ModelClient
}

func NewEngine(model ModelClient) *Engine {
	return &Engine{model: model}
}

// EvaluateSession scores a full session. The model is invoked exactly once.
func (e *Engine) EvaluateSession(ctx context.Context, pc PromptContext) (entity.EvaluationRecord, error) {
	prompt, err := RenderSessionPrompt(pc)
	if err != nil {
		return entity.EvaluationRecord{}, err
	}
	return e.score(ctx, prompt)
}

// EvaluateSingle scores one stand-alone transcript.
func (e *Engine) EvaluateSingle(ctx context.Context, transcript string) (entity.EvaluationRecord, error) {
	prompt, err := RenderSinglePrompt(transcript)
	if err != nil {
		return entity.EvaluationRecord{}, err
	}
	return e.score(ctx, prompt)
}

func (e *Engine) score(ctx context.Context, prompt string) (entity.EvaluationRecord, error) {
	raw, err := e.model.GenerateText(ctx, prompt)
	if err != nil {
		return entity.EvaluationRecord{}, fmt.Errorf("evaluate: scoring call: %w", err)
	}

	rec, err := decodeVerdict(raw)
	if err != nil {
		log.Warn().Int("response_length", len(raw)).Msg("scoring response did not parse")
		return entity.EvaluationRecord{}, err
	}
	return rec, nil
}

// decodeVerdict extracts the JSON object from a completion that may be
// wrapped in markdown fences or surrounded by prose.
func decodeVerdict(raw string) (entity.EvaluationRecord, error) {
	var rec entity.EvaluationRecord

	text := stripFences(strings.TrimSpace(raw))
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return rec, fmt.Errorf("%w: no JSON object found", ErrMalformedVerdict)
	}

	if err := json.Unmarshal([]byte(text[start:end+1]), &rec); err != nil {
		return rec, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
	}
	return rec, nil
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	if len(lines) < 3 {
		return text
	}
	end := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			end = i
			break
		}
	}
	return strings.Join(lines[1:end], "\n")
}
