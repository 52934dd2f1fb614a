package evaluate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"radioeval-service/internal/entity"
)

type stubModel struct {
	response string
	err      error
	calls    int
	prompt   string
}

func (m *stubModel) GenerateText(ctx context.Context, prompt string) (string, error) {
	m.calls++
	m.prompt = prompt
	return m.response, m.err
}

func TestRenderSessionPrompt_CapsTurnPreviewAtTwenty(t *testing.T) {
	turns := make([]entity.SpeakingTurn, 25)
	for i := range turns {
		turns[i] = entity.SpeakingTurn{Start: fmt.Sprintf("10:00:%02d", i), SpeakerID: "101", Duration: 1}
	}

	prompt, err := RenderSessionPrompt(PromptContext{
		Turns:      turns,
		Transcript: "x",
	})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if got := strings.Count(prompt, "- 10:00:"); got != 20 {
		t.Fatalf("expected 20 preview lines, got %d", got)
	}
	// The full count still appears in the context block.
	if !strings.Contains(prompt, "Number of speaking turns: 25") {
		t.Fatal("expected full turn count in prompt")
	}
}

func TestRenderSessionPrompt_PlaceholdersWhenMetadataAbsent(t *testing.T) {
	prompt, err := RenderSessionPrompt(PromptContext{Transcript: "hola"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if !strings.Contains(prompt, "Participants: Not identified") {
		t.Fatal("expected participant placeholder")
	}
	if !strings.Contains(prompt, "Not available") {
		t.Fatal("expected turn metadata placeholder")
	}
}

func TestParticipantNames_FallbackLabel(t *testing.T) {
	turns := []entity.SpeakingTurn{
		{SpeakerID: "101"},
		{SpeakerID: "999"},
		{SpeakerID: "101"},
	}
	holders := map[string]entity.Participant{"101": {ID: "101", Name: "Central"}}

	names := ParticipantNames(turns, holders)
	if len(names) != 2 || names[0] != "Central" || names[1] != "Operator-999" {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestEvaluateSession_ParsesFencedJSON(t *testing.T) {
	model := &stubModel{response: "```json\n" +
		`{"score": 8, "phraseology": 9, "clarity": 8, "protocol": 7, "formality": 8,
		  "justification": "solid", "issues_detected": [], "recommendations": ["keep it up"],
		  "per_operator": {"Central": {"score": 8, "observation": "clear"}}}` +
		"\n```"}
	e := NewEngine(model)

	rec, err := e.EvaluateSession(context.Background(), PromptContext{Transcript: "hola"})
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if rec.Score != 8 || rec.Phraseology != 9 {
		t.Fatalf("unexpected record: %#v", rec)
	}
	if rec.PerOperator["Central"].Observation != "clear" {
		t.Fatalf("unexpected per-operator entry: %#v", rec.PerOperator)
	}
	if model.calls != 1 {
		t.Fatalf("model must be invoked exactly once, got %d", model.calls)
	}
}

func TestEvaluateSession_MalformedResponseIsNotRetried(t *testing.T) {
	model := &stubModel{response: "I cannot score this session."}
	e := NewEngine(model)

	_, err := e.EvaluateSession(context.Background(), PromptContext{Transcript: "hola"})
	if !errors.Is(err, ErrMalformedVerdict) {
		t.Fatalf("expected ErrMalformedVerdict, got %v", err)
	}
	if model.calls != 1 {
		t.Fatalf("malformed output must not trigger a retry, got %d calls", model.calls)
	}
}

func TestEvaluateSingle_UsesTranscript(t *testing.T) {
	model := &stubModel{response: `{"score": 6.5, "phraseology": 6, "clarity": 7, "protocol": 6, "formality": 7, "justification": "ok", "issues_detected": ["no ack"], "recommendations": []}`}
	e := NewEngine(model)

	rec, err := e.EvaluateSingle(context.Background(), "Copiado, procedo.")
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if rec.Score != 6.5 {
		t.Fatalf("expected score 6.5, got %v", rec.Score)
	}
	if !strings.Contains(model.prompt, "Copiado, procedo.") {
		t.Fatal("expected transcript embedded in prompt")
	}
}

func TestDecodeVerdict_ProseAroundJSON(t *testing.T) {
	rec, err := decodeVerdict(`Here is the evaluation: {"score": 5} hope it helps`)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if rec.Score != 5 {
		t.Fatalf("expected score 5, got %v", rec.Score)
	}
}
