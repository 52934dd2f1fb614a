package evaluate

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"

	"radioeval-service/internal/entity"
)

// The rubric wording is versioned data, not logic: swap the template files
// to change the rubric without touching rendering code.

//go:embed rubric/session.tmpl
var sessionRubric string

//go:embed rubric/single.tmpl
var singleRubric string

var (
	sessionTmpl = template.Must(template.New("session").Parse(sessionRubric))
	singleTmpl  = template.Must(template.New("single").Parse(singleRubric))
)

// turnPreviewCap bounds the prompt's turn metadata block. It is a token
// budget control only; the result record keeps its own, larger turn list.
const turnPreviewCap = 20

// PromptContext is the typed input of the session rubric.
type PromptContext struct {
	TotalDuration int
	Participants  []string
	Turns         []entity.SpeakingTurn
	Holders       map[string]entity.Participant
	Transcript    string
}

type sessionPromptData struct {
	TotalDuration int
	Participants  string
	NumTurns      int
	TurnPreview   string
	Transcript    string
}

// RenderSessionPrompt renders the session rubric from pc. Absent metadata
// degrades to placeholder lines rather than empty blocks.
func RenderSessionPrompt(pc PromptContext) (string, error) {
	data := sessionPromptData{
		TotalDuration: pc.TotalDuration,
		Participants:  strings.Join(pc.Participants, ", "),
		NumTurns:      len(pc.Turns),
		TurnPreview:   turnPreview(pc.Turns, pc.Holders),
		Transcript:    pc.Transcript,
	}
	if data.Participants == "" {
		data.Participants = "Not identified"
	}

	var buf bytes.Buffer
	if err := sessionTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("evaluate: render session rubric: %w", err)
	}
	return buf.String(), nil
}

// RenderSinglePrompt renders the single-recording rubric.
func RenderSinglePrompt(transcript string) (string, error) {
	var buf bytes.Buffer
	if err := singleTmpl.Execute(&buf, struct{ Transcript string }{transcript}); err != nil {
		return "", fmt.Errorf("evaluate: render single rubric: %w", err)
	}
	return buf.String(), nil
}

func turnPreview(turns []entity.SpeakingTurn, holders map[string]entity.Participant) string {
	if len(turns) == 0 {
		return "Not available"
	}
	if len(turns) > turnPreviewCap {
		turns = turns[:turnPreviewCap]
	}

	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		speaker := t.SpeakerID
		if h, ok := holders[t.SpeakerID]; ok {
			speaker = h.Name
		}
		lines = append(lines, fmt.Sprintf("- %s: %s (%ds)", t.Start, speaker, t.Duration))
	}
	return strings.Join(lines, "\n")
}

// ParticipantNames resolves the distinct participant names of a turn list,
// falling back to "Operator-{id}" for speakers missing from holders. Order
// follows first appearance.
func ParticipantNames(turns []entity.SpeakingTurn, holders map[string]entity.Participant) []string {
	seen := map[string]bool{}
	var names []string
	for _, t := range turns {
		name := "Operator-" + t.SpeakerID
		if h, ok := holders[t.SpeakerID]; ok {
			name = h.Name
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}
