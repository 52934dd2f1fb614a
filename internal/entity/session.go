package entity

// Participant is one radio holder from the holders document.
type Participant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CallRecord describes one TETRA call from the callrefs document, keyed by
// the call reference derived from the audio unit's filename stem.
type CallRecord struct {
	ID        string `json:"id"`
	CallerID  string `json:"caller_id"`
	CalledID  string `json:"called_id,omitempty"`
	Duration  int    `json:"duration"`
	Timestamp string `json:"timestamp"`
}

// SpeakingTurn is one contiguous utterance by one participant. Start is the
// sole ordering key; SpeakerID may dangle (no matching Participant).
type SpeakingTurn struct {
	Start     string `json:"start"`
	Duration  int    `json:"duration"`
	SpeakerID string `json:"speaker_id"`
}

// OperatorAssessment is the per-participant slice of an evaluation.
type OperatorAssessment struct {
	Score       float64 `json:"score"`
	Observation string  `json:"observation"`
}

// EvaluationRecord is the scoring model's structured verdict. All numeric
// fields are advisory; nothing enforces that Score equals the sub-score
// average.
type EvaluationRecord struct {
	Score           float64                       `json:"score"`
	Phraseology     float64                       `json:"phraseology"`
	Clarity         float64                       `json:"clarity"`
	Protocol        float64                       `json:"protocol"`
	Formality       float64                       `json:"formality"`
	Justification   string                        `json:"justification"`
	IssuesDetected  []string                      `json:"issues_detected"`
	Recommendations []string                      `json:"recommendations"`
	PerOperator     map[string]OperatorAssessment `json:"per_operator,omitempty"`
}

// SessionInfo aggregates session-level figures. NumAudios always counts the
// audio units supplied at job creation, not the units that transcribed.
type SessionInfo struct {
	TotalDuration int      `json:"total_duration"`
	NumAudios     int      `json:"num_audios"`
	NumTurns      int      `json:"num_turns"`
	Participants  []string `json:"participants"`
}

// SessionResult is the final payload of a done job. Turns carries at most
// the first 30 speaking turns for timeline display.
type SessionResult struct {
	Transcript string           `json:"transcript"`
	Evaluation EvaluationRecord `json:"evaluation"`
	Session    SessionInfo      `json:"session_info"`
	Turns      []SpeakingTurn   `json:"turns,omitempty"`
}
