package entity

import "time"

type JobStatus string

const (
	StatusPending    JobStatus = "pending"
	StatusProcessing JobStatus = "processing"
	StatusDone       JobStatus = "done"
	StatusError      JobStatus = "error"
)

// Terminal reports whether a job in this status may never be mutated again.
func (s JobStatus) Terminal() bool {
	return s == StatusDone || s == StatusError
}

// XMLKeys names the optional TETRA metadata documents in the object store.
type XMLKeys struct {
	Holders    string   `json:"holders,omitempty"`
	CallRefs   string   `json:"callrefs,omitempty"`
	Recordings []string `json:"recordings,omitempty"`
}

// JobInput is the caller-supplied work description, immutable after creation.
type JobInput struct {
	AudioKeys []string `json:"audio_keys"`
	XMLKeys   XMLKeys  `json:"xml_keys"`
}

// Job is one tracked asynchronous analysis request. The job store is the
// durable owner; exactly one worker mutates a given job after creation.
type Job struct {
	ID        string         `json:"job_id"`
	Status    JobStatus      `json:"status"`
	Progress  int            `json:"progress"`
	Input     JobInput       `json:"input"`
	Result    *SessionResult `json:"result,omitempty"`
	Error     *string        `json:"error,omitempty"`
	Trace     *string        `json:"trace,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
