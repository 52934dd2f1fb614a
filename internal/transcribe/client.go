// Package transcribe talks to the external speech-to-text collaborator: a
// job-oriented REST API that transcribes an object-store audio unit
// asynchronously and writes the transcript document back to the store.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Status is the collaborator-reported lifecycle of a transcription job.
type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
)

// Terminal reports whether the collaborator will change this status again.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SubmitRequest describes one transcription job.
type SubmitRequest struct {
	JobName      string `json:"job_name"`
	MediaURI     string `json:"media_uri"`
	LanguageCode string `json:"language_code"`
	MediaFormat  string `json:"media_format"`
	OutputKey    string `json:"output_key"`
	MaxSpeakers  int    `json:"max_speakers,omitempty"`
}

// JobState is the collaborator's answer to a status lookup.
type JobState struct {
	JobName string `json:"job_name"`
	Status  Status `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

// Client is the transcription port. Implementations may fail per item; the
// caller decides what a failed unit means for the whole session.
type Client interface {
	Submit(ctx context.Context, req SubmitRequest) error
	Lookup(ctx context.Context, jobName string) (JobState, error)
}

// HTTPClient implements Client against the collaborator's REST endpoints:
// POST {base}/v1/jobs and GET {base}/v1/jobs/{name}.
type HTTPClient struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

func NewHTTPClient(baseURL, apiKey string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		apiKey:  apiKey,
		hc:      &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) Submit(ctx context.Context, req SubmitRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("transcribe: encode submit request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/jobs", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("transcribe: build submit request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return fmt.Errorf("transcribe: submit %s: %w", req.JobName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("transcribe: submit %s: status %d: %s", req.JobName, resp.StatusCode, snippet)
	}
	return nil
}

func (c *HTTPClient) Lookup(ctx context.Context, jobName string) (JobState, error) {
	u := c.baseURL + "/v1/jobs/" + url.PathEscape(jobName)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return JobState{}, fmt.Errorf("transcribe: build lookup request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Token "+c.apiKey)

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return JobState{}, fmt.Errorf("transcribe: lookup %s: %w", jobName, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return JobState{}, fmt.Errorf("transcribe: lookup %s: status %d: %s", jobName, resp.StatusCode, snippet)
	}

	var state JobState
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return JobState{}, fmt.Errorf("transcribe: decode lookup response for %s: %w", jobName, err)
	}
	return state, nil
}

// transcriptDoc is the transcript document the collaborator writes to the
// object store under the submitted output key.
type transcriptDoc struct {
	Results struct {
		Transcripts []struct {
			Transcript string `json:"transcript"`
		} `json:"transcripts"`
	} `json:"results"`
}

// ParseTranscriptDoc extracts the transcript text from an output document.
// A completed job may still carry empty text (silence, noise-only audio).
func ParseTranscriptDoc(data []byte) (string, error) {
	var doc transcriptDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("transcribe: malformed transcript document: %w", err)
	}
	if len(doc.Results.Transcripts) == 0 {
		return "", nil
	}
	return doc.Results.Transcripts[0].Transcript, nil
}
