package transcript_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"radioeval-service/internal/entity"
	"radioeval-service/internal/transcribe"
	"radioeval-service/internal/transcript"
)

// fakeStore serves transcript documents by output key.
type fakeStore struct {
	objects map[string][]byte
}

func (s *fakeStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, ok := s.objects[key]
	if !ok {
		return nil, fmt.Errorf("no such key: %s", key)
	}
	return data, nil
}

func (s *fakeStore) PresignPut(ctx context.Context, key, contentType string, expiry time.Duration) (string, error) {
	return "https://example.invalid/" + key, nil
}

func (s *fakeStore) URI(key string) string { return "s3://test-bucket/" + key }

// fakeTranscriber resolves each submitted job immediately. Jobs whose stem
// appears in failed report FAILED; the rest complete with the configured
// text written into the store.
type fakeTranscriber struct {
	store      *fakeStore
	transcript map[string]string // stem -> text
	failed     map[string]bool   // stem -> collaborator failure
	submitted  []string
}

func (f *fakeTranscriber) stemOf(jobName string) string {
	parts := strings.SplitN(jobName, "-", 3)
	return parts[len(parts)-1]
}

func (f *fakeTranscriber) Submit(ctx context.Context, req transcribe.SubmitRequest) error {
	f.submitted = append(f.submitted, req.JobName)
	if !f.failed[f.stemOf(req.JobName)] {
		doc := fmt.Sprintf(`{"results":{"transcripts":[{"transcript":%q}]}}`, f.transcript[f.stemOf(req.JobName)])
		f.store.objects[req.OutputKey] = []byte(doc)
	}
	return nil
}

func (f *fakeTranscriber) Lookup(ctx context.Context, jobName string) (transcribe.JobState, error) {
	if f.failed[f.stemOf(jobName)] {
		return transcribe.JobState{JobName: jobName, Status: transcribe.StatusFailed, Reason: "bad audio"}, nil
	}
	return transcribe.JobState{JobName: jobName, Status: transcribe.StatusCompleted}, nil
}

func fastPoll() transcribe.PollPolicy {
	return transcribe.PollPolicy{Interval: time.Millisecond, MaxAttempts: 3}
}

func TestAssemble_MergesInLexicographicKeyOrder(t *testing.T) {
	store := &fakeStore{objects: map[string][]byte{}}
	tr := &fakeTranscriber{store: store, transcript: map[string]string{"1": "Hola", "2": "Copiado"}}
	a := transcript.NewAssembler(store, tr, fastPoll(), "es-ES")

	calls := map[string]entity.CallRecord{
		"1": {ID: "1", CallerID: "101", Duration: 10, Timestamp: "2024-03-01 10:00:00"},
		"2": {ID: "2", CallerID: "102", Duration: 5, Timestamp: "2024-03-01 10:01:00"},
	}
	holders := map[string]entity.Participant{
		"101": {ID: "101", Name: "Central"},
		"102": {ID: "102", Name: "Tren 4"},
	}

	// Keys arrive out of order; the merge must still be lexicographic.
	got, err := a.Assemble(context.Background(), "j1", []string{"a/2.wav", "a/1.wav"}, calls, holders, nil)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	want := "[2024-03-01 10:00:00 - Central]: Hola\n[2024-03-01 10:01:00 - Tren 4]: Copiado"
	if got.Transcript != want {
		t.Fatalf("transcript mismatch:\n got: %q\nwant: %q", got.Transcript, want)
	}
	if got.TotalDuration != 15 {
		t.Fatalf("expected duration 15, got %d", got.TotalDuration)
	}
	if got.Fragments != 2 {
		t.Fatalf("expected 2 fragments, got %d", got.Fragments)
	}
}

func TestAssemble_FailedUnitIsSkipped(t *testing.T) {
	store := &fakeStore{objects: map[string][]byte{}}
	tr := &fakeTranscriber{
		store:      store,
		transcript: map[string]string{"2": "Copiado"},
		failed:     map[string]bool{"1": true},
	}
	a := transcript.NewAssembler(store, tr, fastPoll(), "es-ES")

	var units []int
	got, err := a.Assemble(context.Background(), "j1", []string{"a/1.wav", "a/2.wav"}, nil, nil,
		func(done, total int) { units = append(units, done) })
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}

	if got.Fragments != 1 {
		t.Fatalf("expected 1 fragment, got %d", got.Fragments)
	}
	// Without call metadata the prefix degrades to empty timestamp + Unknown.
	if got.Transcript != "[ - Unknown]: Copiado" {
		t.Fatalf("unexpected transcript: %q", got.Transcript)
	}
	// Progress still advances for the failed unit.
	if len(units) != 2 || units[0] != 1 || units[1] != 2 {
		t.Fatalf("expected unit callbacks [1 2], got %v", units)
	}
}

func TestAssemble_AllUnitsFailedYieldsZeroFragments(t *testing.T) {
	store := &fakeStore{objects: map[string][]byte{}}
	tr := &fakeTranscriber{store: store, failed: map[string]bool{"1": true, "2": true}}
	a := transcript.NewAssembler(store, tr, fastPoll(), "es-ES")

	got, err := a.Assemble(context.Background(), "j1", []string{"a/1.wav", "a/2.wav"}, nil, nil, nil)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got.Fragments != 0 || got.Transcript != "" {
		t.Fatalf("expected empty assembly, got %#v", got)
	}
}

func TestAssemble_EmptyTranscriptContributesNothing(t *testing.T) {
	store := &fakeStore{objects: map[string][]byte{}}
	tr := &fakeTranscriber{store: store, transcript: map[string]string{"1": "", "2": "Copiado"}}
	a := transcript.NewAssembler(store, tr, fastPoll(), "es-ES")

	calls := map[string]entity.CallRecord{
		"1": {ID: "1", Duration: 100},
		"2": {ID: "2", Duration: 5},
	}

	got, err := a.Assemble(context.Background(), "j1", []string{"a/1.wav", "a/2.wav"}, calls, nil, nil)
	if err != nil {
		t.Fatalf("expected nil error, got %v", err)
	}
	if got.Fragments != 1 {
		t.Fatalf("expected 1 fragment, got %d", got.Fragments)
	}
	// Silent unit's call duration must not be counted.
	if got.TotalDuration != 5 {
		t.Fatalf("expected duration 5, got %d", got.TotalDuration)
	}
}
