// Package metadata parses the TETRA session export documents (holders,
// callrefs, recordings) into lookup tables. Parsing is pure: no I/O beyond
// the bytes handed in.
package metadata

import (
	"encoding/xml"
	"fmt"
	"sort"
	"strconv"

	"radioeval-service/internal/entity"
)

// ParseError marks a present-but-malformed document. Callers must treat it
// as a phase failure, not a partial result.
type ParseError struct {
	Doc string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("metadata: malformed %s document: %v", e.Doc, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

type holderXML struct {
	ID   string `xml:"ID,attr"`
	Name string `xml:"Name,attr"`
}

type callRefXML struct {
	TetraCallRef string `xml:"TetraCallRef,attr"`
	CallingID    string `xml:"CallingID,attr"`
	CalledID     string `xml:"CalledID,attr"`
	Duration     string `xml:"Duration,attr"`
	FromDateLoc  string `xml:"FromDateLoc,attr"`
}

type recordingXML struct {
	StartDate string `xml:"StartDate,attr"`
	Duration  string `xml:"Duration,attr"`
	TalkingID string `xml:"TalkingID,attr"`
}

// ParseHolders builds the participants-by-id table. An unnamed holder gets
// the synthesized label "Operator-{id}". Empty input yields an empty table.
func ParseHolders(data []byte) (map[string]entity.Participant, error) {
	holders := map[string]entity.Participant{}
	if len(data) == 0 {
		return holders, nil
	}

	var doc struct {
		Holders []holderXML `xml:"holder"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Doc: "holders", Err: err}
	}

	for _, h := range doc.Holders {
		name := h.Name
		if name == "" {
			name = "Operator-" + h.ID
		}
		holders[h.ID] = entity.Participant{ID: h.ID, Name: name}
	}
	return holders, nil
}

// ParseCallRefs builds the calls-by-reference table. Empty input yields an
// empty table.
func ParseCallRefs(data []byte) (map[string]entity.CallRecord, error) {
	calls := map[string]entity.CallRecord{}
	if len(data) == 0 {
		return calls, nil
	}

	var doc struct {
		CallRefs []callRefXML `xml:"callref"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Doc: "callrefs", Err: err}
	}

	for _, cr := range doc.CallRefs {
		dur, err := parseDuration(cr.Duration)
		if err != nil {
			return nil, &ParseError{Doc: "callrefs", Err: err}
		}
		calls[cr.TetraCallRef] = entity.CallRecord{
			ID:        cr.TetraCallRef,
			CallerID:  cr.CallingID,
			CalledID:  cr.CalledID,
			Duration:  dur,
			Timestamp: cr.FromDateLoc,
		}
	}
	return calls, nil
}

// ParseRecordings extracts the speaking turns of one per-unit recording
// document, in document order. Dangling TalkingIDs are kept as-is; resolving
// them against the holders table is the caller's concern.
func ParseRecordings(data []byte) ([]entity.SpeakingTurn, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var doc struct {
		Recordings []recordingXML `xml:"recording"`
	}
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, &ParseError{Doc: "recordings", Err: err}
	}

	turns := make([]entity.SpeakingTurn, 0, len(doc.Recordings))
	for _, r := range doc.Recordings {
		dur, err := parseDuration(r.Duration)
		if err != nil {
			return nil, &ParseError{Doc: "recordings", Err: err}
		}
		turns = append(turns, entity.SpeakingTurn{
			Start:     r.StartDate,
			Duration:  dur,
			SpeakerID: r.TalkingID,
		})
	}
	return turns, nil
}

// SortTurns orders turns chronologically by start. The sort is stable, so
// turns sharing a start keep their concatenation order.
func SortTurns(turns []entity.SpeakingTurn) {
	sort.SliceStable(turns, func(i, j int) bool {
		return turns[i].Start < turns[j].Start
	})
}

func parseDuration(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	d, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("duration %q: %w", s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("duration %q: negative", s)
	}
	return d, nil
}
