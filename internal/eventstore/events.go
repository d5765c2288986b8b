package eventstore

import (
	"encoding/json"
	"time"
)

// Event type names.
const (
	TypeRevisionsDetected = "RevisionsDetected"
	TypeSyncFailed        = "SyncFailed"
)

// RevisionRef is the part of a revision kept in the event log.
type RevisionRef struct {
	SHA       string    `json:"sha"`
	Timestamp time.Time `json:"timestamp"`
	Author    string    `json:"author"`
	Comment   string    `json:"comment"`
	Files     int       `json:"files"`
}

// RevisionsDetected is emitted when a poll finds revisions touching the
// material's paths that were not seen before. Revisions are newest first.
type RevisionsDetected struct {
	BaseEvent
	Previous  string        `json:"previous,omitempty"`
	Revisions []RevisionRef `json:"revisions"`
}

// NewRevisionsDetected creates a RevisionsDetected event.
func NewRevisionsDetected(jobID, material, previous string, revisions []RevisionRef) (*RevisionsDetected, error) {
	payload, err := json.Marshal(map[string]any{
		"previous":  previous,
		"revisions": revisions,
	})
	if err != nil {
		return nil, storeError(err, msgMarshal).
			WithContext("type", TypeRevisionsDetected).
			Build()
	}
	return &RevisionsDetected{
		BaseEvent: BaseEvent{
			EventJobID:     jobID,
			EventMaterial:  material,
			EventType:      TypeRevisionsDetected,
			EventTimestamp: time.Now(),
			EventPayload:   payload,
		},
		Previous:  previous,
		Revisions: revisions,
	}, nil
}

// Latest returns the newest detected revision.
func (e *RevisionsDetected) Latest() (RevisionRef, bool) {
	if len(e.Revisions) == 0 {
		return RevisionRef{}, false
	}
	return e.Revisions[0], true
}

// SyncFailed is emitted when a poll gives up on a material.
type SyncFailed struct {
	BaseEvent
	Category string `json:"category"`
	Error    string `json:"error"`
	Attempts int    `json:"attempts"`
}

// NewSyncFailed creates a SyncFailed event. message must already be redacted.
func NewSyncFailed(jobID, material, category, message string, attempts int) (*SyncFailed, error) {
	payload, err := json.Marshal(map[string]any{
		"category": category,
		"error":    message,
		"attempts": attempts,
	})
	if err != nil {
		return nil, storeError(err, msgMarshal).
			WithContext("type", TypeSyncFailed).
			Build()
	}
	return &SyncFailed{
		BaseEvent: BaseEvent{
			EventJobID:     jobID,
			EventMaterial:  material,
			EventType:      TypeSyncFailed,
			EventTimestamp: time.Now(),
			EventPayload:   payload,
		},
		Category: category,
		Error:    message,
		Attempts: attempts,
	}, nil
}
