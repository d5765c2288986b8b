// Package eventstore records poll outcomes per material in SQLite and
// rebuilds the last seen revision of each material from them.
package eventstore

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"
)

// MaterialState is the read model of one material.
type MaterialState struct {
	Material       string    `json:"material"`
	LatestRevision string    `json:"latest_revision,omitempty"`
	LatestAt       time.Time `json:"latest_at,omitzero"`
	DetectedTotal  int       `json:"detected_total"`
	LastPollAt     time.Time `json:"last_poll_at,omitzero"`
	LastJobID      string    `json:"last_job_id,omitempty"`
	// ConsecutiveFailures resets on the next detection.
	ConsecutiveFailures int    `json:"consecutive_failures"`
	LastError           string `json:"last_error,omitempty"`
}

// LatestRevisionProjection maintains the last seen revision of every
// material, reconstructed from the events in the store.
type LatestRevisionProjection struct {
	mu        sync.RWMutex
	store     Store
	materials map[string]*MaterialState
	lastSync  time.Time
}

// NewLatestRevisionProjection creates a projection backed by store.
func NewLatestRevisionProjection(store Store) *LatestRevisionProjection {
	return &LatestRevisionProjection{
		store:     store,
		materials: make(map[string]*MaterialState),
	}
}

// Rebuild reconstructs the projection from all events in the store.
// This is typically called at startup.
func (p *LatestRevisionProjection) Rebuild(ctx context.Context) error {
	events, err := p.store.GetAll(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.materials = make(map[string]*MaterialState)
	for _, event := range events {
		p.applyEventLocked(event)
	}
	p.lastSync = time.Now()
	return nil
}

// Apply processes a single event as it is emitted.
func (p *LatestRevisionProjection) Apply(event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.applyEventLocked(event)
}

func (p *LatestRevisionProjection) applyEventLocked(event Event) {
	name := event.Material()
	if name == "" {
		return
	}
	state, ok := p.materials[name]
	if !ok {
		state = &MaterialState{Material: name}
		p.materials[name] = state
	}
	state.LastPollAt = event.Timestamp()
	state.LastJobID = event.JobID()

	switch event.Type() {
	case TypeRevisionsDetected:
		var payload struct {
			Revisions []RevisionRef `json:"revisions"`
		}
		if err := json.Unmarshal(event.Payload(), &payload); err != nil || len(payload.Revisions) == 0 {
			return
		}
		state.LatestRevision = payload.Revisions[0].SHA
		state.LatestAt = payload.Revisions[0].Timestamp
		state.DetectedTotal += len(payload.Revisions)
		state.ConsecutiveFailures = 0
		state.LastError = ""

	case TypeSyncFailed:
		var payload struct {
			Error string `json:"error"`
		}
		if err := json.Unmarshal(event.Payload(), &payload); err == nil {
			state.LastError = payload.Error
		}
		state.ConsecutiveFailures++
	}
}

// LatestRevision returns the last revision seen for material.
func (p *LatestRevisionProjection) LatestRevision(material string) (string, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	state, ok := p.materials[material]
	if !ok || state.LatestRevision == "" {
		return "", false
	}
	return state.LatestRevision, true
}

// Get returns a copy of the state of material.
func (p *LatestRevisionProjection) Get(material string) (MaterialState, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	state, ok := p.materials[material]
	if !ok {
		return MaterialState{}, false
	}
	return *state, true
}

// All returns copies of every material state sorted by name.
func (p *LatestRevisionProjection) All() []MaterialState {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]MaterialState, 0, len(p.materials))
	for _, s := range p.materials {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Material < out[j].Material })
	return out
}

// LastSync reports when Rebuild last completed.
func (p *LatestRevisionProjection) LastSync() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.lastSync
}
