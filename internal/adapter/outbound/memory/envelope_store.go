package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/siva-ai/governor/internal/domain/envelope"
	"github.com/siva-ai/governor/internal/domain/replay"
	"github.com/siva-ai/governor/internal/domain/routing"
)

// EnvelopeStore implements envelope.Store with in-memory maps. Sealed
// content is never rewritten: only Status and OutputHash may change after
// insert, mirroring the persistent store's column-level immutability.
type EnvelopeStore struct {
	mu     sync.RWMutex
	byID   map[string]*envelope.Envelope
	byHash map[string]string // hash -> ID
}

// NewEnvelopeStore creates an empty in-memory envelope store.
func NewEnvelopeStore() *EnvelopeStore {
	return &EnvelopeStore{
		byID:   make(map[string]*envelope.Envelope),
		byHash: make(map[string]string),
	}
}

// Insert persists a newly sealed envelope.
func (s *EnvelopeStore) Insert(_ context.Context, e *envelope.Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[e.ID]; exists {
		return fmt.Errorf("envelope %s already sealed", e.ID)
	}
	if _, exists := s.byHash[e.SHA256Hash]; exists {
		return fmt.Errorf("envelope hash %s already sealed", e.SHA256Hash)
	}
	s.byID[e.ID] = copyEnvelope(e)
	s.byHash[e.SHA256Hash] = e.ID
	return nil
}

// GetByID returns an envelope by UUID, or nil if none.
func (s *EnvelopeStore) GetByID(_ context.Context, id string) (*envelope.Envelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return nil, nil
	}
	return copyEnvelope(e), nil
}

// GetByHash returns an envelope by its sha256 hash, or nil if none.
func (s *EnvelopeStore) GetByHash(_ context.Context, hash string) (*envelope.Envelope, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byHash[hash]
	if !ok {
		return nil, nil
	}
	return copyEnvelope(s.byID[id]), nil
}

// SetStatus transitions the lifecycle status. Content is untouched.
func (s *EnvelopeStore) SetStatus(_ context.Context, id string, status envelope.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("envelope %s not found", id)
	}
	e.Status = status
	return nil
}

// SetOutputHash records the original execution output hash, once.
func (s *EnvelopeStore) SetOutputHash(_ context.Context, id, outputHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.byID[id]
	if !ok {
		return fmt.Errorf("envelope %s not found", id)
	}
	if e.OutputHash != "" {
		return fmt.Errorf("envelope %s already has a recorded output hash", id)
	}
	e.OutputHash = outputHash
	return nil
}

// IDs returns all stored envelope IDs. Test hook.
func (s *EnvelopeStore) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.byID))
	for id := range s.byID {
		out = append(out, id)
	}
	return out
}

func copyEnvelope(e *envelope.Envelope) *envelope.Envelope {
	cp := *e
	cp.ResolutionPath = append([]string{}, e.ResolutionPath...)
	cp.Content = append([]byte{}, e.Content...)
	return &cp
}

// RoutingStore implements routing.Store with an append-only slice.
type RoutingStore struct {
	mu        sync.RWMutex
	decisions []routing.Decision
}

// NewRoutingStore creates an empty in-memory routing decision store.
func NewRoutingStore() *RoutingStore {
	return &RoutingStore{}
}

// Insert persists a decision. Decisions are never updated.
func (s *RoutingStore) Insert(_ context.Context, d *routing.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	cp.Alternatives = append([]routing.Alternative{}, d.Alternatives...)
	s.decisions = append(s.decisions, cp)
	return nil
}

// ListByEnvelopeHash returns decisions linked to an envelope hash.
func (s *RoutingStore) ListByEnvelopeHash(_ context.Context, hash string) ([]routing.Decision, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []routing.Decision
	for _, d := range s.decisions {
		if d.EnvelopeHash == hash {
			out = append(out, d)
		}
	}
	return out, nil
}

// ReplayStore implements replay.Store with an in-memory map.
type ReplayStore struct {
	mu       sync.RWMutex
	attempts map[string]*replay.Attempt
}

// NewReplayStore creates an empty in-memory replay store.
func NewReplayStore() *ReplayStore {
	return &ReplayStore{attempts: make(map[string]*replay.Attempt)}
}

// Insert persists a new PENDING attempt.
func (s *ReplayStore) Insert(_ context.Context, a *replay.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *a
	s.attempts[a.ID] = &cp
	return nil
}

// Get returns an attempt by ID, or nil if none.
func (s *ReplayStore) Get(_ context.Context, id string) (*replay.Attempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attempts[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

// Complete transitions a PENDING attempt to its terminal status.
func (s *ReplayStore) Complete(_ context.Context, a *replay.Attempt) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.attempts[a.ID]
	if !ok {
		return fmt.Errorf("replay attempt %s not found", a.ID)
	}
	if stored.Status != replay.StatusPending {
		return fmt.Errorf("replay attempt %s already terminal", a.ID)
	}
	cp := *a
	s.attempts[a.ID] = &cp
	return nil
}
