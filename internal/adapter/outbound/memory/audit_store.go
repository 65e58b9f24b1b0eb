package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/siva-ai/governor/internal/domain/audit"
	"github.com/siva-ai/governor/internal/domain/gate"
)

// DenialStore implements audit.DenialStore with an append-only slice.
type DenialStore struct {
	mu      sync.RWMutex
	denials []audit.Denial
}

// NewDenialStore creates an empty in-memory denial store.
func NewDenialStore() *DenialStore {
	return &DenialStore{}
}

// Insert persists a denial record.
func (s *DenialStore) Insert(_ context.Context, d *audit.Denial) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.denials = append(s.denials, *d)
	return nil
}

// List returns denials, newest first, up to limit.
func (s *DenialStore) List(_ context.Context, limit int) ([]audit.Denial, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Denial
	for i := len(s.denials) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.denials[i])
	}
	return out, nil
}

// ViolationStore implements gate.Store with an in-memory slice.
type ViolationStore struct {
	mu         sync.RWMutex
	violations []gate.Violation
}

// NewViolationStore creates an empty in-memory violation store.
func NewViolationStore() *ViolationStore {
	return &ViolationStore{}
}

// Insert persists a violation.
func (s *ViolationStore) Insert(_ context.Context, v *gate.Violation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.violations = append(s.violations, *v)
	return nil
}

// List returns violations, newest first, up to limit.
func (s *ViolationStore) List(_ context.Context, limit int) ([]gate.Violation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []gate.Violation
	for i := len(s.violations) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.violations[i])
	}
	return out, nil
}

// SetResolution updates operator follow-up on a violation.
func (s *ViolationStore) SetResolution(_ context.Context, id string, status gate.ResolutionStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.violations {
		if s.violations[i].ID == id {
			s.violations[i].Resolution = status
			return nil
		}
	}
	return fmt.Errorf("violation %s not found", id)
}
