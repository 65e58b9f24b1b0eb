// Package memory provides in-memory store implementations for development
// and testing. All stores are safe for concurrent use and return copies to
// prevent external mutation.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/siva-ai/governor/internal/domain/persona"
)

// PersonaStore implements persona.Store with in-memory maps.
type PersonaStore struct {
	mu       sync.RWMutex
	personas map[string]*persona.Persona // ID -> persona
	policies map[string]*persona.Policy  // ID -> policy version
}

// NewPersonaStore creates an empty in-memory persona store.
func NewPersonaStore() *PersonaStore {
	return &PersonaStore{
		personas: make(map[string]*persona.Persona),
		policies: make(map[string]*persona.Policy),
	}
}

// GetPersona returns a persona by ID, or nil if not found.
func (s *PersonaStore) GetPersona(_ context.Context, id string) (*persona.Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.personas[id]
	if !ok {
		return nil, nil
	}
	return copyPersona(p), nil
}

// FindPersona returns the active persona for (subVerticalID, scope,
// regionCode), or nil if none exists.
func (s *PersonaStore) FindPersona(_ context.Context, subVerticalID string, scope persona.Scope, regionCode string) (*persona.Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.personas {
		if !p.Active || p.SubVerticalID != subVerticalID || p.Scope != scope {
			continue
		}
		if scope != persona.ScopeGlobal && p.RegionCode != regionCode {
			continue
		}
		return copyPersona(p), nil
	}
	return nil, nil
}

// SavePersona creates or updates a persona.
func (s *PersonaStore) SavePersona(_ context.Context, p *persona.Persona) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.personas[p.ID] = copyPersona(p)
	return nil
}

// GetActivePolicies returns all ACTIVE policy versions for a persona.
func (s *PersonaStore) GetActivePolicies(_ context.Context, personaID string) ([]persona.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []persona.Policy
	for _, pol := range s.policies {
		if pol.PersonaID == personaID && pol.Status == persona.StatusActive {
			out = append(out, *copyPolicy(pol))
		}
	}
	return out, nil
}

// GetPolicy returns a policy version by ID, or nil if not found.
func (s *PersonaStore) GetPolicy(_ context.Context, id string) (*persona.Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pol, ok := s.policies[id]
	if !ok {
		return nil, nil
	}
	return copyPolicy(pol), nil
}

// SavePolicy creates a policy version.
func (s *PersonaStore) SavePolicy(_ context.Context, p *persona.Policy) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policies[p.ID] = copyPolicy(p)
	return nil
}

// ActivatePolicy supersedes the current ACTIVE version and activates the
// given one under a single lock, so no reader observes two ACTIVE versions.
func (s *PersonaStore) ActivatePolicy(_ context.Context, personaID, policyID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, ok := s.policies[policyID]
	if !ok || target.PersonaID != personaID {
		return fmt.Errorf("policy %s not found for persona %s", policyID, personaID)
	}
	for _, pol := range s.policies {
		if pol.PersonaID == personaID && pol.Status == persona.StatusActive {
			pol.Status = persona.StatusSuperseded
		}
	}
	target.Status = persona.StatusActive
	return nil
}

// AddActivePolicyUnchecked inserts a policy bypassing the single-active
// swap. Test hook for exercising MULTIPLE_ACTIVE_POLICIES surfacing.
func (s *PersonaStore) AddActivePolicyUnchecked(p *persona.Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := copyPolicy(p)
	cp.Status = persona.StatusActive
	s.policies[p.ID] = cp
}

func copyPersona(p *persona.Persona) *persona.Persona {
	cp := *p
	return &cp
}

func copyPolicy(p *persona.Policy) *persona.Policy {
	cp := *p
	cp.AllowedIntents = append([]string{}, p.AllowedIntents...)
	cp.ForbiddenOutputs = append([]string{}, p.ForbiddenOutputs...)
	cp.AllowedTools = append([]string{}, p.AllowedTools...)
	cp.AllowedCapabilities = append([]string{}, p.AllowedCapabilities...)
	cp.ForbiddenCapabilities = append([]string{}, p.ForbiddenCapabilities...)
	return &cp
}
