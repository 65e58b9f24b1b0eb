package memory

import (
	"context"
	"sync"

	"github.com/siva-ai/governor/internal/domain/model"
	"github.com/siva-ai/governor/internal/domain/territory"
)

// TerritoryStore implements territory.Store with an in-memory map.
type TerritoryStore struct {
	mu     sync.RWMutex
	bySlug map[string]*territory.Territory
}

// NewTerritoryStore creates an empty in-memory territory store.
func NewTerritoryStore() *TerritoryStore {
	return &TerritoryStore{bySlug: make(map[string]*territory.Territory)}
}

// GetBySlug returns the territory with the given slug, or nil if none.
func (s *TerritoryStore) GetBySlug(_ context.Context, slug string) (*territory.Territory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.bySlug[slug]
	if !ok {
		return nil, nil
	}
	return copyTerritory(t), nil
}

// GetByID returns the territory with the given ID, or nil if none.
func (s *TerritoryStore) GetByID(_ context.Context, id string) (*territory.Territory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.bySlug {
		if t.ID == id {
			return copyTerritory(t), nil
		}
	}
	return nil, nil
}

// GetGlobal returns the GLOBAL sentinel node, or nil if none configured.
func (s *TerritoryStore) GetGlobal(_ context.Context) (*territory.Territory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.bySlug {
		if t.Level == territory.LevelGlobal {
			return copyTerritory(t), nil
		}
	}
	return nil, nil
}

// Save creates or updates a territory node.
func (s *TerritoryStore) Save(_ context.Context, t *territory.Territory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bySlug[t.Slug] = copyTerritory(t)
	return nil
}

func copyTerritory(t *territory.Territory) *territory.Territory {
	cp := *t
	cp.SubVerticals = append([]string{}, t.SubVerticals...)
	return &cp
}

// ModelStore implements model.Store with an in-memory map.
type ModelStore struct {
	mu     sync.RWMutex
	models map[string]*model.Model
}

// NewModelStore creates an empty in-memory model store.
func NewModelStore() *ModelStore {
	return &ModelStore{models: make(map[string]*model.Model)}
}

// ListActive returns all models with Eligible and Active set.
func (s *ModelStore) ListActive(_ context.Context) ([]model.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Model
	for _, m := range s.models {
		if m.Eligible && m.Active {
			out = append(out, *copyModel(m))
		}
	}
	return out, nil
}

// GetByID returns a model by ID, or nil if none.
func (s *ModelStore) GetByID(_ context.Context, id string) (*model.Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[id]
	if !ok {
		return nil, nil
	}
	return copyModel(m), nil
}

// Save creates or updates a model.
func (s *ModelStore) Save(_ context.Context, m *model.Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[m.ID] = copyModel(m)
	return nil
}

func copyModel(m *model.Model) *model.Model {
	cp := *m
	cp.SupportedCapabilities = append([]string{}, m.SupportedCapabilities...)
	cp.DisallowedCapabilities = append([]string{}, m.DisallowedCapabilities...)
	return &cp
}
