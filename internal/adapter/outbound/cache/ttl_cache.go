// Package cache provides bounded-TTL read-through caches for the
// rarely-changing catalog rows (models, territory tree).
//
// ACTIVE persona policies are deliberately never cached: stale policy data
// past activation is a correctness hazard, so policy reads always hit the
// store. The TTL here must stay below the deployment's policy-propagation
// bound; config validation enforces that.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/siva-ai/governor/internal/domain/model"
	"github.com/siva-ai/governor/internal/domain/territory"
)

// entry is one cached value with its expiry deadline.
type entry struct {
	value    any
	deadline time.Time
}

// ttlMap is a small concurrent map with per-entry TTL. Expired entries are
// dropped lazily on read and wholesale when the map exceeds maxEntries.
type ttlMap struct {
	mu         sync.RWMutex
	entries    map[uint64]entry
	ttl        time.Duration
	maxEntries int
	now        func() time.Time
}

func newTTLMap(ttl time.Duration, maxEntries int) *ttlMap {
	return &ttlMap{
		entries:    make(map[uint64]entry),
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
	}
}

func (m *ttlMap) get(key uint64) (any, bool) {
	m.mu.RLock()
	e, ok := m.entries[key]
	m.mu.RUnlock()
	if !ok || m.now().After(e.deadline) {
		return nil, false
	}
	return e.value, true
}

func (m *ttlMap) put(key uint64, value any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) >= m.maxEntries {
		// Cheap full sweep: drop expired entries first, and if everything
		// is still live just reset. Catalog keyspaces are tiny.
		now := m.now()
		for k, e := range m.entries {
			if now.After(e.deadline) {
				delete(m.entries, k)
			}
		}
		if len(m.entries) >= m.maxEntries {
			m.entries = make(map[uint64]entry)
		}
	}
	m.entries[key] = entry{value: value, deadline: m.now().Add(m.ttl)}
}

func (m *ttlMap) invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[uint64]entry)
}

func keyFor(kind, id string) uint64 {
	h := xxhash.New()
	_, _ = h.WriteString(kind)
	_, _ = h.WriteString("\x00")
	_, _ = h.WriteString(id)
	return h.Sum64()
}

// ModelStore is a read-through TTL cache over a model.Store.
type ModelStore struct {
	inner model.Store
	cache *ttlMap
}

// NewModelStore wraps inner with a TTL cache of at most maxEntries rows.
func NewModelStore(inner model.Store, ttl time.Duration, maxEntries int) *ModelStore {
	return &ModelStore{inner: inner, cache: newTTLMap(ttl, maxEntries)}
}

// ListActive returns the active model list, cached under one key.
func (s *ModelStore) ListActive(ctx context.Context) ([]model.Model, error) {
	key := keyFor("models", "active")
	if v, ok := s.cache.get(key); ok {
		return v.([]model.Model), nil
	}
	models, err := s.inner.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.put(key, models)
	return models, nil
}

// GetByID returns a model by ID through the cache.
func (s *ModelStore) GetByID(ctx context.Context, id string) (*model.Model, error) {
	key := keyFor("model", id)
	if v, ok := s.cache.get(key); ok {
		return v.(*model.Model), nil
	}
	m, err := s.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m != nil {
		s.cache.put(key, m)
	}
	return m, nil
}

// Save writes through and invalidates the cache.
func (s *ModelStore) Save(ctx context.Context, m *model.Model) error {
	if err := s.inner.Save(ctx, m); err != nil {
		return err
	}
	s.cache.invalidate()
	return nil
}

// TerritoryStore is a read-through TTL cache over a territory.Store.
type TerritoryStore struct {
	inner territory.Store
	cache *ttlMap
}

// NewTerritoryStore wraps inner with a TTL cache of at most maxEntries
// rows.
func NewTerritoryStore(inner territory.Store, ttl time.Duration, maxEntries int) *TerritoryStore {
	return &TerritoryStore{inner: inner, cache: newTTLMap(ttl, maxEntries)}
}

// GetBySlug returns a territory by slug through the cache.
func (s *TerritoryStore) GetBySlug(ctx context.Context, slug string) (*territory.Territory, error) {
	key := keyFor("territory-slug", slug)
	if v, ok := s.cache.get(key); ok {
		return v.(*territory.Territory), nil
	}
	t, err := s.inner.GetBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	if t != nil {
		s.cache.put(key, t)
	}
	return t, nil
}

// GetByID returns a territory by ID through the cache.
func (s *TerritoryStore) GetByID(ctx context.Context, id string) (*territory.Territory, error) {
	key := keyFor("territory-id", id)
	if v, ok := s.cache.get(key); ok {
		return v.(*territory.Territory), nil
	}
	t, err := s.inner.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if t != nil {
		s.cache.put(key, t)
	}
	return t, nil
}

// GetGlobal returns the GLOBAL sentinel node through the cache.
func (s *TerritoryStore) GetGlobal(ctx context.Context) (*territory.Territory, error) {
	key := keyFor("territory", "global")
	if v, ok := s.cache.get(key); ok {
		return v.(*territory.Territory), nil
	}
	t, err := s.inner.GetGlobal(ctx)
	if err != nil {
		return nil, err
	}
	if t != nil {
		s.cache.put(key, t)
	}
	return t, nil
}

// Save writes through and invalidates the cache.
func (s *TerritoryStore) Save(ctx context.Context, t *territory.Territory) error {
	if err := s.inner.Save(ctx, t); err != nil {
		return err
	}
	s.cache.invalidate()
	return nil
}
