package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/siva-ai/governor/internal/domain/model"
	"github.com/siva-ai/governor/internal/domain/territory"
)

// TerritoryStore implements territory.Store on the sqlite store.
type TerritoryStore struct {
	db *sql.DB
}

// NewTerritoryStore creates a TerritoryStore backed by the given store.
func NewTerritoryStore(s *Store) *TerritoryStore {
	return &TerritoryStore{db: s.DB()}
}

const territoryColumns = `id, slug, name, level, coverage_type, parent_id, sub_verticals`

// GetBySlug returns the territory with the given slug, or nil if none.
func (s *TerritoryStore) GetBySlug(ctx context.Context, slug string) (*territory.Territory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+territoryColumns+` FROM territories WHERE slug = ?`, slug)
	return scanTerritory(row)
}

// GetByID returns the territory with the given ID, or nil if none.
func (s *TerritoryStore) GetByID(ctx context.Context, id string) (*territory.Territory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+territoryColumns+` FROM territories WHERE id = ?`, id)
	return scanTerritory(row)
}

// GetGlobal returns the GLOBAL sentinel node, or nil if none configured.
func (s *TerritoryStore) GetGlobal(ctx context.Context) (*territory.Territory, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+territoryColumns+` FROM territories
		 WHERE level = ? ORDER BY slug LIMIT 1`, string(territory.LevelGlobal))
	return scanTerritory(row)
}

// Save creates or updates a territory node.
func (s *TerritoryStore) Save(ctx context.Context, t *territory.Territory) error {
	subVerticals, err := encodeStrings(t.SubVerticals)
	if err != nil {
		return err
	}
	var parent any
	if t.ParentID != "" {
		parent = t.ParentID
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO territories (`+territoryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			slug = excluded.slug,
			name = excluded.name,
			level = excluded.level,
			coverage_type = excluded.coverage_type,
			parent_id = excluded.parent_id,
			sub_verticals = excluded.sub_verticals`,
		t.ID, t.Slug, t.Name, string(t.Level), t.CoverageType, parent, subVerticals)
	if err != nil {
		return fmt.Errorf("save territory: %w", err)
	}
	return nil
}

func scanTerritory(row *sql.Row) (*territory.Territory, error) {
	var t territory.Territory
	var level, subVerticals string
	var parent sql.NullString
	err := row.Scan(&t.ID, &t.Slug, &t.Name, &level, &t.CoverageType, &parent, &subVerticals)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan territory: %w", err)
	}
	t.Level = territory.Level(level)
	t.ParentID = parent.String
	if t.SubVerticals, err = decodeStrings(subVerticals); err != nil {
		return nil, err
	}
	return &t, nil
}

// ModelStore implements model.Store on the sqlite store.
type ModelStore struct {
	db *sql.DB
}

// NewModelStore creates a ModelStore backed by the given store.
func NewModelStore(s *Store) *ModelStore {
	return &ModelStore{db: s.DB()}
}

const modelColumns = `id, slug, stability_score, avg_latency_ms, cost_per_unit,
	supported_capabilities, disallowed_capabilities, eligible, active`

// ListActive returns all models with eligible and active set.
func (s *ModelStore) ListActive(ctx context.Context) ([]model.Model, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+modelColumns+` FROM models
		 WHERE eligible = 1 AND active = 1 ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query active models: %w", err)
	}
	defer rows.Close()

	var out []model.Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// GetByID returns a model by ID, or nil if none.
func (s *ModelStore) GetByID(ctx context.Context, id string) (*model.Model, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+modelColumns+` FROM models WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query model: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanModel(rows)
}

// GetBySlug returns a model by slug, or nil if none. Used by seeding to
// keep slugs stable across runs.
func (s *ModelStore) GetBySlug(ctx context.Context, slug string) (*model.Model, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+modelColumns+` FROM models WHERE slug = ?`, slug)
	if err != nil {
		return nil, fmt.Errorf("query model: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanModel(rows)
}

// Save creates or updates a model.
func (s *ModelStore) Save(ctx context.Context, m *model.Model) error {
	supported, err := encodeStrings(m.SupportedCapabilities)
	if err != nil {
		return err
	}
	disallowed, err := encodeStrings(m.DisallowedCapabilities)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO models (`+modelColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			slug = excluded.slug,
			stability_score = excluded.stability_score,
			avg_latency_ms = excluded.avg_latency_ms,
			cost_per_unit = excluded.cost_per_unit,
			supported_capabilities = excluded.supported_capabilities,
			disallowed_capabilities = excluded.disallowed_capabilities,
			eligible = excluded.eligible,
			active = excluded.active`,
		m.ID, m.Slug, m.StabilityScore, m.AvgLatencyMS, m.CostPerUnit,
		supported, disallowed, boolToInt(m.Eligible), boolToInt(m.Active))
	if err != nil {
		return fmt.Errorf("save model: %w", err)
	}
	return nil
}

func scanModel(row rowScanner) (*model.Model, error) {
	var m model.Model
	var supported, disallowed string
	var eligible, active int
	err := row.Scan(&m.ID, &m.Slug, &m.StabilityScore, &m.AvgLatencyMS, &m.CostPerUnit,
		&supported, &disallowed, &eligible, &active)
	if err != nil {
		return nil, fmt.Errorf("scan model: %w", err)
	}
	if m.SupportedCapabilities, err = decodeStrings(supported); err != nil {
		return nil, err
	}
	if m.DisallowedCapabilities, err = decodeStrings(disallowed); err != nil {
		return nil, err
	}
	m.Eligible = eligible != 0
	m.Active = active != 0
	return &m, nil
}
