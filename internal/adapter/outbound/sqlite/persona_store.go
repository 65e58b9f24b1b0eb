package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/siva-ai/governor/internal/domain/persona"
)

// PersonaStore implements persona.Store on the sqlite store.
type PersonaStore struct {
	db *sql.DB
}

// NewPersonaStore creates a PersonaStore backed by the given store.
func NewPersonaStore(s *Store) *PersonaStore {
	return &PersonaStore{db: s.DB()}
}

const personaColumns = `id, key, name, mission, decision_lens, sub_vertical_id, region_code, scope, active, created_at`

// GetPersona returns a persona by ID, or nil if not found.
func (s *PersonaStore) GetPersona(ctx context.Context, id string) (*persona.Persona, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+personaColumns+` FROM personas WHERE id = ?`, id)
	return scanPersona(row)
}

// FindPersona returns the active persona for (subVerticalID, scope,
// regionCode), or nil if none exists. regionCode is ignored for GLOBAL.
func (s *PersonaStore) FindPersona(ctx context.Context, subVerticalID string, scope persona.Scope, regionCode string) (*persona.Persona, error) {
	if scope == persona.ScopeGlobal {
		row := s.db.QueryRowContext(ctx,
			`SELECT `+personaColumns+` FROM personas
			 WHERE sub_vertical_id = ? AND scope = ? AND active = 1
			 ORDER BY key LIMIT 1`,
			subVerticalID, string(scope))
		return scanPersona(row)
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+personaColumns+` FROM personas
		 WHERE sub_vertical_id = ? AND scope = ? AND region_code = ? AND active = 1
		 ORDER BY key LIMIT 1`,
		subVerticalID, string(scope), regionCode)
	return scanPersona(row)
}

// GetPersonaByKey returns a persona by its stable key, or nil if not
// found. Used by seeding to keep keys stable across runs.
func (s *PersonaStore) GetPersonaByKey(ctx context.Context, key string) (*persona.Persona, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+personaColumns+` FROM personas WHERE key = ? ORDER BY created_at LIMIT 1`, key)
	return scanPersona(row)
}

// SavePersona creates or updates a persona.
func (s *PersonaStore) SavePersona(ctx context.Context, p *persona.Persona) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO personas (`+personaColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			key = excluded.key,
			name = excluded.name,
			mission = excluded.mission,
			decision_lens = excluded.decision_lens,
			sub_vertical_id = excluded.sub_vertical_id,
			region_code = excluded.region_code,
			scope = excluded.scope,
			active = excluded.active`,
		p.ID, p.Key, p.Name, p.Mission, p.DecisionLens, p.SubVerticalID,
		p.RegionCode, string(p.Scope), boolToInt(p.Active), toMillis(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("save persona: %w", err)
	}
	return nil
}

const policyColumns = `id, persona_id, version, allowed_intents, forbidden_outputs, allowed_tools,
	allowed_capabilities, forbidden_capabilities, max_cost_per_call, max_latency_ms, status, created_at`

// GetActivePolicies returns all ACTIVE policy versions for a persona.
// The schema's partial unique index makes more than one row impossible to
// insert, but the read still reports whatever it finds so integrity
// violations from out-of-band writes surface instead of hiding.
func (s *PersonaStore) GetActivePolicies(ctx context.Context, personaID string) ([]persona.Policy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+policyColumns+` FROM persona_policies
		 WHERE persona_id = ? AND status = ?`,
		personaID, string(persona.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("query active policies: %w", err)
	}
	defer rows.Close()

	var out []persona.Policy
	for rows.Next() {
		p, err := scanPolicyRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// GetPolicy returns a policy version by ID, or nil if not found.
func (s *PersonaStore) GetPolicy(ctx context.Context, id string) (*persona.Policy, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+policyColumns+` FROM persona_policies WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("query policy: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanPolicyRow(rows)
}

// SavePolicy creates a policy version.
func (s *PersonaStore) SavePolicy(ctx context.Context, p *persona.Policy) error {
	intents, err := encodeStrings(p.AllowedIntents)
	if err != nil {
		return err
	}
	outputs, err := encodeStrings(p.ForbiddenOutputs)
	if err != nil {
		return err
	}
	tools, err := encodeStrings(p.AllowedTools)
	if err != nil {
		return err
	}
	allowed, err := encodeStrings(p.AllowedCapabilities)
	if err != nil {
		return err
	}
	forbidden, err := encodeStrings(p.ForbiddenCapabilities)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO persona_policies (`+policyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.PersonaID, p.Version, intents, outputs, tools,
		allowed, forbidden, p.MaxCostPerCall, p.MaxLatencyMS,
		string(p.Status), toMillis(p.CreatedAt))
	if err != nil {
		return fmt.Errorf("save policy: %w", err)
	}
	return nil
}

// ActivatePolicy supersedes the current ACTIVE version and activates the
// given version in one transaction. The partial unique index backstops the
// swap: should two activations race, one of them fails on commit instead
// of leaving two ACTIVE rows.
func (s *PersonaStore) ActivatePolicy(ctx context.Context, personaID, policyID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin activate: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`UPDATE persona_policies SET status = ?
		 WHERE persona_id = ? AND status = ?`,
		string(persona.StatusSuperseded), personaID, string(persona.StatusActive)); err != nil {
		return fmt.Errorf("supersede active policy: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE persona_policies SET status = ?
		 WHERE id = ? AND persona_id = ?`,
		string(persona.StatusActive), policyID, personaID)
	if err != nil {
		return fmt.Errorf("activate policy: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("activate policy rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("policy %s not found for persona %s", policyID, personaID)
	}

	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPersona(row rowScanner) (*persona.Persona, error) {
	var p persona.Persona
	var scope string
	var active int
	var createdAt int64
	err := row.Scan(&p.ID, &p.Key, &p.Name, &p.Mission, &p.DecisionLens,
		&p.SubVerticalID, &p.RegionCode, &scope, &active, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan persona: %w", err)
	}
	p.Scope = persona.Scope(scope)
	p.Active = active != 0
	p.CreatedAt = fromMillis(createdAt)
	return &p, nil
}

func scanPolicyRow(row rowScanner) (*persona.Policy, error) {
	var p persona.Policy
	var intents, outputs, tools, allowed, forbidden, status string
	var createdAt int64
	err := row.Scan(&p.ID, &p.PersonaID, &p.Version, &intents, &outputs, &tools,
		&allowed, &forbidden, &p.MaxCostPerCall, &p.MaxLatencyMS, &status, &createdAt)
	if err != nil {
		return nil, fmt.Errorf("scan policy: %w", err)
	}
	if p.AllowedIntents, err = decodeStrings(intents); err != nil {
		return nil, err
	}
	if p.ForbiddenOutputs, err = decodeStrings(outputs); err != nil {
		return nil, err
	}
	if p.AllowedTools, err = decodeStrings(tools); err != nil {
		return nil, err
	}
	if p.AllowedCapabilities, err = decodeStrings(allowed); err != nil {
		return nil, err
	}
	if p.ForbiddenCapabilities, err = decodeStrings(forbidden); err != nil {
		return nil, err
	}
	p.Status = persona.PolicyStatus(status)
	p.CreatedAt = fromMillis(createdAt)
	return &p, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
