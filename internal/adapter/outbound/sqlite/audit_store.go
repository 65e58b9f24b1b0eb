package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/siva-ai/governor/internal/domain/audit"
	"github.com/siva-ai/governor/internal/domain/gate"
)

// DenialStore implements audit.DenialStore on the sqlite store.
// Append-only: there is no update or delete path.
type DenialStore struct {
	db *sql.DB
}

// NewDenialStore creates a DenialStore backed by the given store.
func NewDenialStore(s *Store) *DenialStore {
	return &DenialStore{db: s.DB()}
}

// Insert persists a denial record.
func (s *DenialStore) Insert(ctx context.Context, d *audit.Denial) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO capability_denials
			(id, persona_id, capability_key, reason, context, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		d.ID, d.PersonaID, d.CapabilityKey, d.Reason, d.Context, toMillis(d.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert denial: %w", err)
	}
	return nil
}

// List returns denials, newest first, up to limit.
func (s *DenialStore) List(ctx context.Context, limit int) ([]audit.Denial, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, persona_id, capability_key, reason, context, created_at
		FROM capability_denials ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query denials: %w", err)
	}
	defer rows.Close()

	var out []audit.Denial
	for rows.Next() {
		var d audit.Denial
		var createdAt int64
		if err := rows.Scan(&d.ID, &d.PersonaID, &d.CapabilityKey, &d.Reason,
			&d.Context, &createdAt); err != nil {
			return nil, fmt.Errorf("scan denial: %w", err)
		}
		d.CreatedAt = fromMillis(createdAt)
		out = append(out, d)
	}
	return out, rows.Err()
}

// ViolationStore implements gate.Store on the sqlite store.
type ViolationStore struct {
	db *sql.DB
}

// NewViolationStore creates a ViolationStore backed by the given store.
func NewViolationStore(s *Store) *ViolationStore {
	return &ViolationStore{db: s.DB()}
}

// Insert persists a violation.
func (s *ViolationStore) Insert(ctx context.Context, v *gate.Violation) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO gate_violations
			(id, source, endpoint, tenant_id, workspace_id, user_id, code, message,
			 resolution, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Source, v.Endpoint, v.TenantID, v.WorkspaceID, v.UserID,
		string(v.Code), v.Message, string(v.Resolution), toMillis(v.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert gate violation: %w", err)
	}
	return nil
}

// List returns violations, newest first, up to limit.
func (s *ViolationStore) List(ctx context.Context, limit int) ([]gate.Violation, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, endpoint, tenant_id, workspace_id, user_id, code, message,
		       resolution, created_at
		FROM gate_violations ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query gate violations: %w", err)
	}
	defer rows.Close()

	var out []gate.Violation
	for rows.Next() {
		var v gate.Violation
		var code, resolution string
		var createdAt int64
		if err := rows.Scan(&v.ID, &v.Source, &v.Endpoint, &v.TenantID, &v.WorkspaceID,
			&v.UserID, &code, &v.Message, &resolution, &createdAt); err != nil {
			return nil, fmt.Errorf("scan gate violation: %w", err)
		}
		v.Code = gate.ViolationCode(code)
		v.Resolution = gate.ResolutionStatus(resolution)
		v.CreatedAt = fromMillis(createdAt)
		out = append(out, v)
	}
	return out, rows.Err()
}

// SetResolution updates operator follow-up on a violation.
func (s *ViolationStore) SetResolution(ctx context.Context, id string, status gate.ResolutionStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE gate_violations SET resolution = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("set violation resolution: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set violation resolution rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("violation %s not found", id)
	}
	return nil
}
