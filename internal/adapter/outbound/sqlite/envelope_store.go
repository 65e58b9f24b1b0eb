package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/siva-ai/governor/internal/domain/envelope"
	"github.com/siva-ai/governor/internal/domain/replay"
	"github.com/siva-ai/governor/internal/domain/routing"
)

// EnvelopeStore implements envelope.Store on the sqlite store. Content
// columns are insert-only; the only UPDATE statements touch status and
// output_hash.
type EnvelopeStore struct {
	db *sql.DB
}

// NewEnvelopeStore creates an EnvelopeStore backed by the given store.
func NewEnvelopeStore(s *Store) *EnvelopeStore {
	return &EnvelopeStore{db: s.DB()}
}

const envelopeColumns = `id, schema_version, sha256_hash, tenant_id, workspace_id, persona_id,
	policy_id, policy_version, territory_id, resolution_path, content, status, output_hash,
	sealed_at, expires_at`

// Insert persists a newly sealed envelope.
func (s *EnvelopeStore) Insert(ctx context.Context, e *envelope.Envelope) error {
	path, err := encodeStrings(e.ResolutionPath)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO envelopes (`+envelopeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.SchemaVersion, e.SHA256Hash, e.TenantID, e.WorkspaceID, e.PersonaID,
		e.PolicyID, e.PolicyVersion, e.TerritoryID, path, e.Content, string(e.Status),
		e.OutputHash, toMillis(e.SealedAt), toMillis(e.ExpiresAt))
	if err != nil {
		return fmt.Errorf("insert envelope: %w", err)
	}
	return nil
}

// GetByID returns an envelope by UUID, or nil if none.
func (s *EnvelopeStore) GetByID(ctx context.Context, id string) (*envelope.Envelope, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+envelopeColumns+` FROM envelopes WHERE id = ?`, id)
	return scanEnvelope(row)
}

// GetByHash returns an envelope by its sha256 hash, or nil if none.
func (s *EnvelopeStore) GetByHash(ctx context.Context, hash string) (*envelope.Envelope, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+envelopeColumns+` FROM envelopes WHERE sha256_hash = ?`, hash)
	return scanEnvelope(row)
}

// SetStatus transitions the lifecycle status. Content columns are
// untouched.
func (s *EnvelopeStore) SetStatus(ctx context.Context, id string, status envelope.Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE envelopes SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("set envelope status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set envelope status rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("envelope %s not found", id)
	}
	return nil
}

// SetOutputHash records the original execution output hash, once. The
// guard in the WHERE clause rejects a second write.
func (s *EnvelopeStore) SetOutputHash(ctx context.Context, id, outputHash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE envelopes SET output_hash = ? WHERE id = ? AND output_hash = ''`,
		outputHash, id)
	if err != nil {
		return fmt.Errorf("set output hash: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set output hash rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("envelope %s not found or output hash already recorded", id)
	}
	return nil
}

func scanEnvelope(row *sql.Row) (*envelope.Envelope, error) {
	var e envelope.Envelope
	var path, status string
	var sealedAt, expiresAt int64
	err := row.Scan(&e.ID, &e.SchemaVersion, &e.SHA256Hash, &e.TenantID, &e.WorkspaceID,
		&e.PersonaID, &e.PolicyID, &e.PolicyVersion, &e.TerritoryID, &path, &e.Content,
		&status, &e.OutputHash, &sealedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan envelope: %w", err)
	}
	if e.ResolutionPath, err = decodeStrings(path); err != nil {
		return nil, err
	}
	e.Status = envelope.Status(status)
	e.SealedAt = fromMillis(sealedAt)
	e.ExpiresAt = fromMillis(expiresAt)
	return &e, nil
}

// RoutingStore implements routing.Store on the sqlite store. Append-only.
type RoutingStore struct {
	db *sql.DB
}

// NewRoutingStore creates a RoutingStore backed by the given store.
func NewRoutingStore(s *Store) *RoutingStore {
	return &RoutingStore{db: s.DB()}
}

// Insert persists a decision. Decisions are never updated.
func (s *RoutingStore) Insert(ctx context.Context, d *routing.Decision) error {
	alts, err := json.Marshal(d.Alternatives)
	if err != nil {
		return fmt.Errorf("marshal alternatives: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO routing_decisions
			(id, capability_key, persona_id, envelope_hash, model_id, model_slug,
			 score, formula_version, cost_estimate, latency_class, alternatives, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.CapabilityKey, d.PersonaID, d.EnvelopeHash, d.ModelID, d.ModelSlug,
		d.Score, d.FormulaVersion, d.CostEstimate, string(d.LatencyClass),
		string(alts), toMillis(d.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert routing decision: %w", err)
	}
	return nil
}

// ListByEnvelopeHash returns decisions linked to an envelope hash.
func (s *RoutingStore) ListByEnvelopeHash(ctx context.Context, hash string) ([]routing.Decision, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, capability_key, persona_id, envelope_hash, model_id, model_slug,
		       score, formula_version, cost_estimate, latency_class, alternatives, created_at
		FROM routing_decisions WHERE envelope_hash = ? ORDER BY created_at`, hash)
	if err != nil {
		return nil, fmt.Errorf("query routing decisions: %w", err)
	}
	defer rows.Close()

	var out []routing.Decision
	for rows.Next() {
		var d routing.Decision
		var latencyClass, alts string
		var createdAt int64
		if err := rows.Scan(&d.ID, &d.CapabilityKey, &d.PersonaID, &d.EnvelopeHash,
			&d.ModelID, &d.ModelSlug, &d.Score, &d.FormulaVersion, &d.CostEstimate,
			&latencyClass, &alts, &createdAt); err != nil {
			return nil, fmt.Errorf("scan routing decision: %w", err)
		}
		if err := json.Unmarshal([]byte(alts), &d.Alternatives); err != nil {
			return nil, fmt.Errorf("unmarshal alternatives: %w", err)
		}
		d.LatencyClass = routing.LatencyClass(latencyClass)
		d.CreatedAt = fromMillis(createdAt)
		out = append(out, d)
	}
	return out, rows.Err()
}

// ReplayStore implements replay.Store on the sqlite store.
type ReplayStore struct {
	db *sql.DB
}

// NewReplayStore creates a ReplayStore backed by the given store.
func NewReplayStore(s *Store) *ReplayStore {
	return &ReplayStore{db: s.DB()}
}

const replayColumns = `id, envelope_id, envelope_hash, status, original_output_hash,
	replay_output_hash, drift_details, context, created_at, completed_at`

// Insert persists a new PENDING attempt.
func (s *ReplayStore) Insert(ctx context.Context, a *replay.Attempt) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO replay_attempts (`+replayColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.EnvelopeID, a.EnvelopeHash, string(a.Status), a.OriginalOutputHash,
		a.ReplayOutputHash, a.DriftDetails, a.Context, toMillis(a.CreatedAt),
		toMillis(a.CompletedAt))
	if err != nil {
		return fmt.Errorf("insert replay attempt: %w", err)
	}
	return nil
}

// Get returns an attempt by ID, or nil if none.
func (s *ReplayStore) Get(ctx context.Context, id string) (*replay.Attempt, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+replayColumns+` FROM replay_attempts WHERE id = ?`, id)

	var a replay.Attempt
	var status string
	var createdAt, completedAt int64
	err := row.Scan(&a.ID, &a.EnvelopeID, &a.EnvelopeHash, &status, &a.OriginalOutputHash,
		&a.ReplayOutputHash, &a.DriftDetails, &a.Context, &createdAt, &completedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan replay attempt: %w", err)
	}
	a.Status = replay.Status(status)
	a.CreatedAt = fromMillis(createdAt)
	a.CompletedAt = fromMillis(completedAt)
	return &a, nil
}

// Complete transitions a PENDING attempt to its terminal status. The
// status guard keeps terminal states terminal.
func (s *ReplayStore) Complete(ctx context.Context, a *replay.Attempt) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE replay_attempts
		SET status = ?, replay_output_hash = ?, drift_details = ?, completed_at = ?
		WHERE id = ? AND status = ?`,
		string(a.Status), a.ReplayOutputHash, a.DriftDetails, toMillis(a.CompletedAt),
		a.ID, string(replay.StatusPending))
	if err != nil {
		return fmt.Errorf("complete replay attempt: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete replay attempt rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("replay attempt %s not found or already terminal", a.ID)
	}
	return nil
}
