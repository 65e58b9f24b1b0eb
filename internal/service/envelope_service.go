package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/siva-ai/governor/internal/domain/envelope"
	"github.com/siva-ai/governor/internal/domain/fault"
	"github.com/siva-ai/governor/internal/domain/persona"
	"github.com/siva-ai/governor/internal/domain/territory"
)

// DefaultStoreTimeout bounds store calls made while sealing or verifying.
// On timeout the operation fails closed: a slow store is never treated as a
// valid envelope.
const DefaultStoreTimeout = 5 * time.Second

// SealRequest carries everything the sealer bundles into one envelope.
type SealRequest struct {
	TenantID    string
	WorkspaceID string
	UserID      string
	Persona     *persona.Persona
	Policy      *persona.Policy
	// Territory is optional; nil when the invocation is not region-bound.
	Territory *territory.Territory
	// ResolutionPath is the audit trail from the resolver.
	ResolutionPath []string
	// CapabilityKey is the capability this envelope governs.
	CapabilityKey string
	// TTL bounds envelope validity. Zero means no expiry.
	TTL time.Duration
}

// envelopeContent is the full serialized content persisted with the
// envelope. It is a superset of the canonical hash fields.
type envelopeContent struct {
	SchemaVersion         int      `json:"schema_version"`
	TenantID              string   `json:"tenant_id"`
	WorkspaceID           string   `json:"workspace_id"`
	UserID                string   `json:"user_id,omitempty"`
	PersonaID             string   `json:"persona_id"`
	PersonaKey            string   `json:"persona_key"`
	PolicyID              string   `json:"policy_id"`
	PolicyVersion         int      `json:"policy_version"`
	AllowedCapabilities   []string `json:"allowed_capabilities"`
	ForbiddenCapabilities []string `json:"forbidden_capabilities"`
	MaxCostPerCall        float64  `json:"max_cost_per_call"`
	MaxLatencyMS          int      `json:"max_latency_ms"`
	TerritoryID           string   `json:"territory_id,omitempty"`
	TerritorySlug         string   `json:"territory_slug,omitempty"`
	CapabilityKey         string   `json:"capability_key"`
	ResolutionPath        []string `json:"resolution_path"`
	SealedAtUnixMS        int64    `json:"sealed_at_unix_ms"`
}

// EnvelopeService seals routing decision contexts into immutable, hashed
// envelope records and verifies them later.
//
// Sealing is append-only: there is no update path for sealed content; a
// changed decision requires a new envelope with a new hash.
type EnvelopeService struct {
	envelopes    envelope.Store
	logger       *slog.Logger
	storeTimeout time.Duration
	now          func() time.Time
}

// NewEnvelopeService creates an EnvelopeService. A zero storeTimeout falls
// back to DefaultStoreTimeout.
func NewEnvelopeService(envelopes envelope.Store, logger *slog.Logger, storeTimeout time.Duration) *EnvelopeService {
	if storeTimeout <= 0 {
		storeTimeout = DefaultStoreTimeout
	}
	return &EnvelopeService{
		envelopes:    envelopes,
		logger:       logger,
		storeTimeout: storeTimeout,
		now:          time.Now,
	}
}

// Seal serializes the canonical decision-relevant fields, computes the
// SHA-256 hash, and persists the envelope with status SEALED.
func (s *EnvelopeService) Seal(ctx context.Context, req SealRequest) (*envelope.Envelope, error) {
	sealedAt := s.now().UTC()

	canonical := envelope.CanonicalFields{
		SchemaVersion:         envelope.Version,
		PersonaID:             req.Persona.ID,
		PolicyVersion:         req.Policy.Version,
		AllowedCapabilities:   req.Policy.AllowedCapabilities,
		ForbiddenCapabilities: req.Policy.ForbiddenCapabilities,
		MaxCostPerCall:        req.Policy.MaxCostPerCall,
		MaxLatencyMS:          req.Policy.MaxLatencyMS,
		SealedAtUnixMS:        envelope.CanonicalTimestamp(sealedAt),
	}
	if req.Territory != nil {
		canonical.TerritoryID = req.Territory.ID
	}

	hash, err := envelope.ComputeHash(canonical)
	if err != nil {
		return nil, fmt.Errorf("compute envelope hash: %w", err)
	}

	content := envelopeContent{
		SchemaVersion:         envelope.Version,
		TenantID:              req.TenantID,
		WorkspaceID:           req.WorkspaceID,
		UserID:                req.UserID,
		PersonaID:             req.Persona.ID,
		PersonaKey:            req.Persona.Key,
		PolicyID:              req.Policy.ID,
		PolicyVersion:         req.Policy.Version,
		AllowedCapabilities:   req.Policy.AllowedCapabilities,
		ForbiddenCapabilities: req.Policy.ForbiddenCapabilities,
		MaxCostPerCall:        req.Policy.MaxCostPerCall,
		MaxLatencyMS:          req.Policy.MaxLatencyMS,
		CapabilityKey:         req.CapabilityKey,
		ResolutionPath:        req.ResolutionPath,
		SealedAtUnixMS:        canonical.SealedAtUnixMS,
	}
	if req.Territory != nil {
		content.TerritoryID = req.Territory.ID
		content.TerritorySlug = req.Territory.Slug
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("serialize envelope content: %w", err)
	}

	e := &envelope.Envelope{
		ID:             uuid.NewString(),
		SchemaVersion:  envelope.Version,
		SHA256Hash:     hash,
		TenantID:       req.TenantID,
		WorkspaceID:    req.WorkspaceID,
		PersonaID:      req.Persona.ID,
		PolicyID:       req.Policy.ID,
		PolicyVersion:  req.Policy.Version,
		ResolutionPath: req.ResolutionPath,
		Content:        raw,
		Status:         envelope.StatusSealed,
		SealedAt:       sealedAt,
	}
	if req.Territory != nil {
		e.TerritoryID = req.Territory.ID
	}
	if req.TTL > 0 {
		e.ExpiresAt = sealedAt.Add(req.TTL)
	}

	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if existing, err := s.envelopes.GetByHash(sctx, hash); err != nil {
		return nil, fmt.Errorf("check existing envelope: %w", err)
	} else if existing != nil {
		s.logger.Info("envelope seal deduplicated",
			"envelope_id", existing.ID, "hash", hash)
		return existing, nil
	}
	if err := s.envelopes.Insert(sctx, e); err != nil {
		// Concurrent seals of identical canonical fields race on hash
		// uniqueness; the loser adopts the winner's envelope.
		if existing, lookupErr := s.envelopes.GetByHash(sctx, hash); lookupErr == nil && existing != nil {
			return existing, nil
		}
		return nil, fmt.Errorf("persist envelope: %w", err)
	}

	s.logger.Info("envelope sealed",
		"envelope_id", e.ID, "hash", e.SHA256Hash, "persona_id", e.PersonaID)
	return e, nil
}

// EnvelopeRef addresses an envelope by ID or by hash; exactly one must be
// set.
type EnvelopeRef struct {
	ID   string
	Hash string
}

// Empty reports whether the ref addresses nothing.
func (r EnvelopeRef) Empty() bool { return r.ID == "" && r.Hash == "" }

// Verify checks that the referenced envelope exists, is unexpired, and is
// unrevoked, in that order, each failure distinct. Returns the envelope on
// success.
//
// An envelope past its expires_at is reported EXPIRED even if its stored
// status was never transitioned; expiry is a property of time, not of a
// background job having run. Detection persists the EXPIRED status so later
// reads observe it without recomputing.
func (s *EnvelopeService) Verify(ctx context.Context, ref EnvelopeRef) (*envelope.Envelope, error) {
	e, err := s.lookup(ctx, ref)
	if err != nil {
		return nil, err
	}
	if e == nil {
		return nil, fault.New(fault.CodeEnvelopeNotSealed,
			"no sealed envelope for reference %s", ref.describe())
	}
	if e.Status == envelope.StatusExpired || e.Expired(s.now()) {
		if e.Status != envelope.StatusExpired {
			sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
			defer cancel()
			if serr := s.envelopes.SetStatus(sctx, e.ID, envelope.StatusExpired); serr != nil {
				s.logger.Warn("persist envelope expiry", "envelope_id", e.ID, "error", serr)
			}
		}
		return nil, fault.New(fault.CodeEnvelopeExpired,
			"envelope %s expired at %s", e.ID, e.ExpiresAt.UTC().Format(time.RFC3339))
	}
	if e.Status == envelope.StatusRevoked {
		return nil, fault.New(fault.CodeEnvelopeRevoked, "envelope %s was revoked", e.ID)
	}
	return e, nil
}

// GetContent returns the full serialized content of a verified envelope.
func (s *EnvelopeService) GetContent(ctx context.Context, ref EnvelopeRef) (*envelope.Envelope, []byte, error) {
	e, err := s.Verify(ctx, ref)
	if err != nil {
		return nil, nil, err
	}
	return e, e.Content, nil
}

// Revoke withdraws a sealed envelope. Admin action; the envelope content is
// untouched, only the lifecycle status changes.
func (s *EnvelopeService) Revoke(ctx context.Context, ref EnvelopeRef) error {
	e, err := s.lookup(ctx, ref)
	if err != nil {
		return err
	}
	if e == nil {
		return fault.New(fault.CodeEnvelopeNotSealed,
			"no sealed envelope for reference %s", ref.describe())
	}
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.envelopes.SetStatus(sctx, e.ID, envelope.StatusRevoked); err != nil {
		return fmt.Errorf("revoke envelope: %w", err)
	}
	s.logger.Warn("envelope revoked", "envelope_id", e.ID, "hash", e.SHA256Hash)
	return nil
}

// RecordOutput records the hash of the original execution output, once.
// Used later by the replay engine as the comparison baseline.
func (s *EnvelopeService) RecordOutput(ctx context.Context, ref EnvelopeRef, outputHash string) error {
	e, err := s.Verify(ctx, ref)
	if err != nil {
		return err
	}
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.envelopes.SetOutputHash(sctx, e.ID, outputHash); err != nil {
		return fmt.Errorf("record output hash: %w", err)
	}
	return nil
}

// lookup fetches by ID or hash under the store timeout.
func (s *EnvelopeService) lookup(ctx context.Context, ref EnvelopeRef) (*envelope.Envelope, error) {
	sctx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	switch {
	case ref.ID != "":
		e, err := s.envelopes.GetByID(sctx, ref.ID)
		if err != nil {
			return nil, fmt.Errorf("envelope by id: %w", err)
		}
		return e, nil
	case ref.Hash != "":
		e, err := s.envelopes.GetByHash(sctx, ref.Hash)
		if err != nil {
			return nil, fmt.Errorf("envelope by hash: %w", err)
		}
		return e, nil
	default:
		return nil, fault.New(fault.CodeEnvelopeNotSealed, "empty envelope reference")
	}
}

func (r EnvelopeRef) describe() string {
	if r.ID != "" {
		return "id=" + r.ID
	}
	return "hash=" + r.Hash
}
