package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/siva-ai/governor/internal/domain/audit"
	"github.com/siva-ai/governor/internal/domain/persona"
)

// Denial reasons. Stable strings recorded in the denial log and returned to
// callers.
const (
	DenyReasonBlacklisted      = "blacklisted"
	DenyReasonNotAllowlisted   = "not_allowlisted"
	DenyReasonStoreUnavailable = "store_unavailable"
)

// AuthzResult is the outcome of a capability authorization check.
type AuthzResult struct {
	// Allowed is true when the capability may be invoked.
	Allowed bool
	// Reason is set on denial.
	Reason string
	// DenialID references the persisted denial record, set on denial.
	DenialID string
	// MaxCostPerCall and MaxLatencyMS are the budget ceilings handed to the
	// router, set on allow.
	MaxCostPerCall float64
	MaxLatencyMS   int
}

// AuthorizerService decides whether a persona may invoke a capability.
//
// Rule order is fixed: the forbidden set is checked before the allowed set,
// so a capability present in both is always denied. Every denial is written
// to the append-only denial log; the log is audit-only and never consulted
// for runtime decisions.
type AuthorizerService struct {
	denials audit.DenialStore
	logger  *slog.Logger
	now     func() time.Time
}

// NewAuthorizerService creates an AuthorizerService.
func NewAuthorizerService(denials audit.DenialStore, logger *slog.Logger) *AuthorizerService {
	return &AuthorizerService{denials: denials, logger: logger, now: time.Now}
}

// Authorize checks capabilityKey against the policy's capability sets.
// On allow, the result carries the policy's budget ceilings. On deny, the
// denial is persisted and the result carries the reason and denial ID.
//
// A denial-log write failure does not flip a deny into an allow; the deny
// stands and the write failure is logged.
func (s *AuthorizerService) Authorize(ctx context.Context, pol *persona.Policy, capabilityKey, auditCtx string) (AuthzResult, error) {
	// Deny wins: the forbidden set is authoritative even when the
	// capability is also allowlisted.
	for _, c := range pol.ForbiddenCapabilities {
		if c == capabilityKey {
			return s.deny(ctx, pol.PersonaID, capabilityKey, DenyReasonBlacklisted, auditCtx)
		}
	}

	allowed := false
	for _, c := range pol.AllowedCapabilities {
		if c == capabilityKey {
			allowed = true
			break
		}
	}
	if !allowed {
		return s.deny(ctx, pol.PersonaID, capabilityKey, DenyReasonNotAllowlisted, auditCtx)
	}

	return AuthzResult{
		Allowed:        true,
		MaxCostPerCall: pol.MaxCostPerCall,
		MaxLatencyMS:   pol.MaxLatencyMS,
	}, nil
}

// deny records the denial and returns the deny result.
func (s *AuthorizerService) deny(ctx context.Context, personaID, capabilityKey, reason, auditCtx string) (AuthzResult, error) {
	d := &audit.Denial{
		ID:            uuid.NewString(),
		PersonaID:     personaID,
		CapabilityKey: capabilityKey,
		Reason:        reason,
		Context:       auditCtx,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.denials.Insert(ctx, d); err != nil {
		// The deny stands regardless; losing the audit row is logged, not
		// propagated as an allow.
		s.logger.Error("denial log write failed",
			"persona_id", personaID, "capability", capabilityKey, "error", err)
	}
	s.logger.Info("capability denied",
		"persona_id", personaID, "capability", capabilityKey, "reason", reason)
	return AuthzResult{Allowed: false, Reason: reason, DenialID: d.ID}, nil
}
