package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/siva-ai/governor/internal/domain/audit"
	"github.com/siva-ai/governor/internal/domain/gate"
)

// AuditQueryService exposes read access to the denial log and the gate
// violation log for compliance review.
type AuditQueryService struct {
	denials    audit.DenialStore
	violations gate.Store
	logger     *slog.Logger
}

// NewAuditQueryService creates an audit query service.
func NewAuditQueryService(denials audit.DenialStore, violations gate.Store, logger *slog.Logger) *AuditQueryService {
	return &AuditQueryService{denials: denials, violations: violations, logger: logger}
}

// ListDenials returns recorded capability denials, newest first.
func (s *AuditQueryService) ListDenials(ctx context.Context, limit int) ([]audit.Denial, error) {
	out, err := s.denials.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list denials: %w", err)
	}
	return out, nil
}

// ListViolations returns recorded gate violations, newest first.
func (s *AuditQueryService) ListViolations(ctx context.Context, limit int) ([]gate.Violation, error) {
	out, err := s.violations.List(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list violations: %w", err)
	}
	return out, nil
}

// ResolveViolation updates operator follow-up on a violation.
func (s *AuditQueryService) ResolveViolation(ctx context.Context, id string, status gate.ResolutionStatus) error {
	if err := s.violations.SetResolution(ctx, id, status); err != nil {
		return fmt.Errorf("resolve violation: %w", err)
	}
	s.logger.Info("violation resolution updated", "violation_id", id, "status", status)
	return nil
}
