package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/siva-ai/governor/internal/domain/fault"
	"github.com/siva-ai/governor/internal/domain/gate"
)

// RequestMeta identifies the caller attempting a capability execution.
type RequestMeta struct {
	Source      string
	Endpoint    string
	TenantID    string
	WorkspaceID string
	UserID      string
}

// GateResult is the outcome of a runtime gate check.
type GateResult struct {
	// Passed is true when execution may proceed.
	Passed bool
	// Code is the violation code when the gate blocked.
	Code gate.ViolationCode
	// ViolationID references the persisted violation record.
	ViolationID string
	// EnvelopeID is the verified envelope, set on pass.
	EnvelopeID string
}

// GateService is the last line of defense: it blocks any capability
// execution that lacks a valid, unexpired, unrevoked envelope.
//
// The gate fails closed. A store error during verification blocks the
// caller exactly like a missing envelope would; it is never waved through.
type GateService struct {
	envelopes  *EnvelopeService
	violations gate.Store
	logger     *slog.Logger
	now        func() time.Time
}

// NewGateService creates a GateService.
func NewGateService(envelopes *EnvelopeService, violations gate.Store, logger *slog.Logger) *GateService {
	return &GateService{envelopes: envelopes, violations: violations, logger: logger, now: time.Now}
}

// CheckGate verifies the envelope reference before execution. Every
// failure is persisted as a violation row, independent of caller retries.
func (s *GateService) CheckGate(ctx context.Context, meta RequestMeta, ref EnvelopeRef) (GateResult, error) {
	if ref.Empty() {
		return s.block(ctx, meta, gate.CodeNoEnvelope, "no envelope reference supplied")
	}

	e, err := s.envelopes.Verify(ctx, ref)
	if err != nil {
		code, msg := violationFor(err)
		return s.block(ctx, meta, code, msg)
	}

	return GateResult{Passed: true, EnvelopeID: e.ID}, nil
}

// violationFor maps a verification failure to its gate violation code.
// Unknown errors (store failures, timeouts) map to INVALID_ENVELOPE: the
// gate cannot prove validity, so it blocks.
func violationFor(err error) (gate.ViolationCode, string) {
	switch {
	case fault.IsCode(err, fault.CodeEnvelopeExpired):
		return gate.CodeExpiredEnvelope, err.Error()
	case fault.IsCode(err, fault.CodeEnvelopeRevoked):
		return gate.CodeRevokedEnvelope, err.Error()
	default:
		return gate.CodeInvalidEnvelope, err.Error()
	}
}

// block persists the violation and returns the blocked result. A failed
// violation write is logged but the block stands either way.
func (s *GateService) block(ctx context.Context, meta RequestMeta, code gate.ViolationCode, msg string) (GateResult, error) {
	v := &gate.Violation{
		ID:          uuid.NewString(),
		Source:      meta.Source,
		Endpoint:    meta.Endpoint,
		TenantID:    meta.TenantID,
		WorkspaceID: meta.WorkspaceID,
		UserID:      meta.UserID,
		Code:        code,
		Message:     msg,
		Resolution:  gate.ResolutionUnresolved,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.violations.Insert(ctx, v); err != nil {
		s.logger.Error("gate violation write failed",
			"source", meta.Source, "code", code, "error", err)
	}
	s.logger.Warn("runtime gate blocked execution",
		"source", meta.Source, "endpoint", meta.Endpoint, "code", code)

	return GateResult{Passed: false, Code: code, ViolationID: v.ID},
		fault.New(fault.CodeRuntimeGateViolation, "gate blocked execution: %s", msg)
}
