package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/siva-ai/governor/internal/domain/envelope"
	"github.com/siva-ai/governor/internal/domain/fault"
	"github.com/siva-ai/governor/internal/domain/replay"
)

// ReplayService re-executes sealed envelopes and detects output drift.
//
// Drift is a hard failure: it means the determinism guarantee was broken
// somewhere, and the attempt is surfaced DRIFTED with details for
// investigation. Nothing here auto-resolves or down-weights drift.
type ReplayService struct {
	envelopes *EnvelopeService
	attempts  replay.Store
	logger    *slog.Logger
	now       func() time.Time
}

// NewReplayService creates a ReplayService.
func NewReplayService(envelopes *EnvelopeService, attempts replay.Store, logger *slog.Logger) *ReplayService {
	return &ReplayService{envelopes: envelopes, attempts: attempts, logger: logger, now: time.Now}
}

// InitiateReplay verifies the envelope and opens a PENDING attempt.
// Returns the attempt and the frozen envelope content for the caller to
// re-execute against. Verification failures propagate as-is (expired,
// revoked, not sealed).
func (s *ReplayService) InitiateReplay(ctx context.Context, hash, auditCtx string) (*replay.Attempt, []byte, error) {
	e, content, err := s.envelopes.GetContent(ctx, EnvelopeRef{Hash: hash})
	if err != nil {
		return nil, nil, err
	}

	a := &replay.Attempt{
		ID:                 uuid.NewString(),
		EnvelopeID:         e.ID,
		EnvelopeHash:       e.SHA256Hash,
		Status:             replay.StatusPending,
		OriginalOutputHash: e.OutputHash,
		Context:            auditCtx,
		CreatedAt:          s.now().UTC(),
	}
	if err := s.attempts.Insert(ctx, a); err != nil {
		return nil, nil, fmt.Errorf("persist replay attempt: %w", err)
	}

	s.logger.Info("replay initiated", "replay_id", a.ID, "envelope_id", e.ID)
	return a, content, nil
}

// CompleteReplay compares the re-executed output against the original and
// transitions the attempt to MATCHED or DRIFTED.
//
// The comparison baseline is the output hash recorded at original execution
// time when present; otherwise the envelope's structural content hash. When
// newOutputHash is empty it is computed from newOutput. A DRIFTED result is
// returned together with REPLAY_DRIFT_DETECTED.
func (s *ReplayService) CompleteReplay(ctx context.Context, replayID string, newOutput []byte, newOutputHash string) (*replay.Attempt, error) {
	a, err := s.attempts.Get(ctx, replayID)
	if err != nil {
		return nil, fmt.Errorf("load replay attempt: %w", err)
	}
	if a == nil {
		return nil, fmt.Errorf("replay attempt %s not found", replayID)
	}
	if a.Status != replay.StatusPending {
		return nil, fmt.Errorf("replay attempt %s already completed with status %s", replayID, a.Status)
	}

	if newOutputHash == "" {
		newOutputHash = envelope.HashOutput(newOutput)
	}

	baseline := a.OriginalOutputHash
	baselineKind := "original_output"
	if baseline == "" {
		// No output was recorded at execution time; fall back to the
		// structural content the envelope froze.
		e, err := s.envelopes.lookup(ctx, EnvelopeRef{ID: a.EnvelopeID})
		if err != nil {
			return nil, err
		}
		if e == nil {
			return nil, fmt.Errorf("envelope %s vanished during replay", a.EnvelopeID)
		}
		baseline = envelope.HashOutput(e.Content)
		baselineKind = "structural_content"
	}

	a.ReplayOutputHash = newOutputHash
	a.CompletedAt = s.now().UTC()

	if newOutputHash == baseline {
		a.Status = replay.StatusMatched
		if err := s.attempts.Complete(ctx, a); err != nil {
			return nil, fmt.Errorf("complete replay attempt: %w", err)
		}
		s.logger.Info("replay matched", "replay_id", a.ID, "envelope_id", a.EnvelopeID)
		return a, nil
	}

	a.Status = replay.StatusDrifted
	a.DriftDetails = fmt.Sprintf(
		"baseline(%s)=%s replay=%s: output hash mismatch for envelope %s",
		baselineKind, abbrevHash(baseline), abbrevHash(newOutputHash), a.EnvelopeHash)
	if err := s.attempts.Complete(ctx, a); err != nil {
		return nil, fmt.Errorf("complete replay attempt: %w", err)
	}

	s.logger.Error("replay drift detected",
		"replay_id", a.ID, "envelope_id", a.EnvelopeID, "details", a.DriftDetails)
	return a, fault.New(fault.CodeReplayDriftDetected, "%s", a.DriftDetails)
}

// abbrevHash shortens a hex hash for log and drift summaries.
func abbrevHash(h string) string {
	if len(h) <= 12 {
		return h
	}
	return h[:12]
}
