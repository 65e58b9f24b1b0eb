package fault

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrorCodesAreStable(t *testing.T) {
	// These strings cross the API boundary; a change here is a breaking
	// wire change.
	want := map[Code]string{
		CodePersonaNotResolved:         "PERSONA_NOT_RESOLVED",
		CodePolicyNotFound:             "POLICY_NOT_FOUND",
		CodeMultipleActivePolicies:     "MULTIPLE_ACTIVE_POLICIES",
		CodeTerritoryNotConfigured:     "TERRITORY_NOT_CONFIGURED",
		CodeTerritoryInvalidForSubVert: "TERRITORY_INVALID_FOR_SUBVERTICAL",
		CodeNoEligibleModel:            "NO_ELIGIBLE_MODEL",
		CodeEnvelopeNotSealed:          "ENVELOPE_NOT_SEALED",
		CodeEnvelopeExpired:            "ENVELOPE_EXPIRED",
		CodeEnvelopeRevoked:            "ENVELOPE_REVOKED",
		CodeReplayDriftDetected:        "REPLAY_DRIFT_DETECTED",
		CodeRuntimeGateViolation:       "RUNTIME_GATE_VIOLATION",
		CodeNoEnvelope:                 "NO_ENVELOPE",
		CodeInvalidEnvelope:            "INVALID_ENVELOPE",
		CodeExpiredEnvelope:            "EXPIRED_ENVELOPE",
		CodeRevokedEnvelope:            "REVOKED_ENVELOPE",
	}
	for code, s := range want {
		if string(code) != s {
			t.Errorf("code %q changed, want %q", code, s)
		}
	}
}

func TestCodeOfUnwraps(t *testing.T) {
	base := New(CodeEnvelopeExpired, "envelope %s expired", "abc")
	wrapped := fmt.Errorf("verify: %w", base)

	code, ok := CodeOf(wrapped)
	if !ok || code != CodeEnvelopeExpired {
		t.Fatalf("CodeOf(wrapped) = %q, %v; want ENVELOPE_EXPIRED, true", code, ok)
	}
	if !IsCode(wrapped, CodeEnvelopeExpired) {
		t.Error("IsCode should match through wrapping")
	}
	if IsCode(wrapped, CodeEnvelopeRevoked) {
		t.Error("IsCode matched the wrong code")
	}
}

func TestCodeOfPlainError(t *testing.T) {
	_, ok := CodeOf(errors.New("disk full"))
	if ok {
		t.Error("plain errors must not carry a stable code")
	}
}

func TestErrorsIsMatchesByCode(t *testing.T) {
	a := New(CodeNoEligibleModel, "no model for chat.complete")
	b := New(CodeNoEligibleModel, "different message")
	if !errors.Is(a, b) {
		t.Error("errors with equal codes should match via errors.Is")
	}
	c := New(CodePolicyNotFound, "x")
	if errors.Is(a, c) {
		t.Error("errors with different codes must not match")
	}
}
