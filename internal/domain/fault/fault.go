// Package fault defines the stable, typed errors returned by the governance core.
//
// Error codes are part of the wire contract: clients match on them, so the
// string values must never change.
package fault

import (
	"errors"
	"fmt"
)

// Code is a stable machine-readable error code.
type Code string

// Stable error codes. These cross the API boundary byte-for-byte.
const (
	CodePersonaNotResolved         Code = "PERSONA_NOT_RESOLVED"
	CodePolicyNotFound             Code = "POLICY_NOT_FOUND"
	CodeMultipleActivePolicies     Code = "MULTIPLE_ACTIVE_POLICIES"
	CodeTerritoryNotConfigured     Code = "TERRITORY_NOT_CONFIGURED"
	CodeTerritoryInvalidForSubVert Code = "TERRITORY_INVALID_FOR_SUBVERTICAL"
	CodeNoEligibleModel            Code = "NO_ELIGIBLE_MODEL"
	CodeEnvelopeNotSealed          Code = "ENVELOPE_NOT_SEALED"
	CodeEnvelopeExpired            Code = "ENVELOPE_EXPIRED"
	CodeEnvelopeRevoked            Code = "ENVELOPE_REVOKED"
	CodeReplayDriftDetected        Code = "REPLAY_DRIFT_DETECTED"
	CodeRuntimeGateViolation       Code = "RUNTIME_GATE_VIOLATION"
	CodeNoEnvelope                 Code = "NO_ENVELOPE"
	CodeInvalidEnvelope            Code = "INVALID_ENVELOPE"
	CodeExpiredEnvelope            Code = "EXPIRED_ENVELOPE"
	CodeRevokedEnvelope            Code = "REVOKED_ENVELOPE"
)

// Error is a typed error carrying a stable code and a human-readable message.
type Error struct {
	Code    Code
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is reports whether target is a fault.Error with the same code.
// This lets callers match with errors.Is(err, fault.New(fault.CodeX, "")).
func (e *Error) Is(target error) bool {
	var fe *Error
	if !errors.As(target, &fe) {
		return false
	}
	return e.Code == fe.Code
}

// New creates a fault.Error with the given code and message.
func New(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// CodeOf extracts the stable code from err, unwrapping as needed.
// Returns ok=false if err carries no fault.Error.
func CodeOf(err error) (Code, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Code, true
	}
	return "", false
}

// IsCode reports whether err carries the given stable code.
func IsCode(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
