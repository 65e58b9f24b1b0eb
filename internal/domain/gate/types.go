// Package gate contains domain types for the runtime gate, the final
// checkpoint before any capability executes.
package gate

import (
	"context"
	"time"
)

// ViolationCode identifies why the gate blocked an invocation.
type ViolationCode string

const (
	// CodeNoEnvelope: the caller supplied no envelope reference at all.
	CodeNoEnvelope ViolationCode = "NO_ENVELOPE"
	// CodeInvalidEnvelope: the referenced envelope does not exist.
	CodeInvalidEnvelope ViolationCode = "INVALID_ENVELOPE"
	// CodeExpiredEnvelope: the referenced envelope is past expiry.
	CodeExpiredEnvelope ViolationCode = "EXPIRED_ENVELOPE"
	// CodeRevokedEnvelope: the referenced envelope was revoked.
	CodeRevokedEnvelope ViolationCode = "REVOKED_ENVELOPE"
)

// ResolutionStatus tracks operator follow-up on a violation.
type ResolutionStatus string

const (
	ResolutionUnresolved ResolutionStatus = "UNRESOLVED"
	ResolutionResolved   ResolutionStatus = "RESOLVED"
	ResolutionIgnored    ResolutionStatus = "IGNORED"
	ResolutionEscalated  ResolutionStatus = "ESCALATED"
)

// Violation is one recorded gate failure. A row is written for every
// failure, independent of whether the caller retries.
type Violation struct {
	// ID is the violation UUID.
	ID string
	// Source identifies the calling subsystem.
	Source string
	// Endpoint is the endpoint the caller was trying to execute.
	Endpoint string
	// TenantID, WorkspaceID, and UserID identify the caller.
	TenantID    string
	WorkspaceID string
	UserID      string
	// Code is the violation code.
	Code ViolationCode
	// Message is the human-readable explanation.
	Message string
	// Resolution tracks operator follow-up; starts UNRESOLVED.
	Resolution ResolutionStatus
	// CreatedAt is when the violation occurred (UTC).
	CreatedAt time.Time
}

// Store persists gate violations. Append-only except for resolution status.
type Store interface {
	// Insert persists a violation.
	Insert(ctx context.Context, v *Violation) error
	// List returns violations, newest first, up to limit.
	List(ctx context.Context, limit int) ([]Violation, error)
	// SetResolution updates operator follow-up on a violation.
	SetResolution(ctx context.Context, id string, status ResolutionStatus) error
}
