// Package envelope contains domain types for sealed governance envelopes.
//
// An envelope is the immutable, hash-verified bundle of one routing decision
// context. Once sealed it never changes; a changed decision requires a new
// envelope with a new hash.
package envelope

import (
	"context"
	"time"
)

// Status is the lifecycle status of an envelope.
type Status string

const (
	// StatusSealed marks a valid, in-force envelope.
	StatusSealed Status = "SEALED"
	// StatusExpired marks an envelope past its expires_at.
	StatusExpired Status = "EXPIRED"
	// StatusRevoked marks an envelope withdrawn by admin action.
	StatusRevoked Status = "REVOKED"
)

// Version is the envelope schema version embedded in every sealed record.
const Version = 1

// Envelope is one sealed governance record.
type Envelope struct {
	// ID is the envelope UUID.
	ID string
	// SchemaVersion is the envelope schema version at seal time.
	SchemaVersion int
	// SHA256Hash is the hex-encoded hash over the canonical content subset.
	SHA256Hash string
	// TenantID and WorkspaceID identify the caller.
	TenantID    string
	WorkspaceID string
	// PersonaID, PolicyID, and PolicyVersion pin the resolved policy.
	PersonaID     string
	PolicyID      string
	PolicyVersion int
	// TerritoryID is the resolved territory, empty when none was requested.
	TerritoryID string
	// ResolutionPath records how persona and territory were resolved.
	ResolutionPath []string
	// Content is the full serialized envelope content (JSON).
	Content []byte
	// Status is SEALED, EXPIRED, or REVOKED.
	Status Status
	// OutputHash is the hex SHA-256 of the original execution output.
	// Recorded once after execution; empty until then.
	OutputHash string
	// SealedAt is when the envelope was sealed (UTC).
	SealedAt time.Time
	// ExpiresAt is when the envelope stops verifying. Zero means no expiry.
	ExpiresAt time.Time
}

// Expired reports whether the envelope is past its expiry at the given time.
func (e *Envelope) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// Store persists and retrieves envelopes. Sealed content is append-only:
// implementations expose no update path for content fields.
type Store interface {
	// Insert persists a newly sealed envelope.
	Insert(ctx context.Context, e *Envelope) error
	// GetByID returns an envelope by UUID, or nil if none.
	GetByID(ctx context.Context, id string) (*Envelope, error)
	// GetByHash returns an envelope by its sha256 hash, or nil if none.
	GetByHash(ctx context.Context, hash string) (*Envelope, error)
	// SetStatus transitions the lifecycle status (SEALED -> EXPIRED/REVOKED).
	// Content fields are untouched.
	SetStatus(ctx context.Context, id string, status Status) error
	// SetOutputHash records the original execution output hash, once.
	// Implementations reject a second write.
	SetOutputHash(ctx context.Context, id, outputHash string) error
}
