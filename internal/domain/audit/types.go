// Package audit contains domain types for the append-only denial log.
//
// The denial log exists for audit and compliance review. It is never read
// back for runtime decisioning.
package audit

import (
	"context"
	"time"
)

// Denial is one recorded capability denial.
type Denial struct {
	// ID is the denial UUID.
	ID string
	// PersonaID is the persona the capability was requested for.
	PersonaID string
	// CapabilityKey is the denied capability.
	CapabilityKey string
	// Reason is the stable denial reason ("blacklisted", "not_allowlisted",
	// "store_unavailable").
	Reason string
	// Context is optional caller-supplied context.
	Context string
	// CreatedAt is when the denial occurred (UTC).
	CreatedAt time.Time
}

// DenialStore persists denials. Append-only.
type DenialStore interface {
	// Insert persists a denial record.
	Insert(ctx context.Context, d *Denial) error
	// List returns denials, newest first, up to limit.
	List(ctx context.Context, limit int) ([]Denial, error)
}
