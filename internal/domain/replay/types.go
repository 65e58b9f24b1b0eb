// Package replay contains domain types for envelope replay verification.
package replay

import (
	"context"
	"time"
)

// Status is the lifecycle status of a replay attempt.
// MATCHED and DRIFTED are terminal.
type Status string

const (
	StatusPending Status = "PENDING"
	StatusMatched Status = "MATCHED"
	StatusDrifted Status = "DRIFTED"
)

// Attempt is one replay of a sealed envelope.
type Attempt struct {
	// ID is the attempt UUID.
	ID string
	// EnvelopeID and EnvelopeHash identify the envelope being replayed.
	EnvelopeID   string
	EnvelopeHash string
	// Status is PENDING until completed, then MATCHED or DRIFTED.
	Status Status
	// OriginalOutputHash is the hash recorded at original execution time.
	OriginalOutputHash string
	// ReplayOutputHash is the hash of the re-executed output.
	ReplayOutputHash string
	// DriftDetails summarizes the mismatch for DRIFTED attempts.
	DriftDetails string
	// Context is optional caller-supplied context for the attempt.
	Context string
	// CreatedAt and CompletedAt bound the attempt (UTC).
	CreatedAt   time.Time
	CompletedAt time.Time
}

// Store persists replay attempts.
type Store interface {
	// Insert persists a new PENDING attempt.
	Insert(ctx context.Context, a *Attempt) error
	// Get returns an attempt by ID, or nil if none.
	Get(ctx context.Context, id string) (*Attempt, error)
	// Complete transitions a PENDING attempt to its terminal status.
	Complete(ctx context.Context, a *Attempt) error
}
