// Package routing contains domain types for deterministic model routing.
package routing

import (
	"context"
	"time"
)

// LatencyClass buckets a model's average latency for audit display.
type LatencyClass string

const (
	LatencyClassFast     LatencyClass = "fast"     // < 1s
	LatencyClassStandard LatencyClass = "standard" // 1s - 5s
	LatencyClassSlow     LatencyClass = "slow"     // > 5s
)

// ClassifyLatency maps an average latency in milliseconds to its class.
func ClassifyLatency(avgLatencyMS float64) LatencyClass {
	switch {
	case avgLatencyMS < 1000:
		return LatencyClassFast
	case avgLatencyMS <= 5000:
		return LatencyClassStandard
	default:
		return LatencyClassSlow
	}
}

// Alternative is one ranked runner-up retained for audit.
type Alternative struct {
	ModelID   string  `json:"model_id"`
	ModelSlug string  `json:"model_slug"`
	Score     float64 `json:"score"`
}

// Decision is the write-once audit record of one routing decision.
// It is never mutated after creation.
type Decision struct {
	// ID is the decision UUID.
	ID string
	// CapabilityKey is the capability that was routed.
	CapabilityKey string
	// PersonaID is the persona the budgets came from.
	PersonaID string
	// EnvelopeHash links the decision to its sealed envelope, when sealed.
	EnvelopeHash string
	// ModelID and ModelSlug identify the selected model.
	ModelID   string
	ModelSlug string
	// Score is the computed routing score of the winner.
	Score float64
	// FormulaVersion pins the scoring constants that produced Score.
	FormulaVersion int
	// CostEstimate is the winner's cost per unit.
	CostEstimate float64
	// LatencyClass buckets the winner's average latency.
	LatencyClass LatencyClass
	// Alternatives are the top-ranked runners-up (at most three).
	Alternatives []Alternative
	// CreatedAt is when the decision was made (UTC).
	CreatedAt time.Time
}

// Store persists routing decisions for audit. Append-only.
type Store interface {
	// Insert persists a decision. Decisions are never updated.
	Insert(ctx context.Context, d *Decision) error
	// ListByEnvelopeHash returns decisions linked to an envelope hash.
	ListByEnvelopeHash(ctx context.Context, hash string) ([]Decision, error)
}
