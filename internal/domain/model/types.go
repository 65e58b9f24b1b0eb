// Package model contains domain types for the backend model catalog.
package model

import "context"

// Model is one backend model available to the router.
type Model struct {
	// ID is the unique identifier.
	ID string
	// Slug is the stable model identifier (e.g., "gpt-4o-mini").
	Slug string
	// StabilityScore is the operational stability rating, 0-100.
	StabilityScore float64
	// AvgLatencyMS is the observed average latency in milliseconds.
	AvgLatencyMS float64
	// CostPerUnit is the cost per unit of work, in dollars.
	CostPerUnit float64
	// SupportedCapabilities lists the capabilities the model can serve.
	SupportedCapabilities []string
	// DisallowedCapabilities lists capabilities the model must never serve,
	// regardless of support.
	DisallowedCapabilities []string
	// Eligible is the catalog-level routing opt-in.
	Eligible bool
	// Active is false for models taken out of service.
	Active bool
}

// Serves reports whether the model can serve the capability: it must be
// supported and not disallowed.
func (m *Model) Serves(capabilityKey string) bool {
	for _, c := range m.DisallowedCapabilities {
		if c == capabilityKey {
			return false
		}
	}
	for _, c := range m.SupportedCapabilities {
		if c == capabilityKey {
			return true
		}
	}
	return false
}

// Store persists and retrieves catalog models.
type Store interface {
	// ListActive returns all models with Eligible and Active set.
	ListActive(ctx context.Context) ([]Model, error)
	// GetByID returns a model by ID, or nil if none.
	GetByID(ctx context.Context, id string) (*Model, error)
	// Save creates or updates a model.
	Save(ctx context.Context, m *Model) error
}
