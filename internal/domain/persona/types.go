// Package persona contains domain types for agent personas and their
// governance policies.
package persona

import (
	"context"
	"time"
)

// Scope is the geographic scope of a persona.
type Scope string

const (
	// ScopeLocal binds a persona to a single region (e.g., a city).
	ScopeLocal Scope = "LOCAL"
	// ScopeRegional binds a persona to a broader region (e.g., a country).
	ScopeRegional Scope = "REGIONAL"
	// ScopeGlobal is the catch-all scope used when no narrower persona exists.
	ScopeGlobal Scope = "GLOBAL"
)

// PolicyStatus is the lifecycle status of a persona policy version.
type PolicyStatus string

const (
	// StatusDraft marks a policy version that is not yet in force.
	StatusDraft PolicyStatus = "DRAFT"
	// StatusActive marks the single policy version in force for a persona.
	StatusActive PolicyStatus = "ACTIVE"
	// StatusSuperseded marks a policy version replaced by a newer activation.
	StatusSuperseded PolicyStatus = "SUPERSEDED"
)

// Persona is a named agent role with a mission and decision lens.
// Identity is immutable: personas are never deleted, only deactivated.
type Persona struct {
	// ID is the unique identifier.
	ID string
	// Key is the stable human-facing key (e.g., "default-agent").
	Key string
	// Name is the display name.
	Name string
	// Mission describes what the persona is for.
	Mission string
	// DecisionLens describes how the persona weighs trade-offs.
	DecisionLens string
	// SubVerticalID is the sub-vertical this persona serves.
	SubVerticalID string
	// RegionCode scopes LOCAL/REGIONAL personas to a region. Empty for GLOBAL.
	RegionCode string
	// Scope is LOCAL, REGIONAL, or GLOBAL.
	Scope Scope
	// Active is false for deactivated personas; they never resolve.
	Active bool
	// CreatedAt is when the persona was created (UTC).
	CreatedAt time.Time
}

// Policy is one version of a persona's governance policy.
// Versions are monotonic per persona; at most one version is ACTIVE at a time.
type Policy struct {
	// ID is the unique identifier of this policy version.
	ID string
	// PersonaID is the owning persona.
	PersonaID string
	// Version is monotonic per persona.
	Version int
	// AllowedIntents lists the intents the persona may act on.
	AllowedIntents []string
	// ForbiddenOutputs lists output classes the persona must never produce.
	ForbiddenOutputs []string
	// AllowedTools lists the tools the persona may invoke.
	AllowedTools []string
	// AllowedCapabilities is the capability allowlist.
	AllowedCapabilities []string
	// ForbiddenCapabilities is the capability blocklist. Deny wins over allow.
	ForbiddenCapabilities []string
	// MaxCostPerCall is the budget ceiling per invocation, in dollars per unit.
	MaxCostPerCall float64
	// MaxLatencyMS is the latency ceiling per invocation, in milliseconds.
	MaxLatencyMS int
	// Status is DRAFT, ACTIVE, or SUPERSEDED.
	Status PolicyStatus
	// CreatedAt is when this version was created (UTC).
	CreatedAt time.Time
}

// Allows reports whether the capability passes this policy's allow/deny sets.
// The forbidden set is checked first: a capability present in both sets is
// denied.
func (p *Policy) Allows(capabilityKey string) bool {
	for _, c := range p.ForbiddenCapabilities {
		if c == capabilityKey {
			return false
		}
	}
	for _, c := range p.AllowedCapabilities {
		if c == capabilityKey {
			return true
		}
	}
	return false
}

// Store persists and retrieves personas and their policies.
type Store interface {
	// GetPersona returns a persona by ID, or nil if not found.
	GetPersona(ctx context.Context, id string) (*Persona, error)
	// FindPersona returns the active persona for (subVerticalID, scope,
	// regionCode), or nil if none exists. regionCode is ignored for GLOBAL.
	FindPersona(ctx context.Context, subVerticalID string, scope Scope, regionCode string) (*Persona, error)
	// SavePersona creates or updates a persona.
	SavePersona(ctx context.Context, p *Persona) error

	// GetActivePolicies returns all ACTIVE policy versions for a persona.
	// More than one element indicates a data-integrity violation that the
	// caller must surface, never repair.
	GetActivePolicies(ctx context.Context, personaID string) ([]Policy, error)
	// GetPolicy returns a policy version by ID, or nil if not found.
	GetPolicy(ctx context.Context, id string) (*Policy, error)
	// SavePolicy creates a policy version in DRAFT status.
	SavePolicy(ctx context.Context, p *Policy) error
	// ActivatePolicy transactionally supersedes the current ACTIVE version
	// (if any) and activates the given version. A concurrent reader must
	// never observe two ACTIVE versions.
	ActivatePolicy(ctx context.Context, personaID, policyID string) error
}
