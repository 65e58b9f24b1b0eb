// Package service contains application services for the governance core.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/siva-ai/governor/internal/domain/fault"
	"github.com/siva-ai/governor/internal/domain/persona"
	"github.com/siva-ai/governor/internal/domain/territory"
)

// PathSeparator joins resolution path steps for display.
const PathSeparator = "→"

// JoinPath renders a resolution path as a single audit string.
func JoinPath(path []string) string {
	return strings.Join(path, PathSeparator)
}

// ResolverService resolves (sub-vertical, region) pairs to personas with
// their single ACTIVE policy, and region codes to territory nodes.
//
// Both resolutions are pure reads: identical inputs yield identical outputs
// unless the store itself changed between calls. Failures are hard; the
// resolver never substitutes a default.
type ResolverService struct {
	personas    persona.Store
	territories territory.Store
	logger      *slog.Logger
}

// NewResolverService creates a ResolverService.
func NewResolverService(personas persona.Store, territories territory.Store, logger *slog.Logger) *ResolverService {
	return &ResolverService{personas: personas, territories: territories, logger: logger}
}

// PersonaResolution is the result of a successful persona resolution.
type PersonaResolution struct {
	Persona *persona.Persona
	Policy  *persona.Policy
	// Path records the scopes probed, e.g.
	// ["LOCAL(ae-dubai)", "REGIONAL(none)", "GLOBAL(default-agent)"].
	Path []string
}

// ResolvePersona finds the persona serving a sub-vertical, trying LOCAL,
// then REGIONAL, then GLOBAL scope, and loads its single ACTIVE policy.
//
// Fails with PERSONA_NOT_RESOLVED when no persona exists at any scope,
// POLICY_NOT_FOUND when the persona has no ACTIVE policy, and
// MULTIPLE_ACTIVE_POLICIES when more than one is ACTIVE. The last is a
// data-integrity failure surfaced to the caller, never auto-corrected.
func (s *ResolverService) ResolvePersona(ctx context.Context, subVerticalID, regionCode string) (*PersonaResolution, error) {
	var path []string
	var found *persona.Persona

	// LOCAL: region-scoped persona for this sub-vertical. The path step
	// records the region probed whether or not it matched.
	if regionCode != "" {
		p, err := s.personas.FindPersona(ctx, subVerticalID, persona.ScopeLocal, regionCode)
		if err != nil {
			return nil, fmt.Errorf("find local persona: %w", err)
		}
		path = append(path, fmt.Sprintf("LOCAL(%s)", regionCode))
		found = p
	} else {
		path = append(path, "LOCAL(none)")
	}

	// REGIONAL: the broader region derived from the region code prefix.
	if found == nil {
		var p *persona.Persona
		if rc := regionalCode(regionCode); rc != "" {
			var err error
			p, err = s.personas.FindPersona(ctx, subVerticalID, persona.ScopeRegional, rc)
			if err != nil {
				return nil, fmt.Errorf("find regional persona: %w", err)
			}
		}
		if p != nil {
			path = append(path, fmt.Sprintf("REGIONAL(%s)", p.Key))
		} else {
			path = append(path, "REGIONAL(none)")
		}
		found = p
	}

	// GLOBAL: the catch-all persona for the sub-vertical.
	if found == nil {
		p, err := s.personas.FindPersona(ctx, subVerticalID, persona.ScopeGlobal, "")
		if err != nil {
			return nil, fmt.Errorf("find global persona: %w", err)
		}
		if p != nil {
			path = append(path, fmt.Sprintf("GLOBAL(%s)", p.Key))
		} else {
			path = append(path, "GLOBAL(none)")
		}
		found = p
	}

	if found == nil {
		return nil, fault.New(fault.CodePersonaNotResolved,
			"no persona configured for sub-vertical %q at any scope", subVerticalID)
	}

	policy, err := s.loadActivePolicy(ctx, found.ID)
	if err != nil {
		return nil, err
	}

	return &PersonaResolution{Persona: found, Policy: policy, Path: path}, nil
}

// ActivePolicy returns the single ACTIVE policy for a persona, bypassing
// scope resolution. Used when the caller already holds a persona ID.
func (s *ResolverService) ActivePolicy(ctx context.Context, personaID string) (*persona.Policy, error) {
	return s.loadActivePolicy(ctx, personaID)
}

// loadActivePolicy loads the single ACTIVE policy for a persona.
func (s *ResolverService) loadActivePolicy(ctx context.Context, personaID string) (*persona.Policy, error) {
	active, err := s.personas.GetActivePolicies(ctx, personaID)
	if err != nil {
		return nil, fmt.Errorf("load active policies: %w", err)
	}
	switch len(active) {
	case 0:
		return nil, fault.New(fault.CodePolicyNotFound,
			"persona %s has no ACTIVE policy", personaID)
	case 1:
		return &active[0], nil
	default:
		// Integrity violation at the store. Surface it; the operator must
		// intervene.
		s.logger.Error("multiple active policies detected",
			"persona_id", personaID, "count", len(active))
		return nil, fault.New(fault.CodeMultipleActivePolicies,
			"persona %s has %d ACTIVE policies", personaID, len(active))
	}
}

// TerritoryResolution is the result of a successful territory resolution.
type TerritoryResolution struct {
	Territory *territory.Territory
	Path      []string
}

// ResolveTerritory maps a region code to a territory node: exact slug match
// first, then the parent chain, then the GLOBAL sentinel node.
//
// Fails with TERRITORY_NOT_CONFIGURED when the chain bottoms out without a
// match, and TERRITORY_INVALID_FOR_SUBVERTICAL when a sub-vertical is
// supplied and the resolved territory is not enabled for it.
func (s *ResolverService) ResolveTerritory(ctx context.Context, regionCode, subVerticalID string) (*TerritoryResolution, error) {
	var path []string

	t, err := s.territories.GetBySlug(ctx, regionCode)
	if err != nil {
		return nil, fmt.Errorf("territory by slug: %w", err)
	}
	if t != nil {
		path = append(path, fmt.Sprintf("EXACT(%s)", t.Slug))
	} else {
		path = append(path, fmt.Sprintf("EXACT(%s:miss)", regionCode))
		t, path, err = s.ascendParents(ctx, regionCode, path)
		if err != nil {
			return nil, err
		}
	}

	if t == nil {
		g, err := s.territories.GetGlobal(ctx)
		if err != nil {
			return nil, fmt.Errorf("global territory: %w", err)
		}
		if g != nil {
			path = append(path, fmt.Sprintf("GLOBAL(%s)", g.Slug))
		}
		t = g
	}

	if t == nil {
		return nil, fault.New(fault.CodeTerritoryNotConfigured,
			"no territory configured for region %q", regionCode)
	}

	if subVerticalID != "" && !t.EnabledFor(subVerticalID) {
		return nil, fault.New(fault.CodeTerritoryInvalidForSubVert,
			"territory %s is not enabled for sub-vertical %q", t.Slug, subVerticalID)
	}

	return &TerritoryResolution{Territory: t, Path: path}, nil
}

// ascendParents walks up the region-code hierarchy ("ae-dubai" -> "ae")
// looking for a configured territory.
func (s *ResolverService) ascendParents(ctx context.Context, regionCode string, path []string) (*territory.Territory, []string, error) {
	for code := regionalCode(regionCode); code != ""; code = regionalCode(code) {
		t, err := s.territories.GetBySlug(ctx, code)
		if err != nil {
			return nil, path, fmt.Errorf("territory by slug: %w", err)
		}
		if t != nil {
			path = append(path, fmt.Sprintf("PARENT(%s)", t.Slug))
			return t, path, nil
		}
		path = append(path, fmt.Sprintf("PARENT(%s:miss)", code))
	}
	return nil, path, nil
}

// regionalCode derives the broader region from a region code by dropping the
// last "-" segment: "ae-dubai" -> "ae". Returns "" when no broader region
// exists.
func regionalCode(regionCode string) string {
	i := strings.LastIndex(regionCode, "-")
	if i <= 0 {
		return ""
	}
	return regionCode[:i]
}
