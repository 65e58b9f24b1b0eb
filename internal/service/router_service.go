package service

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/siva-ai/governor/internal/domain/fault"
	"github.com/siva-ai/governor/internal/domain/model"
	"github.com/siva-ai/governor/internal/domain/routing"
)

// Routing formula constants. These are compile-time constants on purpose:
// letting runtime configuration override them would break the guarantee
// that identical inputs always route to the identical model. Changing any
// of them is a versioned decision; bump FormulaVersion alongside.
const (
	// FormulaVersion pins the scoring constants recorded in every decision.
	FormulaVersion = 1

	weightStability = 0.5
	weightCost      = 0.3
	weightLatency   = 0.2

	// Inverse-linear normalizations. Cost normalization assumes cost per
	// unit up to $0.05; latency normalization assumes latency up to 10s.
	// Both are clamped to [0, 100].
	costNormFactor    = 2000.0
	latencyNormFactor = 100.0

	// maxAlternatives is how many runners-up a decision records.
	maxAlternatives = 3
)

// normalizeCost maps cost per unit to [0, 100]; lower cost scores higher.
func normalizeCost(costPerUnit float64) float64 {
	return clamp01e2(100 - costPerUnit*costNormFactor)
}

// normalizeLatency maps average latency to [0, 100]; lower latency scores
// higher.
func normalizeLatency(avgLatencyMS float64) float64 {
	return clamp01e2(100 - avgLatencyMS/latencyNormFactor)
}

// clamp01e2 clamps to the [0, 100] range.
func clamp01e2(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}

// routingScore computes the weighted score for one model.
func routingScore(m *model.Model) float64 {
	return m.StabilityScore*weightStability +
		normalizeCost(m.CostPerUnit)*weightCost +
		normalizeLatency(m.AvgLatencyMS)*weightLatency
}

// Budgets are the per-call ceilings the authorizer hands to the router.
type Budgets struct {
	MaxCostPerCall float64
	MaxLatencyMS   int
}

// RouterService deterministically selects one backend model per capability.
//
// The router is a pure function of its inputs plus catalog state at read
// time. It never consults runtime load or queue depth, and its only side
// effect is the write-once routing decision audit row.
type RouterService struct {
	models    model.Store
	decisions routing.Store
	logger    *slog.Logger
	now       func() time.Time
}

// NewRouterService creates a RouterService.
func NewRouterService(models model.Store, decisions routing.Store, logger *slog.Logger) *RouterService {
	return &RouterService{models: models, decisions: decisions, logger: logger, now: time.Now}
}

// SelectModel picks the single eligible model for a capability under the
// given budgets and persists the decision for audit.
//
// Fails with NO_ELIGIBLE_MODEL both when no backend serves the capability
// at all and when budget filtering empties the candidate set; the two
// messages are distinct so operators can tell a missing backend from an
// over-tight budget.
func (s *RouterService) SelectModel(ctx context.Context, capabilityKey, personaID, envelopeHash string, budgets Budgets) (*routing.Decision, error) {
	candidates, err := s.eligible(ctx, capabilityKey)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fault.New(fault.CodeNoEligibleModel,
			"no backend model supports capability %q", capabilityKey)
	}

	survivors := filterByBudgets(candidates, budgets)
	if len(survivors) == 0 {
		return nil, fault.New(fault.CodeNoEligibleModel,
			"all %d models supporting capability %q were excluded by budget (max_cost_per_call=%g, max_latency_ms=%d)",
			len(candidates), capabilityKey, budgets.MaxCostPerCall, budgets.MaxLatencyMS)
	}

	ranked := rank(survivors)
	winner := ranked[0]

	d := &routing.Decision{
		ID:             uuid.NewString(),
		CapabilityKey:  capabilityKey,
		PersonaID:      personaID,
		EnvelopeHash:   envelopeHash,
		ModelID:        winner.m.ID,
		ModelSlug:      winner.m.Slug,
		Score:          winner.score,
		FormulaVersion: FormulaVersion,
		CostEstimate:   winner.m.CostPerUnit,
		LatencyClass:   routing.ClassifyLatency(winner.m.AvgLatencyMS),
		CreatedAt:      s.now().UTC(),
	}
	for _, alt := range ranked[1:] {
		if len(d.Alternatives) == maxAlternatives {
			break
		}
		d.Alternatives = append(d.Alternatives, routing.Alternative{
			ModelID:   alt.m.ID,
			ModelSlug: alt.m.Slug,
			Score:     alt.score,
		})
	}

	if err := s.decisions.Insert(ctx, d); err != nil {
		return nil, fmt.Errorf("persist routing decision: %w", err)
	}

	s.logger.Info("model routed",
		"capability", capabilityKey, "model", winner.m.Slug, "score", winner.score)
	return d, nil
}

// eligible fetches catalog models that can serve the capability.
func (s *RouterService) eligible(ctx context.Context, capabilityKey string) ([]model.Model, error) {
	all, err := s.models.ListActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	var out []model.Model
	for _, m := range all {
		if m.Serves(capabilityKey) {
			out = append(out, m)
		}
	}
	return out, nil
}

// filterByBudgets drops models over the cost or latency ceiling. A zero
// ceiling means unbounded.
func filterByBudgets(models []model.Model, b Budgets) []model.Model {
	var out []model.Model
	for _, m := range models {
		if b.MaxCostPerCall > 0 && m.CostPerUnit > b.MaxCostPerCall {
			continue
		}
		if b.MaxLatencyMS > 0 && m.AvgLatencyMS > float64(b.MaxLatencyMS) {
			continue
		}
		out = append(out, m)
	}
	return out
}

type scoredModel struct {
	m     model.Model
	score float64
}

// rank orders candidates by the deterministic tie-break chain:
// score desc, stability desc, cost asc, latency asc, model ID asc.
// The final lexicographic ID comparison guarantees a single winner; no
// randomness or time-based tie-breaking is permitted anywhere in the chain.
func rank(models []model.Model) []scoredModel {
	scored := make([]scoredModel, 0, len(models))
	for _, m := range models {
		scored = append(scored, scoredModel{m: m, score: routingScore(&m)})
	}
	sort.Slice(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.score != b.score {
			return a.score > b.score
		}
		if a.m.StabilityScore != b.m.StabilityScore {
			return a.m.StabilityScore > b.m.StabilityScore
		}
		if a.m.CostPerUnit != b.m.CostPerUnit {
			return a.m.CostPerUnit < b.m.CostPerUnit
		}
		if a.m.AvgLatencyMS != b.m.AvgLatencyMS {
			return a.m.AvgLatencyMS < b.m.AvgLatencyMS
		}
		return a.m.ID < b.m.ID
	})
	return scored
}
