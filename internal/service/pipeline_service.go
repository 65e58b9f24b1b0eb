package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/siva-ai/governor/internal/domain/envelope"
	"github.com/siva-ai/governor/internal/domain/routing"
	"github.com/siva-ai/governor/internal/domain/territory"
)

// PipelineRequest asks for one fully governed invocation context.
type PipelineRequest struct {
	TenantID      string
	WorkspaceID   string
	UserID        string
	SubVerticalID string
	RegionCode    string
	CapabilityKey string
	Context       string
	// TTL bounds the sealed envelope's validity. Zero means the service
	// default.
	TTL time.Duration
}

// PipelineResult is the sealed outcome of the full governance chain.
type PipelineResult struct {
	Envelope *envelope.Envelope
	Decision *routing.Decision
	// PersonaPath and TerritoryPath are the resolver audit trails.
	PersonaPath   []string
	TerritoryPath []string
}

// PipelineService runs the full governance chain: resolve persona and
// territory, authorize the capability, route the model, seal the envelope.
// The first hard failure aborts the chain; nothing downstream of a DENY
// executes.
type PipelineService struct {
	resolver   *ResolverService
	authorizer *AuthorizerService
	router     *RouterService
	sealer     *EnvelopeService
	logger     *slog.Logger
	defaultTTL time.Duration
}

// NewPipelineService creates a PipelineService. defaultTTL applies when a
// request does not set its own envelope TTL; zero means envelopes do not
// expire.
func NewPipelineService(resolver *ResolverService, authorizer *AuthorizerService, router *RouterService, sealer *EnvelopeService, logger *slog.Logger, defaultTTL time.Duration) *PipelineService {
	return &PipelineService{
		resolver:   resolver,
		authorizer: authorizer,
		router:     router,
		sealer:     sealer,
		logger:     logger,
		defaultTTL: defaultTTL,
	}
}

// Execute runs the chain and returns the sealed envelope with its routing
// decision. A capability denial is not an error: it returns a nil result
// with the populated denial, and the caller must not execute.
func (s *PipelineService) Execute(ctx context.Context, req PipelineRequest) (*PipelineResult, *AuthzResult, error) {
	pr, err := s.resolver.ResolvePersona(ctx, req.SubVerticalID, req.RegionCode)
	if err != nil {
		return nil, nil, err
	}

	var terr *territory.Territory
	var terrPath []string
	if req.RegionCode != "" {
		tr, err := s.resolver.ResolveTerritory(ctx, req.RegionCode, req.SubVerticalID)
		if err != nil {
			return nil, nil, err
		}
		terr = tr.Territory
		terrPath = tr.Path
	}

	authz, err := s.authorizer.Authorize(ctx, pr.Policy, req.CapabilityKey, req.Context)
	if err != nil {
		return nil, nil, err
	}
	if !authz.Allowed {
		return nil, &authz, nil
	}

	ttl := req.TTL
	if ttl == 0 {
		ttl = s.defaultTTL
	}

	sealed, err := s.sealer.Seal(ctx, SealRequest{
		TenantID:       req.TenantID,
		WorkspaceID:    req.WorkspaceID,
		UserID:         req.UserID,
		Persona:        pr.Persona,
		Policy:         pr.Policy,
		Territory:      terr,
		ResolutionPath: append(append([]string{}, pr.Path...), terrPath...),
		CapabilityKey:  req.CapabilityKey,
		TTL:            ttl,
	})
	if err != nil {
		return nil, nil, err
	}

	decision, err := s.router.SelectModel(ctx, req.CapabilityKey, pr.Persona.ID, sealed.SHA256Hash, Budgets{
		MaxCostPerCall: authz.MaxCostPerCall,
		MaxLatencyMS:   authz.MaxLatencyMS,
	})
	if err != nil {
		// The envelope is already sealed; a routing failure leaves it
		// unusable but auditable. Revoke it so it cannot gate an execution
		// that was never routed.
		if rerr := s.sealer.Revoke(ctx, EnvelopeRef{ID: sealed.ID}); rerr != nil {
			s.logger.Error("failed to revoke unroutable envelope",
				"envelope_id", sealed.ID, "error", rerr)
		}
		return nil, nil, err
	}

	return &PipelineResult{
		Envelope:      sealed,
		Decision:      decision,
		PersonaPath:   pr.Path,
		TerritoryPath: terrPath,
	}, &authz, nil
}
