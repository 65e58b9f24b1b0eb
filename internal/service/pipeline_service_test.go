package service

import (
	"context"
	"strings"
	"testing"

	"github.com/siva-ai/governor/internal/adapter/outbound/memory"
	"github.com/siva-ai/governor/internal/domain/envelope"
	"github.com/siva-ai/governor/internal/domain/fault"
	"github.com/siva-ai/governor/internal/domain/persona"
	"github.com/siva-ai/governor/internal/domain/territory"
)

type pipelineFixture struct {
	pipeline  *PipelineService
	envelopes *memory.EnvelopeStore
	denials   *memory.DenialStore
	decisions *memory.RoutingStore
	personas  *memory.PersonaStore
	models    *memory.ModelStore
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	logger := testLogger()

	personas := memory.NewPersonaStore()
	p := seedPersona(t, personas, "default-agent", "logistics", "", persona.ScopeGlobal)
	seedActivePolicy(t, personas, p.ID, 1,
		[]string{"chat.complete"}, []string{"payments.execute"})

	territories := memory.NewTerritoryStore()
	seedTerritoryNode(t, territories, "ae-dubai", territory.LevelCity, nil)

	models := memory.NewModelStore()
	seedModelRow(t, models, "model-a", 95, 400, 0.004, "chat.complete")
	seedModelRow(t, models, "model-b", 90, 800, 0.003, "chat.complete")

	envelopes := memory.NewEnvelopeStore()
	denials := memory.NewDenialStore()
	decisions := memory.NewRoutingStore()

	resolver := NewResolverService(personas, territories, logger)
	authorizer := NewAuthorizerService(denials, logger)
	router := NewRouterService(models, decisions, logger)
	sealer := NewEnvelopeService(envelopes, logger, 0)

	return &pipelineFixture{
		pipeline:  NewPipelineService(resolver, authorizer, router, sealer, logger, 0),
		envelopes: envelopes,
		denials:   denials,
		decisions: decisions,
		personas:  personas,
		models:    models,
	}
}

func pipelineRequest() PipelineRequest {
	return PipelineRequest{
		TenantID:      "tenant-1",
		WorkspaceID:   "workspace-1",
		UserID:        "user-1",
		SubVerticalID: "logistics",
		RegionCode:    "ae-dubai",
		CapabilityKey: "chat.complete",
	}
}

func TestPipelineSealsAndRoutes(t *testing.T) {
	f := newPipelineFixture(t)

	result, authz, err := f.pipeline.Execute(context.Background(), pipelineRequest())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !authz.Allowed {
		t.Fatalf("authz = %+v, want allow", authz)
	}
	if result.Envelope.Status != envelope.StatusSealed {
		t.Errorf("envelope status = %s, want SEALED", result.Envelope.Status)
	}
	if result.Decision.ModelID != "model-a" {
		t.Errorf("routed to %s, want model-a", result.Decision.ModelID)
	}
	// The decision must link back to the sealed envelope.
	if result.Decision.EnvelopeHash != result.Envelope.SHA256Hash {
		t.Error("routing decision does not carry the envelope hash")
	}
	joined := JoinPath(result.PersonaPath)
	if !strings.HasPrefix(joined, "LOCAL(ae-dubai)") || !strings.HasSuffix(joined, "GLOBAL(default-agent)") {
		t.Errorf("persona path = %q", joined)
	}
	if JoinPath(result.TerritoryPath) != "EXACT(ae-dubai)" {
		t.Errorf("territory path = %q, want EXACT(ae-dubai)", JoinPath(result.TerritoryPath))
	}
}

func TestPipelineDenyShortCircuits(t *testing.T) {
	f := newPipelineFixture(t)
	req := pipelineRequest()
	req.CapabilityKey = "payments.execute"

	result, authz, err := f.pipeline.Execute(context.Background(), req)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if result != nil {
		t.Fatal("denied invocation must not produce a result")
	}
	if authz.Allowed || authz.Reason != DenyReasonBlacklisted {
		t.Errorf("authz = %+v, want blacklisted deny", authz)
	}
	// Nothing downstream of the deny may have run.
	if decisions, _ := f.decisions.ListByEnvelopeHash(context.Background(), ""); len(decisions) != 0 {
		t.Error("deny must not reach the router")
	}
	logged, _ := f.denials.List(context.Background(), 10)
	if len(logged) != 1 {
		t.Errorf("denial log has %d rows, want 1", len(logged))
	}
}

func TestPipelineRevokesUnroutableEnvelope(t *testing.T) {
	f := newPipelineFixture(t)
	// The persona's policy allows a capability no backend serves.
	req := pipelineRequest()
	p, err := f.personas.FindPersona(context.Background(), "logistics", persona.ScopeGlobal, "")
	if err != nil || p == nil {
		t.Fatalf("find persona: %v", err)
	}
	pol := &persona.Policy{
		ID:                  "policy-unroutable",
		PersonaID:           p.ID,
		Version:             2,
		AllowedCapabilities: []string{"orphan.capability"},
	}
	if err := f.personas.SavePolicy(context.Background(), pol); err != nil {
		t.Fatalf("save policy: %v", err)
	}
	if err := f.personas.ActivatePolicy(context.Background(), p.ID, pol.ID); err != nil {
		t.Fatalf("activate policy: %v", err)
	}
	req.CapabilityKey = "orphan.capability"

	_, _, err = f.pipeline.Execute(context.Background(), req)
	if !fault.IsCode(err, fault.CodeNoEligibleModel) {
		t.Fatalf("err = %v, want NO_ELIGIBLE_MODEL", err)
	}

	// The envelope sealed before routing must have been revoked, not left
	// valid for an execution that was never routed.
	sealed, err := f.envelopes.GetByID(context.Background(), sealedEnvelopeID(t, f.envelopes))
	if err != nil {
		t.Fatalf("get envelope: %v", err)
	}
	if sealed.Status != envelope.StatusRevoked {
		t.Errorf("unroutable envelope status = %s, want REVOKED", sealed.Status)
	}
}

// sealedEnvelopeID finds the single envelope in the store.
func sealedEnvelopeID(t *testing.T, store *memory.EnvelopeStore) string {
	t.Helper()
	ids := store.IDs()
	if len(ids) != 1 {
		t.Fatalf("store has %d envelopes, want 1", len(ids))
	}
	return ids[0]
}

func TestPipelineUnknownSubVertical(t *testing.T) {
	f := newPipelineFixture(t)
	req := pipelineRequest()
	req.SubVerticalID = "unknown-vertical"

	_, _, err := f.pipeline.Execute(context.Background(), req)
	if !fault.IsCode(err, fault.CodePersonaNotResolved) {
		t.Fatalf("err = %v, want PERSONA_NOT_RESOLVED", err)
	}
}
