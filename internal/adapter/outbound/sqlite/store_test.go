package sqlite

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/siva-ai/governor/internal/domain/envelope"
	"github.com/siva-ai/governor/internal/domain/persona"
	"github.com/siva-ai/governor/internal/domain/routing"
	"github.com/siva-ai/governor/internal/domain/territory"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "governor.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestMigrationsApplyOnce(t *testing.T) {
	path := filepath.Join(t.TempDir(), "governor.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	_ = store.Close()

	// A second open must tolerate the already-applied migrations.
	store, err = Open(path)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	_ = store.Close()
}

func TestPersonaRoundtrip(t *testing.T) {
	store := openTestStore(t)
	personas := NewPersonaStore(store)
	ctx := context.Background()

	p := &persona.Persona{
		ID:            "persona-1",
		Key:           "dubai-agent",
		Name:          "Dubai Agent",
		Mission:       "serve logistics requests in Dubai",
		DecisionLens:  "cost first",
		SubVerticalID: "logistics",
		RegionCode:    "ae-dubai",
		Scope:         persona.ScopeLocal,
		Active:        true,
		CreatedAt:     time.Now().UTC(),
	}
	if err := personas.SavePersona(ctx, p); err != nil {
		t.Fatalf("save persona: %v", err)
	}

	got, err := personas.FindPersona(ctx, "logistics", persona.ScopeLocal, "ae-dubai")
	if err != nil {
		t.Fatalf("find persona: %v", err)
	}
	if got == nil || got.ID != p.ID || got.Key != p.Key || got.Scope != p.Scope {
		t.Errorf("found %+v, want %+v", got, p)
	}

	if missing, _ := personas.FindPersona(ctx, "logistics", persona.ScopeLocal, "ae-abudhabi"); missing != nil {
		t.Error("wrong region must not resolve")
	}
	byKey, err := personas.GetPersonaByKey(ctx, "dubai-agent")
	if err != nil || byKey == nil || byKey.ID != p.ID {
		t.Errorf("GetPersonaByKey = %+v, %v", byKey, err)
	}
}

func seedTestPersona(t *testing.T, personas *PersonaStore) *persona.Persona {
	t.Helper()
	p := &persona.Persona{
		ID:            "persona-1",
		Key:           "default-agent",
		Name:          "Default Agent",
		SubVerticalID: "logistics",
		Scope:         persona.ScopeGlobal,
		Active:        true,
		CreatedAt:     time.Now().UTC(),
	}
	if err := personas.SavePersona(context.Background(), p); err != nil {
		t.Fatalf("save persona: %v", err)
	}
	return p
}

func savePolicyVersion(t *testing.T, personas *PersonaStore, personaID string, version int, status persona.PolicyStatus) *persona.Policy {
	t.Helper()
	pol := &persona.Policy{
		ID:                  fmt.Sprintf("%s-v%d", personaID, version),
		PersonaID:           personaID,
		Version:             version,
		AllowedCapabilities: []string{"chat.complete"},
		MaxCostPerCall:      0.01,
		MaxLatencyMS:        5000,
		Status:              status,
		CreatedAt:           time.Now().UTC(),
	}
	if err := personas.SavePolicy(context.Background(), pol); err != nil {
		t.Fatalf("save policy v%d: %v", version, err)
	}
	return pol
}

func TestActivatePolicySupersedes(t *testing.T) {
	store := openTestStore(t)
	personas := NewPersonaStore(store)
	ctx := context.Background()
	p := seedTestPersona(t, personas)

	v1 := savePolicyVersion(t, personas, p.ID, 1, persona.StatusDraft)
	if err := personas.ActivatePolicy(ctx, p.ID, v1.ID); err != nil {
		t.Fatalf("activate v1: %v", err)
	}

	v2 := savePolicyVersion(t, personas, p.ID, 2, persona.StatusDraft)
	if err := personas.ActivatePolicy(ctx, p.ID, v2.ID); err != nil {
		t.Fatalf("activate v2: %v", err)
	}

	active, err := personas.GetActivePolicies(ctx, p.ID)
	if err != nil {
		t.Fatalf("get active policies: %v", err)
	}
	if len(active) != 1 || active[0].Version != 2 {
		t.Fatalf("active = %+v, want exactly v2", active)
	}

	old, err := personas.GetPolicy(ctx, v1.ID)
	if err != nil {
		t.Fatalf("get policy: %v", err)
	}
	if old.Status != persona.StatusSuperseded {
		t.Errorf("v1 status = %s, want SUPERSEDED", old.Status)
	}
}

func TestSingleActiveIndexRejectsSecondActive(t *testing.T) {
	store := openTestStore(t)
	personas := NewPersonaStore(store)
	p := seedTestPersona(t, personas)

	savePolicyVersion(t, personas, p.ID, 1, persona.StatusActive)
	// Writing a second ACTIVE row directly must hit the partial unique
	// index; the invariant holds even against writers that skip
	// ActivatePolicy.
	pol := &persona.Policy{
		ID:        p.ID + "-rogue",
		PersonaID: p.ID,
		Version:   2,
		Status:    persona.StatusActive,
		CreatedAt: time.Now().UTC(),
	}
	if err := personas.SavePolicy(context.Background(), pol); err == nil {
		t.Fatal("second ACTIVE policy insert should fail on the unique index")
	}
}

func TestTerritoryHierarchy(t *testing.T) {
	store := openTestStore(t)
	territories := NewTerritoryStore(store)
	ctx := context.Background()

	global := &territory.Territory{ID: "t-global", Slug: "global", Name: "Global", Level: territory.LevelGlobal}
	country := &territory.Territory{
		ID: "t-ae", Slug: "ae", Name: "UAE", Level: territory.LevelCountry,
		ParentID: "t-global", SubVerticals: []string{"logistics"},
	}
	for _, node := range []*territory.Territory{global, country} {
		if err := territories.Save(ctx, node); err != nil {
			t.Fatalf("save territory %s: %v", node.Slug, err)
		}
	}

	got, err := territories.GetBySlug(ctx, "ae")
	if err != nil {
		t.Fatalf("get by slug: %v", err)
	}
	if got.ParentID != "t-global" {
		t.Errorf("parent = %q, want t-global", got.ParentID)
	}
	if len(got.SubVerticals) != 1 || got.SubVerticals[0] != "logistics" {
		t.Errorf("sub-verticals = %v", got.SubVerticals)
	}

	g, err := territories.GetGlobal(ctx)
	if err != nil || g == nil || g.Slug != "global" {
		t.Errorf("GetGlobal = %+v, %v", g, err)
	}
}

func TestEnvelopeLifecycle(t *testing.T) {
	store := openTestStore(t)
	envelopes := NewEnvelopeStore(store)
	ctx := context.Background()

	e := &envelope.Envelope{
		ID:             "env-1",
		SchemaVersion:  envelope.Version,
		SHA256Hash:     "aaaa1111",
		TenantID:       "tenant-1",
		WorkspaceID:    "workspace-1",
		PersonaID:      "persona-1",
		PolicyID:       "policy-1",
		PolicyVersion:  3,
		TerritoryID:    "t-ae",
		ResolutionPath: []string{"LOCAL(ae-dubai)", "REGIONAL(none)"},
		Content:        []byte(`{"persona_id":"persona-1"}`),
		Status:         envelope.StatusSealed,
		SealedAt:       time.Now().UTC(),
	}
	if err := envelopes.Insert(ctx, e); err != nil {
		t.Fatalf("insert envelope: %v", err)
	}
	if err := envelopes.Insert(ctx, e); err == nil {
		t.Fatal("duplicate envelope insert should fail")
	}

	byHash, err := envelopes.GetByHash(ctx, "aaaa1111")
	if err != nil {
		t.Fatalf("get by hash: %v", err)
	}
	if byHash == nil || byHash.ID != "env-1" {
		t.Fatalf("get by hash = %+v", byHash)
	}
	if len(byHash.ResolutionPath) != 2 || string(byHash.Content) != string(e.Content) {
		t.Errorf("roundtrip lost content: %+v", byHash)
	}

	if err := envelopes.SetOutputHash(ctx, "env-1", "outhash-1"); err != nil {
		t.Fatalf("set output hash: %v", err)
	}
	if err := envelopes.SetOutputHash(ctx, "env-1", "outhash-2"); err == nil {
		t.Fatal("output hash is write-once; second write should fail")
	}

	if err := envelopes.SetStatus(ctx, "env-1", envelope.StatusRevoked); err != nil {
		t.Fatalf("set status: %v", err)
	}
	got, _ := envelopes.GetByID(ctx, "env-1")
	if got.Status != envelope.StatusRevoked || got.OutputHash != "outhash-1" {
		t.Errorf("after revoke: %+v", got)
	}
}

func TestRoutingDecisionRoundtrip(t *testing.T) {
	store := openTestStore(t)
	decisions := NewRoutingStore(store)
	ctx := context.Background()

	d := &routing.Decision{
		ID:             "decision-1",
		CapabilityKey:  "chat.complete",
		PersonaID:      "persona-1",
		EnvelopeHash:   "aaaa1111",
		ModelID:        "model-a",
		ModelSlug:      "swift-mini",
		Score:          94.3,
		FormulaVersion: 1,
		CostEstimate:   0.004,
		LatencyClass:   routing.LatencyClassFast,
		Alternatives: []routing.Alternative{
			{ModelID: "model-b", ModelSlug: "steady-std", Score: 92.4},
		},
		CreatedAt: time.Now().UTC(),
	}
	if err := decisions.Insert(ctx, d); err != nil {
		t.Fatalf("insert decision: %v", err)
	}

	got, err := decisions.ListByEnvelopeHash(ctx, "aaaa1111")
	if err != nil {
		t.Fatalf("list decisions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d decisions, want 1", len(got))
	}
	if got[0].Score != 94.3 || got[0].FormulaVersion != 1 {
		t.Errorf("decision roundtrip = %+v", got[0])
	}
	if len(got[0].Alternatives) != 1 || got[0].Alternatives[0].ModelSlug != "steady-std" {
		t.Errorf("alternatives roundtrip = %+v", got[0].Alternatives)
	}
}
