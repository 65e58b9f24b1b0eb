package service

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/siva-ai/governor/internal/adapter/outbound/memory"
	"github.com/siva-ai/governor/internal/adapter/outbound/sqlite"
	"github.com/siva-ai/governor/internal/domain/envelope"
	"github.com/siva-ai/governor/internal/domain/fault"
	"github.com/siva-ai/governor/internal/domain/persona"
	"github.com/siva-ai/governor/internal/domain/territory"
)

func sealTestRequest() SealRequest {
	return SealRequest{
		TenantID:    "tenant-1",
		WorkspaceID: "workspace-1",
		UserID:      "user-1",
		Persona: &persona.Persona{
			ID:  "persona-1",
			Key: "default-agent",
		},
		Policy: &persona.Policy{
			ID:                  "policy-1",
			PersonaID:           "persona-1",
			Version:             3,
			AllowedCapabilities: []string{"chat.complete"},
			MaxCostPerCall:      0.01,
			MaxLatencyMS:        5000,
		},
		Territory: &territory.Territory{
			ID:   "territory-1",
			Slug: "ae-dubai",
		},
		ResolutionPath: []string{"LOCAL(ae-dubai)"},
		CapabilityKey:  "chat.complete",
	}
}

func TestSealAndVerify(t *testing.T) {
	svc := NewEnvelopeService(memory.NewEnvelopeStore(), testLogger(), 0)

	e, err := svc.Seal(context.Background(), sealTestRequest())
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if e.Status != envelope.StatusSealed {
		t.Errorf("status = %s, want SEALED", e.Status)
	}
	if len(e.SHA256Hash) != 64 {
		t.Errorf("hash = %q, want 64 hex chars", e.SHA256Hash)
	}

	byID, err := svc.Verify(context.Background(), EnvelopeRef{ID: e.ID})
	if err != nil {
		t.Fatalf("Verify by ID: %v", err)
	}
	byHash, err := svc.Verify(context.Background(), EnvelopeRef{Hash: e.SHA256Hash})
	if err != nil {
		t.Fatalf("Verify by hash: %v", err)
	}
	if byID.ID != byHash.ID {
		t.Error("ID and hash lookups resolved different envelopes")
	}
}

func TestSealedContentCarriesDecisionContext(t *testing.T) {
	svc := NewEnvelopeService(memory.NewEnvelopeStore(), testLogger(), 0)
	e, err := svc.Seal(context.Background(), sealTestRequest())
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	_, raw, err := svc.GetContent(context.Background(), EnvelopeRef{ID: e.ID})
	if err != nil {
		t.Fatalf("GetContent: %v", err)
	}
	var content map[string]any
	if err := json.Unmarshal(raw, &content); err != nil {
		t.Fatalf("content is not valid JSON: %v", err)
	}
	for _, key := range []string{
		"schema_version", "tenant_id", "persona_id", "policy_version",
		"allowed_capabilities", "max_cost_per_call", "territory_id",
		"capability_key", "resolution_path", "sealed_at_unix_ms",
	} {
		if _, ok := content[key]; !ok {
			t.Errorf("sealed content missing %q", key)
		}
	}
}

func TestVerifyUnknownReference(t *testing.T) {
	svc := NewEnvelopeService(memory.NewEnvelopeStore(), testLogger(), 0)
	_, err := svc.Verify(context.Background(), EnvelopeRef{ID: "no-such-envelope"})
	if !fault.IsCode(err, fault.CodeEnvelopeNotSealed) {
		t.Fatalf("err = %v, want ENVELOPE_NOT_SEALED", err)
	}
}

func TestVerifyExpired(t *testing.T) {
	store := memory.NewEnvelopeStore()
	svc := NewEnvelopeService(store, testLogger(), 0)

	req := sealTestRequest()
	req.TTL = 2 * time.Hour
	e, err := svc.Seal(context.Background(), req)
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	// Within the TTL the envelope verifies.
	if _, err := svc.Verify(context.Background(), EnvelopeRef{ID: e.ID}); err != nil {
		t.Fatalf("Verify before expiry: %v", err)
	}

	// Move the clock past expiry; the stored status is still SEALED.
	svc.now = func() time.Time { return e.SealedAt.Add(2*time.Hour + time.Second) }
	_, err = svc.Verify(context.Background(), EnvelopeRef{ID: e.ID})
	if !fault.IsCode(err, fault.CodeEnvelopeExpired) {
		t.Fatalf("err = %v, want ENVELOPE_EXPIRED", err)
	}

	// Detection transitioned the stored status so later reads see EXPIRED
	// without consulting the clock.
	stored, err := store.GetByID(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("get envelope: %v", err)
	}
	if stored.Status != envelope.StatusExpired {
		t.Errorf("stored status = %s, want EXPIRED", stored.Status)
	}
}

func TestRevokeThenVerify(t *testing.T) {
	svc := NewEnvelopeService(memory.NewEnvelopeStore(), testLogger(), 0)
	e, err := svc.Seal(context.Background(), sealTestRequest())
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	if err := svc.Revoke(context.Background(), EnvelopeRef{ID: e.ID}); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	_, err = svc.Verify(context.Background(), EnvelopeRef{ID: e.ID})
	if !fault.IsCode(err, fault.CodeEnvelopeRevoked) {
		t.Fatalf("err = %v, want ENVELOPE_REVOKED", err)
	}
}

func TestRecordOutputOnce(t *testing.T) {
	store := memory.NewEnvelopeStore()
	svc := NewEnvelopeService(store, testLogger(), 0)
	e, err := svc.Seal(context.Background(), sealTestRequest())
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}

	first := envelope.HashOutput([]byte("original output"))
	if err := svc.RecordOutput(context.Background(), EnvelopeRef{ID: e.ID}, first); err != nil {
		t.Fatalf("RecordOutput: %v", err)
	}
	// The baseline is write-once; a second write must fail.
	second := envelope.HashOutput([]byte("tampered output"))
	if err := svc.RecordOutput(context.Background(), EnvelopeRef{ID: e.ID}, second); err == nil {
		t.Fatal("second RecordOutput should fail")
	}

	stored, err := store.GetByID(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("get envelope: %v", err)
	}
	if stored.OutputHash != first {
		t.Errorf("output hash = %s, want the first write to stand", stored.OutputHash)
	}
}

func TestIdenticalSealsShareHash(t *testing.T) {
	svc := NewEnvelopeService(memory.NewEnvelopeStore(), testLogger(), 0)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	a, err := svc.Seal(context.Background(), sealTestRequest())
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	b, err := svc.Seal(context.Background(), sealTestRequest())
	if err != nil {
		t.Fatalf("Seal: %v", err)
	}
	if a.SHA256Hash != b.SHA256Hash {
		t.Error("identical canonical fields at the same timestamp must share a hash")
	}
	// The second seal is deduplicated onto the first envelope rather than
	// minting a sibling record with the same hash.
	if b.ID != a.ID {
		t.Errorf("second seal minted envelope %s, want reuse of %s", b.ID, a.ID)
	}
}

// The persistent store enforces hash uniqueness at the schema level; sealing
// identical canonical fields twice must still succeed against it.
func TestIdenticalSealsDeduplicateOnDisk(t *testing.T) {
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "governor.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	svc := NewEnvelopeService(sqlite.NewEnvelopeStore(store), testLogger(), 0)
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	a, err := svc.Seal(context.Background(), sealTestRequest())
	if err != nil {
		t.Fatalf("first Seal: %v", err)
	}
	b, err := svc.Seal(context.Background(), sealTestRequest())
	if err != nil {
		t.Fatalf("second Seal: %v", err)
	}
	if b.ID != a.ID || b.SHA256Hash != a.SHA256Hash {
		t.Errorf("second seal = (%s, %s), want (%s, %s)", b.ID, b.SHA256Hash, a.ID, a.SHA256Hash)
	}

	if _, err := svc.Verify(context.Background(), EnvelopeRef{Hash: a.SHA256Hash}); err != nil {
		t.Fatalf("Verify by hash: %v", err)
	}
}
