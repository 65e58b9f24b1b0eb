package envelope

import (
	"testing"
	"time"
)

func baseFields() CanonicalFields {
	return CanonicalFields{
		SchemaVersion:         Version,
		PersonaID:             "persona-1",
		PolicyVersion:         3,
		AllowedCapabilities:   []string{"chat.complete", "search.web"},
		ForbiddenCapabilities: []string{"payments.execute"},
		MaxCostPerCall:        0.01,
		MaxLatencyMS:          5000,
		TerritoryID:           "territory-1",
		SealedAtUnixMS:        1700000000000,
	}
}

func TestComputeHashStable(t *testing.T) {
	a, err := ComputeHash(baseFields())
	if err != nil {
		t.Fatalf("ComputeHash: %v", err)
	}
	b, err := ComputeHash(baseFields())
	if err != nil {
		t.Fatalf("ComputeHash: %v", err)
	}
	if a != b {
		t.Errorf("identical fields produced different hashes:\n%s\n%s", a, b)
	}
	if len(a) != 64 {
		t.Errorf("hash length = %d, want 64 hex chars", len(a))
	}
}

func TestComputeHashIgnoresCapabilityOrder(t *testing.T) {
	f := baseFields()
	f.AllowedCapabilities = []string{"search.web", "chat.complete"}

	a, _ := ComputeHash(baseFields())
	b, _ := ComputeHash(f)
	if a != b {
		t.Error("capability list order must not perturb the hash")
	}
}

func TestComputeHashSensitivity(t *testing.T) {
	base, _ := ComputeHash(baseFields())

	mutations := []struct {
		name   string
		mutate func(*CanonicalFields)
	}{
		{"persona", func(f *CanonicalFields) { f.PersonaID = "persona-2" }},
		{"policy version", func(f *CanonicalFields) { f.PolicyVersion = 4 }},
		{"allowed set", func(f *CanonicalFields) { f.AllowedCapabilities = append(f.AllowedCapabilities, "email.send") }},
		{"forbidden set", func(f *CanonicalFields) { f.ForbiddenCapabilities = nil }},
		{"cost budget", func(f *CanonicalFields) { f.MaxCostPerCall = 0.02 }},
		{"latency budget", func(f *CanonicalFields) { f.MaxLatencyMS = 4000 }},
		{"territory", func(f *CanonicalFields) { f.TerritoryID = "territory-2" }},
		{"seal time", func(f *CanonicalFields) { f.SealedAtUnixMS++ }},
		{"schema version", func(f *CanonicalFields) { f.SchemaVersion++ }},
	}
	for _, tt := range mutations {
		t.Run(tt.name, func(t *testing.T) {
			f := baseFields()
			tt.mutate(&f)
			h, err := ComputeHash(f)
			if err != nil {
				t.Fatalf("ComputeHash: %v", err)
			}
			if h == base {
				t.Errorf("mutating %s did not change the hash", tt.name)
			}
		})
	}
}

func TestCanonicalTimestampTruncates(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	jittered := base.Add(400 * time.Microsecond)
	if CanonicalTimestamp(base) != CanonicalTimestamp(jittered) {
		t.Error("sub-millisecond jitter must not change the canonical timestamp")
	}
	if CanonicalTimestamp(base.Add(time.Millisecond)) == CanonicalTimestamp(base) {
		t.Error("a full millisecond must change the canonical timestamp")
	}
}

func TestHashOutputDiffers(t *testing.T) {
	a := HashOutput([]byte(`{"answer":42}`))
	b := HashOutput([]byte(`{"answer":43}`))
	if a == b {
		t.Error("different outputs hashed equal")
	}
	if a != HashOutput([]byte(`{"answer":42}`)) {
		t.Error("same output hashed differently")
	}
}
