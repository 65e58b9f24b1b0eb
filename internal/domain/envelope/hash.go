package envelope

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// CanonicalFields is the decision-relevant subset the envelope hash covers.
// The hash is deliberately NOT computed over the whole content blob: fields
// outside this subset (display names, audit context) may vary without
// changing the decision, and must not perturb the hash.
//
// Field order and JSON encoding are part of the hash contract. Capability
// slices are sorted before encoding so logically equal sets hash equally.
type CanonicalFields struct {
	SchemaVersion         int      `json:"schema_version"`
	PersonaID             string   `json:"persona_id"`
	PolicyVersion         int      `json:"policy_version"`
	AllowedCapabilities   []string `json:"allowed_capabilities"`
	ForbiddenCapabilities []string `json:"forbidden_capabilities"`
	MaxCostPerCall        float64  `json:"max_cost_per_call"`
	MaxLatencyMS          int      `json:"max_latency_ms"`
	TerritoryID           string   `json:"territory_id"`
	SealedAtUnixMS        int64    `json:"sealed_at_unix_ms"`
}

// ComputeHash returns the hex-encoded SHA-256 over the canonical fields.
// Identical canonical fields at the same logical timestamp always produce
// the identical hash; changing any canonical field changes it.
func ComputeHash(f CanonicalFields) (string, error) {
	f.AllowedCapabilities = sortedCopy(f.AllowedCapabilities)
	f.ForbiddenCapabilities = sortedCopy(f.ForbiddenCapabilities)
	if f.AllowedCapabilities == nil {
		f.AllowedCapabilities = []string{}
	}
	if f.ForbiddenCapabilities == nil {
		f.ForbiddenCapabilities = []string{}
	}

	raw, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("marshal canonical fields: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// HashOutput returns the hex-encoded SHA-256 of an opaque execution output.
// The core never interprets the output beyond this hash.
func HashOutput(output []byte) string {
	sum := sha256.Sum256(output)
	return hex.EncodeToString(sum[:])
}

// CanonicalTimestamp truncates a seal time to millisecond precision in UTC.
// Sub-millisecond jitter must not produce distinct hashes for the same
// logical timestamp.
func CanonicalTimestamp(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func sortedCopy(in []string) []string {
	if in == nil {
		return nil
	}
	out := append([]string{}, in...)
	sort.Strings(out)
	return out
}
