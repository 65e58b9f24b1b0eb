package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/siva-ai/governor/internal/domain/model"
	"github.com/siva-ai/governor/internal/domain/replay"
)

func TestModelStoreListActive(t *testing.T) {
	store := openTestStore(t)
	models := NewModelStore(store)
	ctx := context.Background()

	rows := []*model.Model{
		{
			ID: "model-a", Slug: "swift-mini",
			StabilityScore: 95, AvgLatencyMS: 400, CostPerUnit: 0.004,
			SupportedCapabilities: []string{"chat.complete"},
			Eligible:              true, Active: true,
		},
		{
			ID: "model-b", Slug: "retired-std",
			StabilityScore: 90, AvgLatencyMS: 800, CostPerUnit: 0.002,
			SupportedCapabilities: []string{"chat.complete"},
			Eligible:              true, Active: false,
		},
		{
			ID: "model-c", Slug: "quarantined",
			StabilityScore: 88, AvgLatencyMS: 600, CostPerUnit: 0.003,
			SupportedCapabilities: []string{"chat.complete"},
			Eligible:              false, Active: true,
		},
	}
	for _, m := range rows {
		if err := models.Save(ctx, m); err != nil {
			t.Fatalf("save model %s: %v", m.Slug, err)
		}
	}

	active, err := models.ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].ID != "model-a" {
		t.Fatalf("active = %+v, want only model-a", active)
	}
	if len(active[0].SupportedCapabilities) != 1 {
		t.Errorf("capabilities roundtrip = %v", active[0].SupportedCapabilities)
	}

	bySlug, err := models.GetBySlug(ctx, "retired-std")
	if err != nil || bySlug == nil || bySlug.ID != "model-b" {
		t.Errorf("GetBySlug = %+v, %v", bySlug, err)
	}
	if missing, _ := models.GetBySlug(ctx, "never-seeded"); missing != nil {
		t.Errorf("unknown slug returned %+v", missing)
	}
}

func TestReplayStoreCompleteOnce(t *testing.T) {
	store := openTestStore(t)
	replays := NewReplayStore(store)
	ctx := context.Background()

	a := &replay.Attempt{
		ID:                 "replay-1",
		EnvelopeID:         "env-1",
		EnvelopeHash:       "aaaa1111",
		Status:             replay.StatusPending,
		OriginalOutputHash: "out-1",
		Context:            "incident-42",
		CreatedAt:          time.Now().UTC(),
	}
	if err := replays.Insert(ctx, a); err != nil {
		t.Fatalf("insert attempt: %v", err)
	}

	a.Status = replay.StatusMatched
	a.ReplayOutputHash = "out-1"
	a.CompletedAt = time.Now().UTC()
	if err := replays.Complete(ctx, a); err != nil {
		t.Fatalf("complete attempt: %v", err)
	}

	got, err := replays.Get(ctx, "replay-1")
	if err != nil {
		t.Fatalf("get attempt: %v", err)
	}
	if got.Status != replay.StatusMatched || got.ReplayOutputHash != "out-1" {
		t.Errorf("after complete: %+v", got)
	}

	// Terminal attempts never transition again.
	a.Status = replay.StatusDrifted
	if err := replays.Complete(ctx, a); err == nil {
		t.Fatal("completing a terminal attempt should fail")
	}
}
