package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/siva-ai/governor/internal/adapter/outbound/sqlite"
	"github.com/siva-ai/governor/internal/config"
	"github.com/siva-ai/governor/internal/domain/model"
	"github.com/siva-ai/governor/internal/domain/persona"
	"github.com/siva-ai/governor/internal/domain/territory"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load personas, policies, territories, and models from YAML",
	Long: `Load governance data into storage from a YAML fixture file.

Personas are created with their policy activated. Territories reference
their parent by slug. Running seed twice upserts personas, territories,
and models by key/slug; a policy version already active is left alone.

Example fixture:

  personas:
    - key: default-agent
      name: Default Agent
      sub_vertical_id: general
      scope: GLOBAL
      policy:
        version: 1
        allowed_capabilities: [chat.complete]
        max_cost_per_call: 0.01
        max_latency_ms: 5000
  territories:
    - slug: global
      name: Global
      level: global
  models:
    - slug: swift-mini
      stability_score: 95
      avg_latency_ms: 400
      cost_per_unit: 0.004
      supported_capabilities: [chat.complete]
      eligible: true`,
	RunE: runSeed,
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "YAML fixture file (required)")
	_ = seedCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(seedCmd)
}

type seedPolicy struct {
	Version               int      `yaml:"version" validate:"required,gt=0"`
	AllowedIntents        []string `yaml:"allowed_intents"`
	ForbiddenOutputs      []string `yaml:"forbidden_outputs"`
	AllowedTools          []string `yaml:"allowed_tools"`
	AllowedCapabilities   []string `yaml:"allowed_capabilities"`
	ForbiddenCapabilities []string `yaml:"forbidden_capabilities"`
	MaxCostPerCall        float64  `yaml:"max_cost_per_call" validate:"gte=0"`
	MaxLatencyMS          int      `yaml:"max_latency_ms" validate:"gte=0"`
}

type seedPersona struct {
	Key           string      `yaml:"key" validate:"required"`
	Name          string      `yaml:"name" validate:"required"`
	Mission       string      `yaml:"mission"`
	DecisionLens  string      `yaml:"decision_lens"`
	SubVerticalID string      `yaml:"sub_vertical_id" validate:"required"`
	RegionCode    string      `yaml:"region_code"`
	Scope         string      `yaml:"scope" validate:"required,oneof=LOCAL REGIONAL GLOBAL"`
	Policy        *seedPolicy `yaml:"policy"`
}

type seedTerritory struct {
	Slug         string   `yaml:"slug" validate:"required"`
	Name         string   `yaml:"name" validate:"required"`
	Level        string   `yaml:"level" validate:"required,oneof=city country region global"`
	CoverageType string   `yaml:"coverage_type"`
	Parent       string   `yaml:"parent"`
	SubVerticals []string `yaml:"sub_verticals"`
}

type seedModel struct {
	Slug                   string   `yaml:"slug" validate:"required"`
	StabilityScore         float64  `yaml:"stability_score" validate:"gte=0,lte=100"`
	AvgLatencyMS           float64  `yaml:"avg_latency_ms" validate:"gte=0"`
	CostPerUnit            float64  `yaml:"cost_per_unit" validate:"gte=0"`
	SupportedCapabilities  []string `yaml:"supported_capabilities"`
	DisallowedCapabilities []string `yaml:"disallowed_capabilities"`
	Eligible               bool     `yaml:"eligible"`
}

type seedFixture struct {
	Personas    []seedPersona   `yaml:"personas" validate:"omitempty,dive"`
	Territories []seedTerritory `yaml:"territories" validate:"omitempty,dive"`
	Models      []seedModel     `yaml:"models" validate:"omitempty,dive"`
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	raw, err := os.ReadFile(seedFile)
	if err != nil {
		return fmt.Errorf("read fixture: %w", err)
	}
	var fixture seedFixture
	if err := yaml.Unmarshal(raw, &fixture); err != nil {
		return fmt.Errorf("parse fixture: %w", err)
	}
	if err := validator.New().Struct(&fixture); err != nil {
		return fmt.Errorf("invalid fixture: %w", err)
	}

	store, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer func() { _ = store.Close() }()

	ctx := cmd.Context()
	if err := seedTerritories(ctx, sqlite.NewTerritoryStore(store), fixture.Territories); err != nil {
		return err
	}
	if err := seedModels(ctx, sqlite.NewModelStore(store), fixture.Models); err != nil {
		return err
	}
	if err := seedPersonas(ctx, sqlite.NewPersonaStore(store), fixture.Personas); err != nil {
		return err
	}

	fmt.Printf("seeded %d personas, %d territories, %d models\n",
		len(fixture.Personas), len(fixture.Territories), len(fixture.Models))
	return nil
}

// seedTerritories inserts nodes in two passes so a child can reference a
// parent defined later in the file.
func seedTerritories(ctx context.Context, store *sqlite.TerritoryStore, fixtures []seedTerritory) error {
	idBySlug := make(map[string]string, len(fixtures))
	for _, f := range fixtures {
		existing, err := store.GetBySlug(ctx, f.Slug)
		if err != nil {
			return fmt.Errorf("seed territory %s: %w", f.Slug, err)
		}
		id := uuid.NewString()
		if existing != nil {
			id = existing.ID
		}
		idBySlug[f.Slug] = id
		if err := store.Save(ctx, &territory.Territory{
			ID:           id,
			Slug:         f.Slug,
			Name:         f.Name,
			Level:        territory.Level(f.Level),
			CoverageType: f.CoverageType,
			SubVerticals: f.SubVerticals,
		}); err != nil {
			return fmt.Errorf("seed territory %s: %w", f.Slug, err)
		}
	}
	for _, f := range fixtures {
		if f.Parent == "" {
			continue
		}
		parentID, ok := idBySlug[f.Parent]
		if !ok {
			parent, err := store.GetBySlug(ctx, f.Parent)
			if err != nil {
				return fmt.Errorf("seed territory %s: %w", f.Slug, err)
			}
			if parent == nil {
				return fmt.Errorf("seed territory %s: parent %q not found", f.Slug, f.Parent)
			}
			parentID = parent.ID
		}
		if err := store.Save(ctx, &territory.Territory{
			ID:           idBySlug[f.Slug],
			Slug:         f.Slug,
			Name:         f.Name,
			Level:        territory.Level(f.Level),
			CoverageType: f.CoverageType,
			ParentID:     parentID,
			SubVerticals: f.SubVerticals,
		}); err != nil {
			return fmt.Errorf("seed territory %s: %w", f.Slug, err)
		}
	}
	return nil
}

func seedModels(ctx context.Context, store *sqlite.ModelStore, fixtures []seedModel) error {
	for _, f := range fixtures {
		id := uuid.NewString()
		if existing, err := store.GetBySlug(ctx, f.Slug); err != nil {
			return fmt.Errorf("seed model %s: %w", f.Slug, err)
		} else if existing != nil {
			id = existing.ID
		}
		if err := store.Save(ctx, &model.Model{
			ID:                     id,
			Slug:                   f.Slug,
			StabilityScore:         f.StabilityScore,
			AvgLatencyMS:           f.AvgLatencyMS,
			CostPerUnit:            f.CostPerUnit,
			SupportedCapabilities:  f.SupportedCapabilities,
			DisallowedCapabilities: f.DisallowedCapabilities,
			Eligible:               f.Eligible,
			Active:                 true,
		}); err != nil {
			return fmt.Errorf("seed model %s: %w", f.Slug, err)
		}
	}
	return nil
}

func seedPersonas(ctx context.Context, store *sqlite.PersonaStore, fixtures []seedPersona) error {
	for _, f := range fixtures {
		id := uuid.NewString()
		if existing, err := store.GetPersonaByKey(ctx, f.Key); err != nil {
			return fmt.Errorf("seed persona %s: %w", f.Key, err)
		} else if existing != nil {
			id = existing.ID
		}
		p := &persona.Persona{
			ID:            id,
			Key:           f.Key,
			Name:          f.Name,
			Mission:       f.Mission,
			DecisionLens:  f.DecisionLens,
			SubVerticalID: f.SubVerticalID,
			RegionCode:    f.RegionCode,
			Scope:         persona.Scope(f.Scope),
			Active:        true,
			CreatedAt:     time.Now().UTC(),
		}
		if err := store.SavePersona(ctx, p); err != nil {
			return fmt.Errorf("seed persona %s: %w", f.Key, err)
		}
		if f.Policy == nil {
			continue
		}
		// Reseeding the same policy version is a no-op; versions are
		// unique per persona.
		active, err := store.GetActivePolicies(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("seed policy for %s: %w", f.Key, err)
		}
		if len(active) == 1 && active[0].Version == f.Policy.Version {
			continue
		}
		pol := &persona.Policy{
			ID:                    uuid.NewString(),
			PersonaID:             p.ID,
			Version:               f.Policy.Version,
			AllowedIntents:        f.Policy.AllowedIntents,
			ForbiddenOutputs:      f.Policy.ForbiddenOutputs,
			AllowedTools:          f.Policy.AllowedTools,
			AllowedCapabilities:   f.Policy.AllowedCapabilities,
			ForbiddenCapabilities: f.Policy.ForbiddenCapabilities,
			MaxCostPerCall:        f.Policy.MaxCostPerCall,
			MaxLatencyMS:          f.Policy.MaxLatencyMS,
			Status:                persona.StatusDraft,
			CreatedAt:             time.Now().UTC(),
		}
		if err := store.SavePolicy(ctx, pol); err != nil {
			return fmt.Errorf("seed policy for %s: %w", f.Key, err)
		}
		if err := store.ActivatePolicy(ctx, p.ID, pol.ID); err != nil {
			return fmt.Errorf("activate policy for %s: %w", f.Key, err)
		}
	}
	return nil
}
