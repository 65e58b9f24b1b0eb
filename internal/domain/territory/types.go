// Package territory contains domain types for the territory tree.
package territory

import "context"

// Level is the granularity of a territory node.
type Level string

const (
	LevelCity    Level = "city"
	LevelCountry Level = "country"
	LevelRegion  Level = "region"
	LevelGlobal  Level = "global"
)

// Territory is one node in the territory tree. Resolution walks exact match,
// then the parent chain, then the GLOBAL sentinel node.
type Territory struct {
	// ID is the unique identifier.
	ID string
	// Slug is the stable region code (e.g., "ae-dubai").
	Slug string
	// Name is the display name.
	Name string
	// Level is city, country, region, or global.
	Level Level
	// CoverageType describes how the territory is serviced (e.g., "direct",
	// "partner").
	CoverageType string
	// ParentID is the parent node, empty at the root.
	ParentID string
	// SubVerticals lists the sub-verticals enabled for this territory.
	// Empty means enabled for all.
	SubVerticals []string
}

// EnabledFor reports whether the territory is enabled for the sub-vertical.
func (t *Territory) EnabledFor(subVerticalID string) bool {
	if len(t.SubVerticals) == 0 {
		return true
	}
	for _, sv := range t.SubVerticals {
		if sv == subVerticalID {
			return true
		}
	}
	return false
}

// Store persists and retrieves territory nodes.
type Store interface {
	// GetBySlug returns the territory with the given slug, or nil if none.
	GetBySlug(ctx context.Context, slug string) (*Territory, error)
	// GetByID returns the territory with the given ID, or nil if none.
	GetByID(ctx context.Context, id string) (*Territory, error)
	// GetGlobal returns the GLOBAL sentinel node, or nil if none configured.
	GetGlobal(ctx context.Context) (*Territory, error)
	// Save creates or updates a territory node.
	Save(ctx context.Context, t *Territory) error
}
