// Package pages holds the page controllers: homepage, volumes list, volume
// detail, article detail and system status. Each controller owns the State
// of its latest load and builds on the shared fetch, cache and aggregator
// packages.
package pages

import (
	"time"

	"github.com/johnrirwin/journalfeed/internal/aggregator"
	"github.com/johnrirwin/journalfeed/internal/cache"
	"github.com/johnrirwin/journalfeed/internal/journal"
	"github.com/johnrirwin/journalfeed/internal/logging"
)

// Settings tunes how much each page asks for and how long results are
// cached.
type Settings struct {
	ArticlesPerSection int
	SimilarLimit       int
	HybridLimit        int
	VolumesTTL         time.Duration
	FeedTTL            time.Duration
	DetailTTL          time.Duration
}

func DefaultSettings() Settings {
	return Settings{
		ArticlesPerSection: 4,
		SimilarLimit:       4,
		HybridLimit:        4,
		VolumesTTL:         5 * time.Minute,
		FeedTTL:            5 * time.Minute,
		DetailTTL:          5 * time.Minute,
	}
}

// Deps are the shared collaborators every controller is built from.
type Deps struct {
	API          *journal.API
	Orchestrator *aggregator.Orchestrator
	Cache        *cache.Cache
	Logger       *logging.Logger
	Settings     Settings
}

func (d Deps) withDefaults() Deps {
	def := DefaultSettings()
	if d.Settings.ArticlesPerSection <= 0 {
		d.Settings.ArticlesPerSection = def.ArticlesPerSection
	}
	if d.Settings.SimilarLimit <= 0 {
		d.Settings.SimilarLimit = def.SimilarLimit
	}
	if d.Settings.HybridLimit <= 0 {
		d.Settings.HybridLimit = def.HybridLimit
	}
	return d
}
