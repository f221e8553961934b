package pages

import (
	"context"

	"github.com/johnrirwin/journalfeed/internal/fetch"
	"github.com/johnrirwin/journalfeed/internal/journal"
	"github.com/johnrirwin/journalfeed/internal/models"
)

// VolumesList loads the list of published volumes.
type VolumesList struct {
	deps    Deps
	tracker *tracker
}

func NewVolumesList(deps Deps) *VolumesList {
	deps = deps.withDefaults()
	return &VolumesList{
		deps:    deps,
		tracker: newTracker("volumes", deps.Logger),
	}
}

func (v *VolumesList) State() State {
	return v.tracker.snapshot()
}

// Load returns the volumes list, from cache when fresh. When the API fails
// the last cached list is served as stale. force drops the cached list
// first, so a forced load never falls back.
func (v *VolumesList) Load(ctx context.Context, force bool) Result[[]models.Volume] {
	l := v.tracker.begin(ctx)
	if force {
		v.Invalidate(l.ctx)
	}

	volumes, src, ferr := v.deps.loadVolumes(l.ctx)

	var res Result[[]models.Volume]
	switch {
	case ferr != nil && src != sourceStale:
		res = failed[[]models.Volume](ferr)
	default:
		res = Result[[]models.Volume]{
			Value:  volumes,
			Status: StatusSuccess,
			Empty:  len(volumes) == 0,
		}
		if src == sourceStale {
			res.Stale = true
			res.Err = Classify(ferr)
		}
	}

	finish(v.tracker, l, &res)
	return res
}

func (v *VolumesList) ForceReload(ctx context.Context) Result[[]models.Volume] {
	return v.Load(ctx, true)
}

// Invalidate drops the cached volumes list.
func (v *VolumesList) Invalidate(ctx context.Context) {
	v.deps.Cache.Clear(ctx, journal.VolumesCacheKey())
	v.deps.Logger.Info("Volumes cache invalidated")
}

// CheckConnectivity reports whether the API can be reached, without
// touching the cache.
func (v *VolumesList) CheckConnectivity(ctx context.Context) models.Connectivity {
	return v.deps.API.Connectivity(ctx)
}

func (d Deps) loadVolumes(ctx context.Context) ([]models.Volume, source, *fetch.Error) {
	return cachedLoad(ctx, d, journal.VolumesCacheKey(), d.Settings.VolumesTTL, d.API.Volumes)
}

func (d Deps) loadVolumeDetail(ctx context.Context, issueID int) (models.VolumeDetail, source, *fetch.Error) {
	return cachedLoad(ctx, d, journal.VolumeCacheKey(issueID), d.Settings.DetailTTL,
		func(ctx context.Context) (models.VolumeDetail, *fetch.Error) {
			return d.API.VolumeDetail(ctx, issueID)
		})
}
