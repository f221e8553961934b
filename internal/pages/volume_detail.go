package pages

import (
	"context"
	"fmt"

	"github.com/johnrirwin/journalfeed/internal/fetch"
	"github.com/johnrirwin/journalfeed/internal/journal"
	"github.com/johnrirwin/journalfeed/internal/models"
)

const labelRecommendations = "recommendations"

// VolumeView is everything the volume detail page renders.
type VolumeView struct {
	Detail          models.VolumeDetail `json:"detail"`
	Recommendations FeedResult          `json:"recommendations"`
}

// VolumeDetail loads one volume with its articles and, as a secondary
// section, recommendations seeded from the volume's first article.
type VolumeDetail struct {
	deps    Deps
	tracker *tracker
}

func NewVolumeDetail(deps Deps) *VolumeDetail {
	deps = deps.withDefaults()
	return &VolumeDetail{
		deps:    deps,
		tracker: newTracker("volume_detail", deps.Logger),
	}
}

func (v *VolumeDetail) State() State {
	return v.tracker.snapshot()
}

// LoadEntity loads the volume with the given issue id. Failing to load the
// volume fails the page; failing to load recommendations does not.
func (v *VolumeDetail) LoadEntity(ctx context.Context, issueID int) Result[VolumeView] {
	l := v.tracker.begin(ctx)
	res := v.load(l.ctx, issueID)
	finish(v.tracker, l, &res)
	return res
}

// Invalidate drops the cached copy of one volume.
func (v *VolumeDetail) Invalidate(ctx context.Context, issueID int) {
	v.deps.Cache.Clear(ctx, journal.VolumeCacheKey(issueID))
}

func (v *VolumeDetail) load(ctx context.Context, issueID int) Result[VolumeView] {
	if issueID <= 0 {
		return failed[VolumeView](fetch.NewError(fetch.KindNotFound, fmt.Sprintf("invalid volume id %d", issueID), nil))
	}

	detail, src, ferr := v.deps.loadVolumeDetail(ctx, issueID)
	if ferr != nil && src != sourceStale {
		return failed[VolumeView](ferr)
	}

	res := Result[VolumeView]{
		Value:  VolumeView{Detail: detail},
		Status: StatusSuccess,
		Empty:  len(detail.Articles) == 0,
	}
	if src == sourceStale {
		res.Stale = true
		res.Err = Classify(ferr)
	}

	seed := seedPublication(detail.Articles)
	if seed == 0 {
		res.Value.Recommendations = FeedResult{Label: labelRecommendations, Articles: []models.Article{}, Empty: true}
		return res
	}

	limit := v.deps.Settings.SimilarLimit
	results, err := v.deps.loadSections(ctx, []section{{
		label:   labelRecommendations,
		key:     journal.RecommendationsCacheKey(seed, limit),
		ttl:     v.deps.Settings.FeedTTL,
		request: v.deps.API.RecommendationsRequest(seed, limit),
		decode:  journal.DecodeRecommendations,
	}})
	if err != nil {
		res.Status = StatusPartialSuccess
		res.Failures = map[string]*LoadError{
			labelRecommendations: {Category: CategoryServerError, Message: err.Error()},
		}
		return res
	}

	res.Value.Recommendations = results[labelRecommendations]
	failures, stale := sectionFailures(results)
	if stale {
		res.Stale = true
	}
	if len(failures) > 0 {
		res.Status = StatusPartialSuccess
		res.Failures = failures
	}
	return res
}

func seedPublication(articles []models.Article) int {
	for _, a := range articles {
		if a.PublicationID > 0 {
			return a.PublicationID
		}
	}
	return 0
}
