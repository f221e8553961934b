package pages

import (
	"context"

	"github.com/johnrirwin/journalfeed/internal/journal"
	"github.com/johnrirwin/journalfeed/internal/logging"
)

// Homepage loads the recommendation feeds shown on the landing page.
type Homepage struct {
	deps    Deps
	tracker *tracker
}

func NewHomepage(deps Deps) *Homepage {
	deps = deps.withDefaults()
	return &Homepage{
		deps:    deps,
		tracker: newTracker("homepage", deps.Logger),
	}
}

func (h *Homepage) State() State {
	return h.tracker.snapshot()
}

// LoadAggregatedFeeds fetches every requested feed concurrently. An empty
// list loads all homepage feeds. A failing feed leaves the others intact:
// the page is PartialSuccess while at least one feed has something to show
// and Failed only when none do.
func (h *Homepage) LoadAggregatedFeeds(ctx context.Context, feeds []journal.Feed) Result[map[journal.Feed]FeedResult] {
	l := h.tracker.begin(ctx)
	res := h.load(l.ctx, feeds)
	finish(h.tracker, l, &res)
	return res
}

// Invalidate drops the cached copy of every homepage feed.
func (h *Homepage) Invalidate(ctx context.Context) {
	h.deps.Cache.Clear(ctx, h.cacheKeys()...)
	h.deps.Logger.Info("Homepage cache invalidated")
}

// ForceReload invalidates the feeds and loads them again from the API.
func (h *Homepage) ForceReload(ctx context.Context, feeds []journal.Feed) Result[map[journal.Feed]FeedResult] {
	h.Invalidate(ctx)
	return h.LoadAggregatedFeeds(ctx, feeds)
}

func (h *Homepage) cacheKeys() []string {
	feeds := journal.HomepageFeeds()
	keys := make([]string, 0, len(feeds))
	for _, f := range feeds {
		keys = append(keys, journal.HomepageCacheKey(f, h.deps.Settings.ArticlesPerSection))
	}
	return keys
}

func (h *Homepage) load(ctx context.Context, feeds []journal.Feed) Result[map[journal.Feed]FeedResult] {
	if len(feeds) == 0 {
		feeds = journal.HomepageFeeds()
	}

	limit := h.deps.Settings.ArticlesPerSection
	order := make([]journal.Feed, 0, len(feeds))
	sections := make([]section, 0, len(feeds))
	seen := make(map[journal.Feed]bool, len(feeds))
	for _, f := range feeds {
		if f == "" || seen[f] {
			continue
		}
		seen[f] = true
		order = append(order, f)
		sections = append(sections, section{
			label:   string(f),
			key:     journal.HomepageCacheKey(f, limit),
			ttl:     h.deps.Settings.FeedTTL,
			request: h.deps.API.HomepageRequest(f, limit),
			decode:  journal.DecodeHomepage,
		})
	}

	results, err := h.deps.loadSections(ctx, sections)
	if err != nil {
		h.deps.Logger.Error("Homepage fan-out rejected", logging.WithField("error", err.Error()))
		return Result[map[journal.Feed]FeedResult]{
			Status: StatusFailed,
			Err:    &LoadError{Category: CategoryServerError, Message: err.Error()},
		}
	}

	value := make(map[journal.Feed]FeedResult, len(results))
	empty := true
	for label, r := range results {
		value[journal.Feed(label)] = r
		if !r.Empty {
			empty = false
		}
	}

	failures, stale := sectionFailures(results)
	res := Result[map[journal.Feed]FeedResult]{
		Value:    value,
		Status:   StatusSuccess,
		Stale:    stale,
		Failures: failures,
	}

	switch {
	case len(failures) == 0:
		res.Empty = empty
	case len(failures) == len(order):
		res.Status = StatusFailed
		for _, f := range order {
			if le, ok := failures[string(f)]; ok {
				res.Err = le
				break
			}
		}
	default:
		res.Status = StatusPartialSuccess
	}
	return res
}
