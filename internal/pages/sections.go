package pages

import (
	"context"
	"time"

	"github.com/johnrirwin/journalfeed/internal/aggregator"
	"github.com/johnrirwin/journalfeed/internal/fetch"
	"github.com/johnrirwin/journalfeed/internal/logging"
	"github.com/johnrirwin/journalfeed/internal/models"
)

// FeedResult is one article list on a page: a homepage feed or a
// recommendation block.
type FeedResult struct {
	Label    string           `json:"label"`
	Articles []models.Article `json:"articles"`
	Err      *LoadError       `json:"error,omitempty"`
	Empty    bool             `json:"empty"`
	Stale    bool             `json:"stale"`
	Cached   bool             `json:"cached"`
}

// Failed reports whether the section has nothing to show because its fetch
// failed and no stale copy was available.
func (f FeedResult) Failed() bool {
	return f.Err != nil && !f.Stale
}

type section struct {
	label   string
	key     string
	ttl     time.Duration
	request fetch.Request
	decode  func([]byte) ([]models.Article, *fetch.Error)
}

// loadSections serves each section from a fresh cache entry when possible
// and fans the rest out through the orchestrator. A failed section falls
// back to its stale cache entry, or to an empty list.
func (d Deps) loadSections(ctx context.Context, sections []section) (map[string]FeedResult, error) {
	results := make(map[string]FeedResult, len(sections))
	byLabel := make(map[string]section, len(sections))
	tasks := make([]aggregator.Task, 0, len(sections))

	for _, s := range sections {
		var cached []models.Article
		if d.Cache.GetJSON(ctx, s.key, &cached) {
			results[s.label] = FeedResult{
				Label:    s.label,
				Articles: cached,
				Empty:    len(cached) == 0,
				Cached:   true,
			}
			continue
		}
		byLabel[s.label] = s
		tasks = append(tasks, aggregator.Task{Label: s.label, Request: s.request})
	}

	if len(tasks) == 0 {
		return results, nil
	}

	outcomes, err := d.Orchestrator.RunAll(ctx, tasks)
	if err != nil {
		return nil, err
	}

	for label, out := range outcomes {
		s := byLabel[label]

		articles, ferr := []models.Article(nil), out.Err
		if out.OK() {
			articles, ferr = s.decode(out.Payload)
		}

		if ferr == nil {
			d.Cache.SetJSON(ctx, s.key, articles, s.ttl)
			results[label] = FeedResult{
				Label:    label,
				Articles: articles,
				Empty:    len(articles) == 0,
			}
			continue
		}

		res := FeedResult{
			Label:    label,
			Articles: []models.Article{},
			Err:      Classify(ferr),
		}
		if stale, ok := peekJSON[[]models.Article](ctx, d, s.key); ok {
			res.Articles = stale
			res.Stale = true
			res.Empty = len(stale) == 0
		}
		d.Logger.Warn("Section fetch failed", logging.WithFields(map[string]interface{}{
			"section": label,
			"error":   ferr.Error(),
			"stale":   res.Stale,
		}))
		results[label] = res
	}

	return results, nil
}

// sectionFailures collects the sections that have nothing to show, and
// whether any section is being served stale.
func sectionFailures(results map[string]FeedResult) (map[string]*LoadError, bool) {
	var (
		failures map[string]*LoadError
		stale    bool
	)
	for label, r := range results {
		if r.Stale {
			stale = true
		}
		if r.Failed() {
			if failures == nil {
				failures = make(map[string]*LoadError)
			}
			failures[label] = r.Err
		}
	}
	return failures, stale
}
