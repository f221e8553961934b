package pages

import (
	"context"
	"fmt"

	"github.com/johnrirwin/journalfeed/internal/aggregator"
	"github.com/johnrirwin/journalfeed/internal/fetch"
	"github.com/johnrirwin/journalfeed/internal/journal"
	"github.com/johnrirwin/journalfeed/internal/logging"
	"github.com/johnrirwin/journalfeed/internal/models"
	"github.com/johnrirwin/journalfeed/internal/normalize"
)

const (
	labelSimilar = "similar"
	labelHybrid  = "hybrid"
)

// ArticleView is everything the article detail page renders.
type ArticleView struct {
	Article models.Article `json:"article"`
	Volume  models.Volume  `json:"volume"`
	Similar FeedResult     `json:"similar"`
	Hybrid  FeedResult     `json:"hybrid"`
}

type located struct {
	article models.Article
	volume  models.Volume
}

// ArticleDetail finds an article by scanning volumes in list order, then
// loads similar articles and featured picks alongside it.
type ArticleDetail struct {
	deps    Deps
	tracker *tracker
}

func NewArticleDetail(deps Deps) *ArticleDetail {
	deps = deps.withDefaults()
	return &ArticleDetail{
		deps:    deps,
		tracker: newTracker("article_detail", deps.Logger),
	}
}

func (a *ArticleDetail) State() State {
	return a.tracker.snapshot()
}

// LoadEntity loads the article with the given submission or publication id.
func (a *ArticleDetail) LoadEntity(ctx context.Context, articleID int) Result[ArticleView] {
	l := a.tracker.begin(ctx)
	res := a.load(l.ctx, articleID)
	finish(a.tracker, l, &res)
	return res
}

func (a *ArticleDetail) load(ctx context.Context, articleID int) Result[ArticleView] {
	if articleID <= 0 {
		return failed[ArticleView](fetch.NewError(fetch.KindNotFound, fmt.Sprintf("invalid article id %d", articleID), nil))
	}

	volumes, src, ferr := a.deps.loadVolumes(ctx)
	if ferr != nil && src != sourceStale {
		return failed[ArticleView](ferr)
	}
	stale := src == sourceStale

	found, stats, ok := aggregator.Search(ctx, volumes, func(ctx context.Context, vol models.Volume) (located, bool, error) {
		detail, src, ferr := a.deps.loadVolumeDetail(ctx, vol.IssueID)
		if ferr != nil && src != sourceStale {
			return located{}, false, ferr
		}
		if src == sourceStale {
			stale = true
		}
		article, ok := detail.FindArticle(articleID)
		if !ok {
			return located{}, false, nil
		}
		issue := detail.Issue
		if issue.IssueID == 0 {
			issue = vol
		}
		return located{article: article, volume: issue}, true, nil
	})

	a.deps.Logger.Debug("Article search finished", logging.WithFields(map[string]interface{}{
		"article_id": articleID,
		"found":      ok,
		"checked":    stats.Checked,
		"errors":     stats.Errors,
	}))

	if !ok {
		if stats.Checked > 0 && stats.Errors == stats.Checked {
			return failed[ArticleView](fetch.AsError(stats.LastErr))
		}
		if stats.LastErr != nil && ctx.Err() != nil {
			return failed[ArticleView](fetch.NewError(fetch.KindNetwork, "request cancelled", ctx.Err()))
		}
		return failed[ArticleView](fetch.NewError(fetch.KindNotFound, fmt.Sprintf("article %d not found", articleID), nil))
	}

	article := found.article
	article.AuthorLine = normalize.AuthorLine(article.Authors, normalize.DetailAuthorLimit)

	res := Result[ArticleView]{
		Value:  ArticleView{Article: article, Volume: found.volume},
		Status: StatusSuccess,
		Stale:  stale,
	}

	results, err := a.deps.loadSections(ctx, a.sections(found.article))
	if err != nil {
		res.Status = StatusPartialSuccess
		res.Failures = map[string]*LoadError{
			labelSimilar: {Category: CategoryServerError, Message: err.Error()},
		}
		return res
	}

	res.Value.Similar = sectionOrEmpty(results, labelSimilar)
	res.Value.Hybrid = sectionOrEmpty(results, labelHybrid)
	res.Value.Hybrid.Articles = withoutArticle(res.Value.Hybrid.Articles, found.article)
	res.Value.Hybrid.Empty = len(res.Value.Hybrid.Articles) == 0

	failures, sectionsStale := sectionFailures(results)
	if sectionsStale {
		res.Stale = true
	}
	if len(failures) > 0 {
		res.Status = StatusPartialSuccess
		res.Failures = failures
	}
	return res
}

func (a *ArticleDetail) sections(article models.Article) []section {
	s := a.deps.Settings
	sections := make([]section, 0, 2)
	if article.PublicationID > 0 {
		sections = append(sections, section{
			label:   labelSimilar,
			key:     journal.RecommendationsCacheKey(article.PublicationID, s.SimilarLimit),
			ttl:     s.FeedTTL,
			request: a.deps.API.RecommendationsRequest(article.PublicationID, s.SimilarLimit),
			decode:  journal.DecodeRecommendations,
		})
	}
	sections = append(sections, section{
		label:   labelHybrid,
		key:     journal.HomepageCacheKey(journal.FeedFeatured, s.HybridLimit),
		ttl:     s.FeedTTL,
		request: a.deps.API.HomepageRequest(journal.FeedFeatured, s.HybridLimit),
		decode:  journal.DecodeHomepage,
	})
	return sections
}

func sectionOrEmpty(results map[string]FeedResult, label string) FeedResult {
	if r, ok := results[label]; ok {
		return r
	}
	return FeedResult{Label: label, Articles: []models.Article{}, Empty: true}
}

func withoutArticle(articles []models.Article, current models.Article) []models.Article {
	out := make([]models.Article, 0, len(articles))
	for _, a := range articles {
		if current.PublicationID > 0 && a.PublicationID == current.PublicationID {
			continue
		}
		if current.SubmissionID > 0 && a.SubmissionID == current.SubmissionID {
			continue
		}
		out = append(out, a)
	}
	return out
}
