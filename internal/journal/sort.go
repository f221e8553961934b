package journal

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/johnrirwin/journalfeed/internal/models"
)

// ArticleOrder is a sort order for volume article lists.
type ArticleOrder string

const (
	OrderDefault ArticleOrder = ""
	OrderTitle   ArticleOrder = "title"
	OrderAuthors ArticleOrder = "authors"
	OrderDate    ArticleOrder = "date"
)

func ParseArticleOrder(s string) (ArticleOrder, error) {
	switch o := ArticleOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case OrderDefault, OrderTitle, OrderAuthors, OrderDate:
		return o, nil
	default:
		return "", fmt.Errorf("unknown sort order %q", s)
	}
}

// SortArticles returns a sorted copy. Date order is newest first; the
// default order keeps the API's ordering.
func SortArticles(articles []models.Article, order ArticleOrder) []models.Article {
	out := make([]models.Article, len(articles))
	copy(out, articles)

	switch order {
	case OrderTitle:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].Title) < strings.ToLower(out[j].Title)
		})
	case OrderAuthors:
		sort.SliceStable(out, func(i, j int) bool {
			return strings.ToLower(out[i].AuthorLine) < strings.ToLower(out[j].AuthorLine)
		})
	case OrderDate:
		sort.SliceStable(out, func(i, j int) bool {
			return dateOrZero(out[i].DatePublished).After(dateOrZero(out[j].DatePublished))
		})
	}
	return out
}

func dateOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
