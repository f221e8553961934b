package journal

import (
	"fmt"
	"strings"
)

// Feed names one of the homepage recommendation feeds.
type Feed string

const (
	FeedRecent   Feed = "recent"
	FeedFeatured Feed = "featured"
	FeedPopular  Feed = "popular"
	FeedTrending Feed = "trending"
)

// HomepageFeeds returns the homepage sections in display order.
func HomepageFeeds() []Feed {
	return []Feed{FeedRecent, FeedFeatured, FeedPopular, FeedTrending}
}

func ParseFeed(s string) (Feed, error) {
	f := Feed(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range HomepageFeeds() {
		if f == known {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown feed %q", s)
}

// ParseFeeds parses a comma separated feed list. An empty list means every
// homepage feed.
func ParseFeeds(s string) ([]Feed, error) {
	if strings.TrimSpace(s) == "" {
		return HomepageFeeds(), nil
	}

	seen := make(map[Feed]bool)
	feeds := make([]Feed, 0, 4)
	for _, part := range strings.Split(s, ",") {
		f, err := ParseFeed(part)
		if err != nil {
			return nil, err
		}
		if seen[f] {
			continue
		}
		seen[f] = true
		feeds = append(feeds, f)
	}
	return feeds, nil
}
