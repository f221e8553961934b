// Package normalize cleans the loosely shaped text fields returned by the
// journal API: author lists, HTML abstracts, keywords and dates.
package normalize

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

const (
	DefaultAuthor  = "author unspecified"
	DefaultTitle   = "Untitled"
	DefaultJournal = "Scientific Journal"

	// ListAuthorLimit caps author lines on feeds and volume listings.
	ListAuthorLimit = 3
	// DetailAuthorLimit caps author lines on the article detail page.
	DetailAuthorLimit = 5
)

var folder = cases.Fold()

// Authors splits a "; "-separated author string, drops fragments and
// duplicates, and keeps at most limit names. A limit of zero or less keeps
// every name.
func Authors(raw string, limit int) []string {
	if strings.TrimSpace(raw) == "" {
		return []string{}
	}

	seen := make(map[string]bool)
	result := make([]string, 0, 4)
	for _, part := range strings.Split(raw, ";") {
		name := collapseSpace(norm.NFC.String(part))
		if utf8.RuneCountInString(name) <= 2 {
			continue
		}

		key := folder.String(name)
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, name)

		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result
}

// AuthorLine renders at most limit authors. Reaching the limit adds an
// "et al." suffix since the list was likely truncated upstream.
func AuthorLine(authors []string, limit int) string {
	if len(authors) == 0 {
		return DefaultAuthor
	}
	shown := authors
	if limit > 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	line := strings.Join(shown, ", ")
	if limit > 0 && len(authors) >= limit {
		line += " et al."
	}
	return line
}

// StripHTML returns the text content of an HTML fragment with whitespace
// collapsed.
func StripHTML(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return collapseSpace(fragment)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return collapseSpace(fragment)
	}
	doc.Find("script, style").Remove()
	return collapseSpace(doc.Find("body").Text())
}

// Truncate shortens s to max runes and appends "...".
func Truncate(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:max])) + "..."
}

// Keywords splits a comma or semicolon separated keyword string.
func Keywords(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ';'
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if k := collapseSpace(f); k != "" {
			out = append(out, k)
		}
	}
	return out
}

var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Date parses the ISO-ish timestamps the API emits. Unparseable or empty
// input yields nil.
func Date(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

// FirstNonEmpty returns the first value that is not blank.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
