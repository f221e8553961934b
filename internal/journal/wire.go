package journal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/johnrirwin/journalfeed/internal/models"
	"github.com/johnrirwin/journalfeed/internal/normalize"
)

const (
	abstractPreviewLength = 150
	defaultAccessStatus   = "open"
)

// flexInt accepts a JSON number, a numeric string or null.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			// Unparseable counts degrade to zero.
			*f = 0
			return nil
		}
		*f = flexInt(n)
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flexInt: %w", err)
	}
	*f = flexInt(n)
	return nil
}

// flexFloat accepts a JSON number, a numeric string or null.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = 0
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			*f = 0
			return nil
		}
		*f = flexFloat(n)
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flexFloat: %w", err)
	}
	*f = flexFloat(n)
	return nil
}

// flexString accepts a string, a number, a bool or null.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	*f = flexString(string(data))
	return nil
}

// flexBool accepts true/false, 0/1, "true"/"1" or null.
type flexBool bool

func (f *flexBool) UnmarshalJSON(data []byte) error {
	switch strings.Trim(strings.ToLower(string(bytes.TrimSpace(data))), `"`) {
	case "true", "1", "t", "yes":
		*f = true
	default:
		*f = false
	}
	return nil
}

// flexList accepts either a JSON array of strings or a single delimited
// string. Items are joined with sep so callers can split them uniformly.
type flexList struct {
	raw   string
	items []string
}

func (f *flexList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '[' {
		var items []flexString
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		f.items = make([]string, 0, len(items))
		for _, it := range items {
			f.items = append(f.items, string(it))
		}
		return nil
	}
	var s flexString
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	f.raw = string(s)
	return nil
}

func (f flexList) joined(sep string) string {
	if f.items != nil {
		return strings.Join(f.items, sep)
	}
	return f.raw
}

type wireVolume struct {
	IssueID             flexInt    `json:"issue_id"`
	Volume              flexString `json:"volume"`
	Number              flexString `json:"number"`
	Year                flexInt    `json:"year"`
	Title               flexString `json:"title"`
	Description         flexString `json:"description"`
	DatePublished       flexString `json:"date_published"`
	ArticlesCount       flexInt    `json:"articles_count"`
	AccessStatus        flexString `json:"access_status"`
	IsCurrent           flexBool   `json:"is_current"`
	CoverImage          flexString `json:"cover_image"`
	JournalTitle        flexString `json:"journal_title"`
	JournalAbbreviation flexString `json:"journal_abbreviation"`
	URL                 flexString `json:"url"`
	DisplayName         flexString `json:"display_name"`
}

type wireArticle struct {
	PublicationID       flexInt    `json:"publication_id"`
	TargetPublicationID flexInt    `json:"target_publication_id"`
	SubmissionID        flexInt    `json:"submission_id"`
	Title               flexString `json:"title"`
	Authors             flexList   `json:"authors"`
	Abstract            flexString `json:"abstract"`
	AbstractPreview     flexString `json:"abstract_preview"`
	Pages               flexString `json:"pages"`
	Keywords            flexList   `json:"keywords"`
	DatePublished       flexString `json:"date_published"`
	URL                 flexString `json:"url"`
	Score               flexFloat  `json:"score"`
	Rank                flexInt    `json:"rank"`
	SimilarityScore     flexFloat  `json:"similarity_score"`
	ConfidenceScore     flexFloat  `json:"confidence_score"`
	Algorithm           flexString `json:"algorithm"`
}

func (w wireVolume) normalize() models.Volume {
	number := normalize.FirstNonEmpty(string(w.Number))
	volume := normalize.FirstNonEmpty(string(w.Volume))
	id := int(w.IssueID)

	v := models.Volume{
		IssueID:             id,
		Volume:              volume,
		Number:              number,
		Year:                int(w.Year),
		Title:               normalize.FirstNonEmpty(cleanText(string(w.Title)), normalize.DefaultTitle),
		Description:         cleanText(string(w.Description)),
		DatePublished:       normalize.Date(string(w.DatePublished)),
		ArticlesCount:       int(w.ArticlesCount),
		AccessStatus:        normalize.FirstNonEmpty(string(w.AccessStatus), defaultAccessStatus),
		IsCurrent:           bool(w.IsCurrent),
		CoverImage:          strings.TrimSpace(string(w.CoverImage)),
		JournalTitle:        normalize.FirstNonEmpty(cleanText(string(w.JournalTitle)), normalize.DefaultJournal),
		JournalAbbreviation: cleanText(string(w.JournalAbbreviation)),
		URL:                 normalize.FirstNonEmpty(string(w.URL), fmt.Sprintf("/issue/view/%d", id)),
		DisplayName:         normalize.FirstNonEmpty(string(w.DisplayName), volumeLabel(volume, number)),
	}
	if v.ArticlesCount < 0 {
		v.ArticlesCount = 0
	}
	return v
}

func (w wireArticle) normalize() models.Article {
	authors := normalize.Authors(w.Authors.joined(";"), normalize.DetailAuthorLimit)
	abstract := normalize.StripHTML(string(w.Abstract))
	preview := normalize.StripHTML(string(w.AbstractPreview))
	if preview == "" {
		preview = normalize.Truncate(abstract, abstractPreviewLength)
	}

	pubID := int(w.PublicationID)
	if pubID == 0 {
		pubID = int(w.TargetPublicationID)
	}

	similarity := float64(w.SimilarityScore)
	if similarity == 0 {
		similarity = float64(w.Score)
	}

	return models.Article{
		PublicationID:   pubID,
		SubmissionID:    int(w.SubmissionID),
		Title:           normalize.FirstNonEmpty(normalize.StripHTML(string(w.Title)), normalize.DefaultTitle),
		Authors:         authors,
		AuthorLine:      normalize.AuthorLine(authors, normalize.ListAuthorLimit),
		Abstract:        abstract,
		AbstractPreview: preview,
		Pages:           strings.TrimSpace(string(w.Pages)),
		Keywords:        normalize.Keywords(w.Keywords.joined(",")),
		DatePublished:   normalize.Date(string(w.DatePublished)),
		URL:             strings.TrimSpace(string(w.URL)),
		Score:           float64(w.Score),
		Rank:            int(w.Rank),
		SimilarityScore: similarity,
		ConfidenceScore: float64(w.ConfidenceScore),
		Algorithm:       strings.TrimSpace(string(w.Algorithm)),
	}
}

func normalizeArticles(in []wireArticle) []models.Article {
	out := make([]models.Article, 0, len(in))
	for _, w := range in {
		out = append(out, w.normalize())
	}
	return out
}

func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// volumeLabel renders "Vol. 3, No. 2" style labels from whichever parts are
// present.
func volumeLabel(volume, number string) string {
	switch {
	case volume != "" && number != "":
		return fmt.Sprintf("Vol. %s, No. %s", volume, number)
	case volume != "":
		return "Vol. " + volume
	case number != "":
		return "No. " + number
	default:
		return "Unnumbered"
	}
}
