package models

import "time"

// Volume is a journal issue as listed by the volumes endpoints.
type Volume struct {
	IssueID             int        `json:"issueId"`
	Volume              string     `json:"volume,omitempty"`
	Number              string     `json:"number,omitempty"`
	Year                int        `json:"year,omitempty"`
	Title               string     `json:"title"`
	Description         string     `json:"description,omitempty"`
	DatePublished       *time.Time `json:"datePublished,omitempty"`
	ArticlesCount       int        `json:"articlesCount"`
	AccessStatus        string     `json:"accessStatus,omitempty"`
	IsCurrent           bool       `json:"isCurrent"`
	CoverImage          string     `json:"coverImage,omitempty"`
	JournalTitle        string     `json:"journalTitle"`
	JournalAbbreviation string     `json:"journalAbbreviation,omitempty"`
	URL                 string     `json:"url,omitempty"`
	DisplayName         string     `json:"displayName"`
}

// Article is a published article. Ranking fields are only populated when the
// article came from a recommendation or homepage feed.
type Article struct {
	PublicationID   int        `json:"publicationId"`
	SubmissionID    int        `json:"submissionId,omitempty"`
	Title           string     `json:"title"`
	Authors         []string   `json:"authors"`
	AuthorLine      string     `json:"authorLine"`
	Abstract        string     `json:"abstract,omitempty"`
	AbstractPreview string     `json:"abstractPreview,omitempty"`
	Pages           string     `json:"pages,omitempty"`
	Keywords        []string   `json:"keywords,omitempty"`
	DatePublished   *time.Time `json:"datePublished,omitempty"`
	URL             string     `json:"url,omitempty"`
	Score           float64    `json:"score,omitempty"`
	Rank            int        `json:"rank,omitempty"`
	SimilarityScore float64    `json:"similarityScore,omitempty"`
	ConfidenceScore float64    `json:"confidenceScore,omitempty"`
	Algorithm       string     `json:"algorithm,omitempty"`
}

// Matches reports whether id refers to this article by either submission or
// publication id.
func (a Article) Matches(id int) bool {
	if id == 0 {
		return false
	}
	return a.SubmissionID == id || a.PublicationID == id
}

type VolumeDetail struct {
	Issue    Volume    `json:"issue"`
	Articles []Article `json:"articles"`
}

// FindArticle returns the first article matching id.
func (v VolumeDetail) FindArticle(id int) (Article, bool) {
	for _, a := range v.Articles {
		if a.Matches(id) {
			return a, true
		}
	}
	return Article{}, false
}

// Health is the upstream /health payload.
type Health struct {
	Status       string `json:"status"`
	System       string `json:"system,omitempty"`
	Version      string `json:"version,omitempty"`
	Database     string `json:"database,omitempty"`
	Scheduler    string `json:"scheduler,omitempty"`
	CacheRecords int    `json:"cacheRecords,omitempty"`
	CacheStatus  string `json:"cacheStatus,omitempty"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
}

func (h Health) Healthy() bool {
	return h.Status == "healthy"
}

// CacheStatistics summarizes the upstream recommendation cache.
type CacheStatistics struct {
	TotalRecords      int        `json:"totalRecords"`
	UniqueSources     int        `json:"uniqueSources"`
	UniqueTargets     int        `json:"uniqueTargets"`
	AverageSimilarity float64    `json:"averageSimilarity"`
	MinSimilarity     float64    `json:"minSimilarity,omitempty"`
	MaxSimilarity     float64    `json:"maxSimilarity,omitempty"`
	Oldest            *time.Time `json:"oldest,omitempty"`
	Newest            *time.Time `json:"newest,omitempty"`
}

// ServiceStatus is the upstream /status payload.
type ServiceStatus struct {
	SystemStatus                string          `json:"systemStatus"`
	SchedulerRunning            bool            `json:"schedulerRunning"`
	DataSource                  string          `json:"dataSource,omitempty"`
	ArticlesWithRecommendations int             `json:"articlesWithRecommendations"`
	TotalRecommendations        int             `json:"totalRecommendations"`
	AverageSimilarity           float64         `json:"averageSimilarity"`
	Cache                       CacheStatistics `json:"cacheStatistics"`
}

// CacheStatus is the upstream /admin/cache-status payload.
type CacheStatus struct {
	Statistics     CacheStatistics `json:"statistics"`
	TopRecommended []Article       `json:"topRecommended,omitempty"`
}

// SystemStats are the headline counters shown on the homepage and status
// views.
type SystemStats struct {
	SystemStatus                string  `json:"systemStatus,omitempty"`
	SchedulerRunning            bool    `json:"schedulerRunning"`
	ArticlesWithRecommendations int     `json:"articlesWithRecommendations"`
	TotalRecommendations        int     `json:"totalRecommendations"`
	AverageSimilarity           float64 `json:"averageSimilarity"`
	CacheRecords                int     `json:"cacheRecords"`
}

type Connectivity struct {
	Online    bool      `json:"online"`
	Status    string    `json:"status"`
	CheckedAt time.Time `json:"checkedAt"`
}
