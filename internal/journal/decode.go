package journal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/johnrirwin/journalfeed/internal/fetch"
	"github.com/johnrirwin/journalfeed/internal/models"
	"github.com/johnrirwin/journalfeed/internal/normalize"
)

// placeholders are "no value" strings the upstream API substitutes for
// missing fields. They are treated as absent so our own defaults apply.
var placeholders = map[string]bool{
	"autor no especificado":  true,
	"sin título":             true,
	"sin titulo":             true,
	"sin resumen disponible": true,
	"no especificado":        true,
	"author unspecified":     true,
	"no abstract available":  true,
}

func scrub(s flexString) flexString {
	if placeholders[strings.ToLower(strings.TrimSpace(string(s)))] {
		return ""
	}
	return s
}

func (w *wireArticle) scrub() {
	w.Title = scrub(w.Title)
	w.Abstract = scrub(w.Abstract)
	w.AbstractPreview = scrub(w.AbstractPreview)
	w.Pages = scrub(w.Pages)
	if w.Authors.items == nil && placeholders[strings.ToLower(strings.TrimSpace(w.Authors.raw))] {
		w.Authors.raw = ""
	}
}

func invalid(what string, err error) *fetch.Error {
	return fetch.NewError(fetch.KindInvalidPayload, fmt.Sprintf("decode %s: %v", what, err), err)
}

// upstreamError reports the "error" field some routes return with a 200.
func upstreamError(payload []byte) (string, bool) {
	var body struct {
		Error *flexString `json:"error"`
	}
	if err := json.Unmarshal(payload, &body); err != nil || body.Error == nil {
		return "", false
	}
	msg := strings.TrimSpace(string(*body.Error))
	if msg == "" {
		msg = "upstream reported an error"
	}
	return msg, true
}

// DecodeVolumes accepts {"volumes": [...]} or a bare array. An object without
// a volumes list is rejected.
func DecodeVolumes(payload []byte) ([]models.Volume, *fetch.Error) {
	trimmed := bytes.TrimSpace(payload)

	var wire []wireVolume
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &wire); err != nil {
			return nil, invalid("volumes", err)
		}
	} else {
		var body struct {
			Volumes *[]wireVolume `json:"volumes"`
		}
		if err := json.Unmarshal(trimmed, &body); err != nil {
			return nil, invalid("volumes", err)
		}
		if body.Volumes == nil {
			msg, ok := upstreamError(trimmed)
			if !ok {
				msg = "volumes response has no volumes list"
			}
			return nil, fetch.NewError(fetch.KindInvalidPayload, msg, nil)
		}
		wire = *body.Volumes
	}

	volumes := make([]models.Volume, 0, len(wire))
	for _, w := range wire {
		volumes = append(volumes, w.normalize())
	}
	return volumes, nil
}

// DecodeVolumeDetail decodes {"issue": {...}, "articles": [...]}. A body with
// an "error" field means the issue does not exist.
func DecodeVolumeDetail(payload []byte) (models.VolumeDetail, *fetch.Error) {
	if msg, ok := upstreamError(payload); ok {
		return models.VolumeDetail{}, fetch.NewError(fetch.KindNotFound, msg, nil)
	}

	var body struct {
		Issue    *wireVolume   `json:"issue"`
		Articles []wireArticle `json:"articles"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return models.VolumeDetail{}, invalid("volume detail", err)
	}
	if body.Issue == nil {
		return models.VolumeDetail{}, fetch.NewError(fetch.KindInvalidPayload, "volume detail has no issue", nil)
	}

	for i := range body.Articles {
		body.Articles[i].scrub()
	}

	detail := models.VolumeDetail{
		Issue:    body.Issue.normalize(),
		Articles: normalizeArticles(body.Articles),
	}
	if detail.Issue.ArticlesCount == 0 {
		detail.Issue.ArticlesCount = len(detail.Articles)
	}
	return detail, nil
}

// DecodeRecommendations decodes {"recommendations": [...]}.
func DecodeRecommendations(payload []byte) ([]models.Article, *fetch.Error) {
	var body struct {
		Recommendations []wireArticle `json:"recommendations"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, invalid("recommendations", err)
	}
	for i := range body.Recommendations {
		body.Recommendations[i].scrub()
	}
	return normalizeArticles(body.Recommendations), nil
}

// DecodeHomepage decodes {"articles": [...]}.
func DecodeHomepage(payload []byte) ([]models.Article, *fetch.Error) {
	var body struct {
		Articles []wireArticle `json:"articles"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, invalid("homepage feed", err)
	}
	for i := range body.Articles {
		body.Articles[i].scrub()
	}
	return normalizeArticles(body.Articles), nil
}

type wireHealth struct {
	Status       flexString `json:"status"`
	System       flexString `json:"system"`
	Version      flexString `json:"version"`
	Database     flexString `json:"database"`
	Scheduler    flexString `json:"scheduler"`
	CacheRecords flexInt    `json:"cache_records"`
	CacheStatus  flexString `json:"cache_status"`
	Message      flexString `json:"message"`
	Error        flexString `json:"error"`
}

func DecodeHealth(payload []byte) (models.Health, *fetch.Error) {
	var w wireHealth
	if err := json.Unmarshal(payload, &w); err != nil {
		return models.Health{}, invalid("health", err)
	}

	return models.Health{
		Status:       strings.ToLower(strings.TrimSpace(string(w.Status))),
		System:       string(w.System),
		Version:      string(w.Version),
		Database:     string(w.Database),
		Scheduler:    string(w.Scheduler),
		CacheRecords: int(w.CacheRecords),
		CacheStatus:  string(w.CacheStatus),
		Message:      strings.TrimSpace(string(w.Message)),
		Error:        strings.TrimSpace(string(w.Error)),
	}, nil
}

// decodeRootMessage returns the "message" of the API root document.
func decodeRootMessage(payload []byte) (string, *fetch.Error) {
	var body struct {
		Message flexString `json:"message"`
	}
	if err := json.Unmarshal(payload, &body); err != nil {
		return "", invalid("root", err)
	}
	return strings.TrimSpace(string(body.Message)), nil
}

type wireCacheStatistics struct {
	TotalRecords         flexInt   `json:"total_records"`
	UniqueSources        flexInt   `json:"unique_sources"`
	UniqueSourceArticles flexInt   `json:"unique_source_articles"`
	UniqueTargets        flexInt   `json:"unique_targets"`
	UniqueTargetArticles flexInt   `json:"unique_target_articles"`
	AverageSimilarity    flexFloat `json:"average_similarity"`
	SimilarityRange      struct {
		Min     flexFloat `json:"min"`
		Max     flexFloat `json:"max"`
		Average flexFloat `json:"average"`
	} `json:"similarity_range"`
	DateRange struct {
		Oldest flexString `json:"oldest"`
		Newest flexString `json:"newest"`
	} `json:"date_range"`
}

func (w wireCacheStatistics) normalize() models.CacheStatistics {
	stats := models.CacheStatistics{
		TotalRecords:      int(w.TotalRecords),
		UniqueSources:     firstInt(int(w.UniqueSources), int(w.UniqueSourceArticles)),
		UniqueTargets:     firstInt(int(w.UniqueTargets), int(w.UniqueTargetArticles)),
		AverageSimilarity: firstFloat(float64(w.SimilarityRange.Average), float64(w.AverageSimilarity)),
		MinSimilarity:     float64(w.SimilarityRange.Min),
		MaxSimilarity:     float64(w.SimilarityRange.Max),
		Oldest:            normalize.Date(string(w.DateRange.Oldest)),
		Newest:            normalize.Date(string(w.DateRange.Newest)),
	}
	return stats
}

type wireServiceStatus struct {
	SystemStatus     flexString `json:"system_status"`
	Status           flexString `json:"status"`
	SchedulerRunning flexBool   `json:"scheduler_running"`
	DataSource       flexString `json:"data_source"`
	TodayStatistics  struct {
		ArticlesWithRecommendations flexInt   `json:"articles_with_recommendations"`
		TotalRecommendations        flexInt   `json:"total_recommendations"`
		AverageSimilarity           flexFloat `json:"average_similarity"`
	} `json:"today_statistics"`
	CurrentData struct {
		ArticlesWithRecommendations flexInt `json:"articles_with_recommendations"`
		TotalRecommendationsToday   flexInt `json:"total_recommendations_today"`
	} `json:"current_data"`
	CacheStatistics wireCacheStatistics `json:"cache_statistics"`
}

// DecodeStatus decodes the /status payload. Today's counters fall back to the
// current_data block when the upstream omits or zeroes them.
func DecodeStatus(payload []byte) (models.ServiceStatus, *fetch.Error) {
	if msg, ok := upstreamError(payload); ok {
		return models.ServiceStatus{}, fetch.NewError(fetch.KindHTTP, msg, nil)
	}

	var w wireServiceStatus
	if err := json.Unmarshal(payload, &w); err != nil {
		return models.ServiceStatus{}, invalid("status", err)
	}

	status := string(w.SystemStatus)
	if status == "" {
		status = string(w.Status)
	}
	today := w.TodayStatistics
	return models.ServiceStatus{
		SystemStatus:                strings.TrimSpace(status),
		SchedulerRunning:            bool(w.SchedulerRunning),
		DataSource:                  string(w.DataSource),
		ArticlesWithRecommendations: firstInt(int(today.ArticlesWithRecommendations), int(w.CurrentData.ArticlesWithRecommendations)),
		TotalRecommendations:        firstInt(int(today.TotalRecommendations), int(w.CurrentData.TotalRecommendationsToday)),
		AverageSimilarity:           float64(today.AverageSimilarity),
		Cache:                       w.CacheStatistics.normalize(),
	}, nil
}

// DecodeCacheStatus decodes the /admin/cache-status payload.
func DecodeCacheStatus(payload []byte) (models.CacheStatus, *fetch.Error) {
	if msg, ok := upstreamError(payload); ok {
		return models.CacheStatus{}, fetch.NewError(fetch.KindHTTP, msg, nil)
	}

	var w struct {
		CacheStatistics wireCacheStatistics `json:"cache_statistics"`
		CacheRecords    flexInt             `json:"cache_records"`
		TopRecommended  []wireArticle       `json:"top_recommended_articles"`
	}
	if err := json.Unmarshal(payload, &w); err != nil {
		return models.CacheStatus{}, invalid("cache status", err)
	}
	for i := range w.TopRecommended {
		w.TopRecommended[i].scrub()
	}

	stats := w.CacheStatistics.normalize()
	if stats.TotalRecords == 0 {
		stats.TotalRecords = int(w.CacheRecords)
	}
	return models.CacheStatus{
		Statistics:     stats,
		TopRecommended: normalizeArticles(w.TopRecommended),
	}, nil
}

// BuildSystemStats derives the headline counters from whichever of the two
// operational payloads loaded. Either may be nil. A zero counter falls
// through to the next source.
func BuildSystemStats(status *models.ServiceStatus, cache *models.CacheStatus) models.SystemStats {
	var s models.SystemStats
	if status != nil {
		s.SystemStatus = status.SystemStatus
		s.SchedulerRunning = status.SchedulerRunning
		s.ArticlesWithRecommendations = status.ArticlesWithRecommendations
		s.TotalRecommendations = status.TotalRecommendations
		s.AverageSimilarity = status.AverageSimilarity
	}
	if cache != nil {
		s.ArticlesWithRecommendations = firstInt(s.ArticlesWithRecommendations, cache.Statistics.UniqueTargets)
		s.TotalRecommendations = firstInt(s.TotalRecommendations, cache.Statistics.TotalRecords)
		s.AverageSimilarity = firstFloat(s.AverageSimilarity, cache.Statistics.AverageSimilarity)
		s.CacheRecords = cache.Statistics.TotalRecords
	}
	if s.CacheRecords == 0 && status != nil {
		s.CacheRecords = status.Cache.TotalRecords
	}
	return s
}

func firstInt(values ...int) int {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}

func firstFloat(values ...float64) float64 {
	for _, v := range values {
		if v != 0 {
			return v
		}
	}
	return 0
}
