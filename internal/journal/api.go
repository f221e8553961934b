// Package journal describes the upstream recommendations API: where each route
// lives, how its responses are decoded, and how they are normalized into
// models types. It is the only place raw payloads are interpreted.
package journal

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/johnrirwin/journalfeed/internal/fetch"
	"github.com/johnrirwin/journalfeed/internal/models"
)

// Fetcher is satisfied by *fetch.Client.
type Fetcher interface {
	Fetch(ctx context.Context, req fetch.Request) fetch.Outcome
}

type API struct {
	fetcher   Fetcher
	endpoints Endpoints
	policy    fetch.Policy
}

func NewAPI(fetcher Fetcher, endpoints Endpoints, policy fetch.Policy) *API {
	return &API{
		fetcher:   fetcher,
		endpoints: endpoints,
		policy:    policy,
	}
}

func (a *API) Endpoints() Endpoints {
	return a.endpoints
}

func (a *API) Policy() fetch.Policy {
	return a.policy
}

func (a *API) VolumesRequest() fetch.Request {
	return a.policy.Request("volumes", a.endpoints.Volumes, nil)
}

func (a *API) VolumeDetailRequest(issueID int) fetch.Request {
	return a.policy.Request("volume_detail", a.endpoints.volumeDetailPath(issueID), nil)
}

func (a *API) RecommendationsRequest(publicationID, limit int) fetch.Request {
	return a.policy.Request("recommendations", a.endpoints.recommendationsPath(publicationID), limitQuery(limit))
}

func (a *API) HomepageRequest(feed Feed, limit int) fetch.Request {
	return a.policy.Request("homepage", a.endpoints.homepagePath(feed), limitQuery(limit))
}

func (a *API) StatusRequest() fetch.Request {
	return a.policy.Request("status", a.endpoints.Status, nil)
}

func (a *API) CacheStatusRequest() fetch.Request {
	return a.policy.Request("cache_status", a.endpoints.CacheStatus, nil)
}

func (a *API) HealthRequest() fetch.Request {
	return a.policy.Request("health", a.endpoints.Health, nil)
}

func (a *API) RootRequest() fetch.Request {
	return a.policy.Request("root", a.endpoints.Root, nil)
}

func limitQuery(limit int) map[string]string {
	if limit <= 0 {
		return nil
	}
	return map[string]string{"limit": strconv.Itoa(limit)}
}

func (a *API) Volumes(ctx context.Context) ([]models.Volume, *fetch.Error) {
	out := a.fetcher.Fetch(ctx, a.VolumesRequest())
	if !out.OK() {
		return nil, out.Err
	}
	return DecodeVolumes(out.Payload)
}

func (a *API) VolumeDetail(ctx context.Context, issueID int) (models.VolumeDetail, *fetch.Error) {
	out := a.fetcher.Fetch(ctx, a.VolumeDetailRequest(issueID))
	if !out.OK() {
		return models.VolumeDetail{}, out.Err
	}
	return DecodeVolumeDetail(out.Payload)
}

func (a *API) Recommendations(ctx context.Context, publicationID, limit int) ([]models.Article, *fetch.Error) {
	out := a.fetcher.Fetch(ctx, a.RecommendationsRequest(publicationID, limit))
	if !out.OK() {
		return nil, out.Err
	}
	return DecodeRecommendations(out.Payload)
}

func (a *API) Homepage(ctx context.Context, feed Feed, limit int) ([]models.Article, *fetch.Error) {
	out := a.fetcher.Fetch(ctx, a.HomepageRequest(feed, limit))
	if !out.OK() {
		return nil, out.Err
	}
	return DecodeHomepage(out.Payload)
}

func (a *API) Health(ctx context.Context) (models.Health, *fetch.Error) {
	out := a.fetcher.Fetch(ctx, a.HealthRequest())
	if !out.OK() {
		return models.Health{}, out.Err
	}
	return DecodeHealth(out.Payload)
}

// Connectivity reports whether the API is reachable. It asks /health first:
// a healthy status or a "message" means online. Otherwise it falls back to
// the root route, which answers with a message when the service is up.
func (a *API) Connectivity(ctx context.Context) models.Connectivity {
	result := models.Connectivity{CheckedAt: time.Now()}

	health, err := a.Health(ctx)
	if err == nil && health.Healthy() {
		result.Online = true
		result.Status = health.Status
		return result
	}
	if err == nil && health.Message != "" {
		result.Online = true
		result.Status = "connected"
		return result
	}

	out := a.fetcher.Fetch(ctx, a.RootRequest())
	if out.OK() {
		if msg, derr := decodeRootMessage(out.Payload); derr == nil && msg != "" {
			result.Online = true
			result.Status = "reachable"
			return result
		}
	}

	result.Status = "offline"
	if err == nil {
		result.Status = health.Status
	}
	return result
}

func (a *API) Status(ctx context.Context) (models.ServiceStatus, *fetch.Error) {
	out := a.fetcher.Fetch(ctx, a.StatusRequest())
	if !out.OK() {
		return models.ServiceStatus{}, out.Err
	}
	return DecodeStatus(out.Payload)
}

func (a *API) CacheStatus(ctx context.Context) (models.CacheStatus, *fetch.Error) {
	out := a.fetcher.Fetch(ctx, a.CacheStatusRequest())
	if !out.OK() {
		return models.CacheStatus{}, out.Err
	}
	return DecodeCacheStatus(out.Payload)
}

// Cache keys. Each logical query maps to exactly one key.

func VolumesCacheKey() string {
	return "volumes-list"
}

func VolumeCacheKey(issueID int) string {
	return fmt.Sprintf("volume-%d", issueID)
}

func HomepageCacheKey(feed Feed, limit int) string {
	return fmt.Sprintf("homepage-%s-limit%d", feed, limit)
}

func RecommendationsCacheKey(publicationID, limit int) string {
	return fmt.Sprintf("recommendations-%d-limit%d", publicationID, limit)
}
