package pages

import (
	"context"

	"github.com/johnrirwin/journalfeed/internal/aggregator"
	"github.com/johnrirwin/journalfeed/internal/fetch"
	"github.com/johnrirwin/journalfeed/internal/journal"
	"github.com/johnrirwin/journalfeed/internal/models"
)

const (
	labelStatus      = "status"
	labelCacheStatus = "cache_status"
	labelHealth      = "health"
)

// SystemReport gathers the upstream operational endpoints and the state of
// the local cache.
type SystemReport struct {
	Stats        models.SystemStats    `json:"stats"`
	Status       *models.ServiceStatus `json:"status,omitempty"`
	CacheStatus  *models.CacheStatus   `json:"cacheStatus,omitempty"`
	Health       *models.Health        `json:"health,omitempty"`
	CacheBackend string                `json:"cacheBackend"`
}

// SystemStatus loads the status, cache status and health endpoints together.
// Operational data is never served from cache.
type SystemStatus struct {
	deps    Deps
	tracker *tracker
}

func NewSystemStatus(deps Deps) *SystemStatus {
	deps = deps.withDefaults()
	return &SystemStatus{
		deps:    deps,
		tracker: newTracker("system", deps.Logger),
	}
}

func (s *SystemStatus) State() State {
	return s.tracker.snapshot()
}

func (s *SystemStatus) Load(ctx context.Context) Result[SystemReport] {
	l := s.tracker.begin(ctx)
	res := s.load(l.ctx)
	finish(s.tracker, l, &res)
	return res
}

func (s *SystemStatus) load(ctx context.Context) Result[SystemReport] {
	api := s.deps.API
	order := []string{labelStatus, labelCacheStatus, labelHealth}

	outcomes, err := s.deps.Orchestrator.RunAll(ctx, []aggregator.Task{
		{Label: labelStatus, Request: api.StatusRequest()},
		{Label: labelCacheStatus, Request: api.CacheStatusRequest()},
		{Label: labelHealth, Request: api.HealthRequest()},
	})
	if err != nil {
		return Result[SystemReport]{
			Status: StatusFailed,
			Err:    &LoadError{Category: CategoryServerError, Message: err.Error()},
		}
	}

	report := SystemReport{CacheBackend: s.deps.Cache.Backend()}
	failures := make(map[string]*LoadError)

	for _, label := range order {
		out := outcomes[label]
		ferr := out.Err
		if out.OK() {
			ferr = s.decode(label, out, &report)
		}
		if ferr != nil {
			failures[label] = Classify(ferr)
		}
	}

	report.Stats = journal.BuildSystemStats(report.Status, report.CacheStatus)

	res := Result[SystemReport]{Value: report, Status: StatusSuccess}
	switch {
	case len(failures) == 0:
	case len(failures) == len(order):
		res.Status = StatusFailed
		res.Err = failures[order[0]]
		res.Failures = failures
	default:
		res.Status = StatusPartialSuccess
		res.Failures = failures
	}
	return res
}

func (s *SystemStatus) decode(label string, out fetch.Outcome, report *SystemReport) *fetch.Error {
	switch label {
	case labelStatus:
		st, ferr := journal.DecodeStatus(out.Payload)
		if ferr == nil {
			report.Status = &st
		}
		return ferr
	case labelCacheStatus:
		cs, ferr := journal.DecodeCacheStatus(out.Payload)
		if ferr == nil {
			report.CacheStatus = &cs
		}
		return ferr
	default:
		h, ferr := journal.DecodeHealth(out.Payload)
		if ferr == nil {
			report.Health = &h
		}
		return ferr
	}
}
