package pages

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/johnrirwin/journalfeed/internal/fetch"
	"github.com/johnrirwin/journalfeed/internal/logging"
	"github.com/johnrirwin/journalfeed/internal/metrics"
)

// Status is the lifecycle state of one page load.
type Status string

const (
	StatusIdle           Status = "idle"
	StatusLoading        Status = "loading"
	StatusSuccess        Status = "success"
	StatusPartialSuccess Status = "partial-success"
	StatusFailed         Status = "failed"
)

// Category is the user-facing reason a load failed.
type Category string

const (
	CategoryNotFound          Category = "not-found"
	CategoryConnectivity      Category = "connectivity"
	CategoryServerError       Category = "server-error"
	CategoryMalformedResponse Category = "malformed-response"
)

// LoadError is a classified page-level failure.
type LoadError struct {
	Category Category     `json:"category"`
	Kind     fetch.Kind   `json:"kind"`
	Status   int          `json:"status,omitempty"`
	Message  string       `json:"message"`
	Err      *fetch.Error `json:"-"`
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

func (e *LoadError) Unwrap() error {
	if e.Err == nil {
		return nil
	}
	return e.Err
}

// Classify maps a fetch failure to a page category.
func Classify(err *fetch.Error) *LoadError {
	if err == nil {
		return nil
	}

	le := &LoadError{
		Kind:    err.Kind,
		Status:  err.Status,
		Message: err.Message,
		Err:     err,
	}

	switch err.Kind {
	case fetch.KindNotFound, fetch.KindEmpty:
		le.Category = CategoryNotFound
	case fetch.KindTimeout, fetch.KindNetwork:
		le.Category = CategoryConnectivity
	case fetch.KindInvalidPayload:
		le.Category = CategoryMalformedResponse
	case fetch.KindHTTP:
		if err.Status == http.StatusNotFound {
			le.Category = CategoryNotFound
		} else {
			le.Category = CategoryServerError
		}
	default:
		le.Category = CategoryServerError
	}
	return le
}

// Result is the outcome of one page load handed to the rendering layer.
type Result[T any] struct {
	Value  T          `json:"value"`
	Status Status     `json:"status"`
	Err    *LoadError `json:"error,omitempty"`
	// Stale is set when some or all of Value came from an expired cache
	// entry because the live fetch failed.
	Stale bool `json:"stale"`
	// Empty is set when the primary data loaded but contains nothing.
	Empty bool `json:"empty"`
	// Failures lists secondary sections that could not be loaded.
	Failures   map[string]*LoadError `json:"failures,omitempty"`
	Generation uint64                `json:"generation"`
	LoadID     string                `json:"loadId"`
	// Superseded is set when a newer load started before this one
	// finished. Its data was not applied to the controller's state.
	Superseded bool `json:"superseded,omitempty"`
}

// State is the controller-owned snapshot of its latest load.
type State struct {
	LoadID     string                `json:"loadId"`
	Generation uint64                `json:"generation"`
	Status     Status                `json:"status"`
	StartedAt  time.Time             `json:"startedAt"`
	FinishedAt time.Time             `json:"finishedAt,omitempty"`
	Err        *LoadError            `json:"error,omitempty"`
	Stale      bool                  `json:"stale"`
	Failures   map[string]*LoadError `json:"failures,omitempty"`
}

// tracker stamps each load with a generation. Starting a load cancels the
// previous one, and only the newest generation may write state.
type tracker struct {
	page   string
	logger *logging.Logger

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	state  State
}

func newTracker(page string, logger *logging.Logger) *tracker {
	return &tracker{
		page:   page,
		logger: logger,
		state:  State{Status: StatusIdle},
	}
}

type load struct {
	ctx    context.Context
	gen    uint64
	id     string
	cancel context.CancelFunc
}

func (t *tracker) begin(ctx context.Context) load {
	loadCtx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	if t.cancel != nil {
		t.cancel()
	}
	t.gen++
	l := load{ctx: loadCtx, gen: t.gen, id: uuid.NewString(), cancel: cancel}
	t.cancel = cancel
	t.state = State{
		LoadID:     l.id,
		Generation: l.gen,
		Status:     StatusLoading,
		StartedAt:  time.Now(),
	}
	t.mu.Unlock()

	metrics.Generation.WithLabelValues(t.page).Set(float64(l.gen))
	t.logger.Debug("Page load started", logging.WithFields(map[string]interface{}{
		"page":       t.page,
		"generation": l.gen,
		"load_id":    l.id,
	}))
	return l
}

// finish applies the load's outcome to state if no newer load has started.
// It reports whether the outcome was applied.
func finish[T any](t *tracker, l load, res *Result[T]) bool {
	defer l.cancel()

	res.Generation = l.gen
	res.LoadID = l.id

	t.mu.Lock()
	if l.gen != t.gen {
		t.mu.Unlock()
		res.Superseded = true
		t.logger.Debug("Discarding superseded page load", logging.WithFields(map[string]interface{}{
			"page":       t.page,
			"generation": l.gen,
		}))
		return false
	}
	t.cancel = nil
	t.state.Status = res.Status
	t.state.FinishedAt = time.Now()
	t.state.Err = res.Err
	t.state.Stale = res.Stale
	t.state.Failures = res.Failures
	t.mu.Unlock()

	metrics.PageLoads.WithLabelValues(t.page, string(res.Status)).Inc()

	fields := logging.WithFields(map[string]interface{}{
		"page":       t.page,
		"generation": l.gen,
		"status":     string(res.Status),
		"stale":      res.Stale,
	})
	switch res.Status {
	case StatusFailed:
		if res.Err != nil {
			fields["category"] = string(res.Err.Category)
			fields["error"] = res.Err.Message
		}
		t.logger.Warn("Page load failed", fields)
	case StatusPartialSuccess:
		fields["failures"] = len(res.Failures)
		t.logger.Info("Page load partially succeeded", fields)
	default:
		t.logger.Info("Page load complete", fields)
	}
	return true
}

func (t *tracker) snapshot() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

func failed[T any](err *fetch.Error) Result[T] {
	return Result[T]{Status: StatusFailed, Err: Classify(err)}
}
