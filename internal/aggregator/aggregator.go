// Package aggregator runs groups of API fetches. RunAll fans a set of labelled
// requests out concurrently and settles every one of them; Search checks an
// ordered candidate list one at a time and stops at the first match.
package aggregator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/johnrirwin/journalfeed/internal/fetch"
	"github.com/johnrirwin/journalfeed/internal/logging"
)

var (
	ErrDuplicateLabel = errors.New("duplicate task label")
	ErrEmptyLabel     = errors.New("empty task label")
)

// Fetcher is the subset of fetch.Client the orchestrator needs.
type Fetcher interface {
	Fetch(ctx context.Context, req fetch.Request) fetch.Outcome
}

// Task is one labelled request in a fan-out.
type Task struct {
	Label   string
	Request fetch.Request
}

type taskResult struct {
	label   string
	outcome fetch.Outcome
}

type Orchestrator struct {
	fetcher       Fetcher
	logger        *logging.Logger
	maxConcurrent int
}

// New creates an orchestrator. maxConcurrent <= 0 runs every task at once.
func New(fetcher Fetcher, logger *logging.Logger, maxConcurrent int) *Orchestrator {
	return &Orchestrator{
		fetcher:       fetcher,
		logger:        logger,
		maxConcurrent: maxConcurrent,
	}
}

// RunAll fetches every task concurrently and returns once all of them have
// settled, with exactly one outcome per label. A failing task never cancels
// its siblings. The error is non-nil only when the task set itself is
// invalid, in which case nothing is fetched.
func (o *Orchestrator) RunAll(ctx context.Context, tasks []Task) (map[string]fetch.Outcome, error) {
	if err := validate(tasks); err != nil {
		return nil, err
	}

	start := time.Now()
	results := make(chan taskResult, len(tasks))

	// No errgroup.WithContext: one task failing must not cancel the rest.
	var g errgroup.Group
	if o.maxConcurrent > 0 {
		g.SetLimit(o.maxConcurrent)
	}

	for _, task := range tasks {
		g.Go(func() error {
			results <- taskResult{
				label:   task.Label,
				outcome: o.fetcher.Fetch(ctx, task.Request),
			}
			return nil
		})
	}

	go func() {
		_ = g.Wait()
		close(results)
	}()

	outcomes := make(map[string]fetch.Outcome, len(tasks))
	failed := make([]string, 0)
	for result := range results {
		outcomes[result.label] = result.outcome
		if !result.outcome.OK() {
			failed = append(failed, result.label)
		}
	}
	sort.Strings(failed)

	o.logger.Debug("Fan-out complete", logging.WithFields(map[string]interface{}{
		"tasks":    len(tasks),
		"failed":   failed,
		"duration": time.Since(start).String(),
	}))

	return outcomes, nil
}

func validate(tasks []Task) error {
	seen := make(map[string]bool, len(tasks))
	for _, t := range tasks {
		if t.Label == "" {
			return ErrEmptyLabel
		}
		if seen[t.Label] {
			return fmt.Errorf("%w: %q", ErrDuplicateLabel, t.Label)
		}
		seen[t.Label] = true
	}
	return nil
}

// SearchStats describes how a Search went.
type SearchStats struct {
	Checked int
	Errors int
	// LastErr is the most recent check error, useful when nothing matched
	// and every check failed.
	LastErr error
}

// Search calls check on each candidate in order until one reports a match.
// A check error is counted and the search moves on to the next candidate.
// Cancelling ctx stops the search before the next check.
func Search[T, R any](ctx context.Context, candidates []T, check func(context.Context, T) (R, bool, error)) (R, SearchStats, bool) {
	var (
		zero  R
		stats SearchStats
	)

	for _, candidate := range candidates {
		if ctx.Err() != nil {
			stats.LastErr = ctx.Err()
			return zero, stats, false
		}

		stats.Checked++
		result, ok, err := check(ctx, candidate)
		if err != nil {
			stats.Errors++
			stats.LastErr = err
			continue
		}
		if ok {
			return result, stats, true
		}
	}

	return zero, stats, false
}
