// Package fetch issues GET requests against the journal API with a per-attempt
// timeout and a fixed-delay retry, and reports every failure as a classified
// *Error.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/sethvargo/go-retry"

	"github.com/johnrirwin/journalfeed/internal/logging"
	"github.com/johnrirwin/journalfeed/internal/metrics"
)

const maxBodyBytes = 10 << 20

// Signer decorates outgoing requests, e.g. with an Authorization header.
type Signer interface {
	Sign(req *http.Request) error
}

type Config struct {
	BaseURL    string
	UserAgent  string
	Signer     Signer
	HTTPClient *http.Client
}

type Client struct {
	baseURL    string
	userAgent  string
	signer     Signer
	httpClient *http.Client
	logger     *logging.Logger
}

func New(cfg Config, logger *logging.Logger) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = "JournalFeed/1.0"
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		userAgent:  userAgent,
		signer:     cfg.Signer,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Fetch runs req until it succeeds or its attempts are used up. It never
// returns a Go error: the outcome carries either the payload or the last
// failure.
func (c *Client) Fetch(ctx context.Context, req Request) Outcome {
	start := time.Now()
	requestID := uuid.NewString()
	target := req.URL(c.baseURL)

	var (
		payload  json.RawMessage
		last     *Error
		attempts int
	)

	backoff := retry.WithMaxRetries(uint64(req.attempts()-1), constantBackoff(req.RetryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		metrics.FetchAttempts.WithLabelValues(req.Name).Inc()

		body, ferr := c.attempt(ctx, req, target, requestID)
		if ferr == nil {
			payload = body
			return nil
		}

		last = ferr
		if attempts < req.attempts() {
			c.logger.Warn("Fetch attempt failed, retrying", logging.WithFields(map[string]interface{}{
				"endpoint": req.Name,
				"url":      target,
				"attempt":  attempts,
				"delay":    req.RetryDelay.String(),
				"error":    ferr.Error(),
			}))
		}
		return retry.RetryableError(ferr)
	})

	metrics.FetchLatency.WithLabelValues(req.Name).Observe(time.Since(start).Seconds())

	if err == nil {
		c.logger.Debug("Fetch succeeded", logging.WithFields(map[string]interface{}{
			"endpoint": req.Name,
			"url":      target,
			"attempts": attempts,
		}))
		return Outcome{Payload: payload, Attempts: attempts}
	}

	// retry.Do reports parent cancellation as ctx.Err() rather than the
	// last attempt's error.
	if last == nil || ctx.Err() != nil {
		last = NewError(KindNetwork, "request cancelled", ctx.Err())
	}

	metrics.FetchFailures.WithLabelValues(req.Name, string(last.Kind)).Inc()
	c.logger.Error("Fetch failed", logging.WithFields(map[string]interface{}{
		"endpoint": req.Name,
		"url":      target,
		"attempts": attempts,
		"error":    last.Error(),
	}))

	return Outcome{Err: last, Attempts: attempts}
}

func (c *Client) attempt(ctx context.Context, req Request, target, requestID string) (json.RawMessage, *Error) {
	attemptCtx, cancel := context.WithTimeout(ctx, req.timeout())
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodGet, target, nil)
	if err != nil {
		return nil, NewError(KindNetwork, fmt.Sprintf("build request: %v", err), err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set("X-Request-ID", requestID)

	if c.signer != nil {
		if err := c.signer.Sign(httpReq); err != nil {
			return nil, NewError(KindNetwork, fmt.Sprintf("sign request: %v", err), err)
		}
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyTransport(ctx, attemptCtx, err, req.timeout())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, httpError(resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classifyTransport(ctx, attemptCtx, err, req.timeout())
	}

	if !json.Valid(body) {
		return nil, NewError(KindInvalidPayload, "response body is not valid JSON", nil)
	}

	return json.RawMessage(body), nil
}

func classifyTransport(parent, attemptCtx context.Context, err error, timeout time.Duration) *Error {
	if parent.Err() != nil {
		return NewError(KindNetwork, "request cancelled", err)
	}
	if errors.Is(attemptCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return NewError(KindTimeout, fmt.Sprintf("no response within %s", timeout), err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return NewError(KindTimeout, fmt.Sprintf("no response within %s", timeout), err)
	}
	return NewError(KindNetwork, err.Error(), err)
}

// constantBackoff waits the same delay before every retry. go-retry's
// NewConstant rejects a zero delay, which tests and "no wait" configs use.
func constantBackoff(delay time.Duration) retry.Backoff {
	if delay <= 0 {
		return retry.BackoffFunc(func() (time.Duration, bool) {
			return 0, false
		})
	}
	return retry.NewConstant(delay)
}
