package fetch

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
)

const (
	DefaultTimeout    = 15 * time.Second
	DefaultMaxRetries = 3
	DefaultRetryDelay = 2 * time.Second
)

// Request describes one logical GET. It is passed by value and never
// modified once issued.
type Request struct {
	// Name groups requests for logging and metrics, e.g. "homepage".
	Name       string
	Path       string
	Query      map[string]string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

func (r Request) attempts() int {
	if r.MaxRetries < 1 {
		return 1
	}
	return r.MaxRetries
}

func (r Request) timeout() time.Duration {
	if r.Timeout <= 0 {
		return DefaultTimeout
	}
	return r.Timeout
}

// URL joins base with the request path and its query parameters in key
// order.
func (r Request) URL(base string) string {
	u := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(r.Path, "/")
	if len(r.Query) == 0 {
		return u
	}

	keys := make([]string, 0, len(r.Query))
	for k := range r.Query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]string, 0, len(keys))
	for _, k := range keys {
		values = append(values, url.QueryEscape(k)+"="+url.QueryEscape(r.Query[k]))
	}
	return u + "?" + strings.Join(values, "&")
}

// Policy holds the timeout and retry settings applied to every request
// built from it.
type Policy struct {
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
		RetryDelay: DefaultRetryDelay,
	}
}

func (p Policy) Request(name, path string, query map[string]string) Request {
	return Request{
		Name:       name,
		Path:       path,
		Query:      query,
		Timeout:    p.Timeout,
		MaxRetries: p.MaxRetries,
		RetryDelay: p.RetryDelay,
	}
}

// Outcome is either a successful payload or a classified failure.
type Outcome struct {
	Payload  json.RawMessage
	Err      *Error
	Attempts int
}

func (o Outcome) OK() bool {
	return o.Err == nil
}

// Decode unmarshals the payload into v. A failed outcome returns its error.
func (o Outcome) Decode(v interface{}) error {
	if o.Err != nil {
		return o.Err
	}
	if err := json.Unmarshal(o.Payload, v); err != nil {
		return NewError(KindInvalidPayload, fmt.Sprintf("decode payload: %v", err), err)
	}
	return nil
}

// Failed builds an outcome for an error raised outside the client, such as a
// decode failure on an otherwise successful response.
func Failed(err *Error) Outcome {
	return Outcome{Err: err}
}
