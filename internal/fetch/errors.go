package fetch

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a failed fetch.
type Kind string

const (
	KindTimeout        Kind = "timeout"
	KindNetwork        Kind = "network_error"
	KindHTTP           Kind = "http_error"
	KindInvalidPayload Kind = "invalid_payload"

	// KindNotFound and KindEmpty are never produced by Client. Decoders and
	// page controllers use them for well-formed responses that carry no
	// usable entity.
	KindNotFound Kind = "not_found"
	KindEmpty    Kind = "empty"
)

var (
	ErrTimeout        = errors.New("request timed out")
	ErrNetwork        = errors.New("network error")
	ErrHTTP           = errors.New("http error")
	ErrInvalidPayload = errors.New("invalid payload")
	ErrNotFound       = errors.New("not found")
	ErrEmpty          = errors.New("empty result")
)

var sentinels = map[Kind]error{
	KindTimeout:        ErrTimeout,
	KindNetwork:        ErrNetwork,
	KindHTTP:           ErrHTTP,
	KindInvalidPayload: ErrInvalidPayload,
	KindNotFound:       ErrNotFound,
	KindEmpty:          ErrEmpty,
}

// Error is the normalized failure returned for every unsuccessful fetch.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Kind == KindHTTP && e.Status != 0 {
		return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is lets callers match on kind with errors.Is(err, fetch.ErrTimeout).
func (e *Error) Is(target error) bool {
	return sentinels[e.Kind] == target
}

func NewError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func httpError(status int) *Error {
	return &Error{
		Kind:    KindHTTP,
		Status:  status,
		Message: http.StatusText(status),
	}
}

// AsError extracts a *Error from err, wrapping foreign errors as network
// failures.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var fe *Error
	if errors.As(err, &fe) {
		return fe
	}
	return NewError(KindNetwork, err.Error(), err)
}
