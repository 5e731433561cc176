package model

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrMalformedLink means the link does not name an author and a video
	// or photo id.
	ErrMalformedLink = errors.New("malformed link")

	// ErrContentUnavailable means the mirror returned no download
	// candidates, which is how private or removed posts show up.
	ErrContentUnavailable = errors.New("content unavailable: post is either private or removed")

	// ErrTransport marks network failures that survived the retry budget.
	ErrTransport = errors.New("transport failure")

	// ErrIO marks local filesystem failures.
	ErrIO = errors.New("io failure")
)

// TransportError is returned when a request could not be completed.
type TransportError struct {
	// URL is the requested address.
	URL string

	// Attempts is the number of attempts that were made.
	Attempts int

	// StatusCode is the last HTTP status seen, 0 for connection errors.
	StatusCode int

	// Err is the last connection error, if any.
	Err error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("request %s failed after %d attempt(s): %v", e.URL, e.Attempts, e.Err)
	default:
		return fmt.Sprintf("request %s failed after %d attempt(s): HTTP %d", e.URL, e.Attempts, e.StatusCode)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// IOError wraps a local filesystem failure.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

func (e *IOError) Is(target error) bool {
	return target == ErrIO
}

// ErrorKind is the semantic class of a per-link failure.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindMalformedLink
	KindContentUnavailable
	KindTransport
	KindIO
	KindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case KindMalformedLink:
		return "malformed_link"
	case KindContentUnavailable:
		return "content_unavailable"
	case KindTransport:
		return "transport"
	case KindIO:
		return "io"
	case KindCanceled:
		return "canceled"
	}
	return "unknown"
}

// Classify maps an error to its kind.
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ErrMalformedLink):
		return KindMalformedLink
	case errors.Is(err, ErrContentUnavailable):
		return KindContentUnavailable
	case errors.Is(err, ErrIO):
		return KindIO
	case errors.Is(err, ErrTransport):
		return KindTransport
	}
	return KindUnknown
}
