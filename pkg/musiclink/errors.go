package musiclink

import (
	"context"
	"errors"
	"fmt"
)

// ErrorKind classifies an import failure.
type ErrorKind string

const (
	// KindInvalidURL means the URL does not match the provider's playlist pattern.
	KindInvalidURL ErrorKind = "InvalidUrl"
	// KindNotFound means the provider has no such playlist.
	KindNotFound ErrorKind = "NotFound"
	// KindNotAPlaylist means the URL resolved to another resource type.
	KindNotAPlaylist ErrorKind = "NotAPlaylist"
	// KindUpstream means the provider answered a well-formed request with a failure.
	KindUpstream ErrorKind = "Upstream"
	// KindAuthFailure means this service's own credentials are missing or were rejected.
	KindAuthFailure ErrorKind = "AuthFailure"
	// KindInternal is anything unexpected.
	KindInternal ErrorKind = "Internal"
)

var (
	// ErrMissingCredentials is returned when a provider has no configured credentials.
	ErrMissingCredentials = errors.New("missing provider credentials")
	// ErrUnknownProvider is returned when no resolver is registered for a provider.
	ErrUnknownProvider = errors.New("unknown provider")
)

// ImportError is the only error type returned by Manager.Resolve.
type ImportError struct {
	Kind     ErrorKind
	Provider Provider
	Message  string
	// Status is the upstream HTTP status for KindUpstream, 0 when unknown.
	Status int
	Err    error
}

func (e *ImportError) Error() string {
	msg := e.Message
	if e.Status != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.Status)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s: %s", e.Provider, e.Kind, msg)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *ImportError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may retry the same import later.
func (e *ImportError) Retryable() bool {
	return e.Kind == KindUpstream
}

// AsImportError returns err as an *ImportError, classifying anything untyped as KindInternal.
func AsImportError(err error) *ImportError {
	if err == nil {
		return nil
	}
	var ie *ImportError
	if errors.As(err, &ie) {
		return ie
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return &ImportError{Kind: KindUpstream, Message: "upstream call interrupted", Err: err}
	}
	return &ImportError{Kind: KindInternal, Message: "unexpected failure", Err: err}
}

func invalidURLError(format string, args ...any) *ImportError {
	return &ImportError{Kind: KindInvalidURL, Message: fmt.Sprintf(format, args...)}
}

func upstreamError(status int, err error, format string, args ...any) *ImportError {
	return &ImportError{Kind: KindUpstream, Status: status, Message: fmt.Sprintf(format, args...), Err: err}
}
