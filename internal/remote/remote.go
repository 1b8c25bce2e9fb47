// Package remote defines the transport contract shared by every remote
// backend adapter and the status classification rules layered on top of it.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/tidemark/tidemark/internal/domain"
)

// Transport moves raw payloads to and from a remote endpoint. Adapters own
// the interpretation of those payloads; the transport only speaks bytes and
// status codes.
type Transport interface {
	// Get fetches the resource at path. A missing resource yields a
	// StatusError with code 404.
	Get(ctx context.Context, path string) ([]byte, error)
	// Put writes body to path, creating or replacing the resource.
	Put(ctx context.Context, path string, body []byte) error
	// Delete removes the resource at path.
	Delete(ctx context.Context, path string) error
	// Exists reports whether the resource at path is present.
	Exists(ctx context.Context, path string) (bool, error)
	// GetRaw and PutRaw bypass any content negotiation the normal verbs
	// perform. Some servers reject the decorated request with 405; the
	// raw variants are the fallback for that case.
	GetRaw(ctx context.Context, path string) ([]byte, error)
	PutRaw(ctx context.Context, path string, body []byte) error
}

// StatusError carries the HTTP-style status code a transport operation
// came back with.
type StatusError struct {
	Code int
	Op   string
	Path string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote %s %s: status %d", e.Op, e.Path, e.Code)
}

// StatusCode extracts the status code from err, or 0 when err does not
// wrap a StatusError.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code
	}
	return 0
}

// Retryable reports whether err represents a condition worth another
// attempt: contended writes (409), locked resources (423) and server
// failures (5xx). Anything else is final.
func Retryable(err error) bool {
	switch code := StatusCode(err); {
	case code == 409, code == 423:
		return true
	case code >= 500:
		return true
	}
	return false
}

// Classify maps a transport error onto the domain error taxonomy so
// callers never have to reason about status codes directly.
func Classify(backend, op string, err error) error {
	if err == nil {
		return nil
	}
	switch code := StatusCode(err); {
	case code == 401 || code == 403:
		return &domain.AuthError{Backend: backend, Err: err}
	case code == 404:
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	case code == 409 || code == 423 || code >= 500:
		return &domain.TransientError{Op: op, Err: err}
	}
	return fmt.Errorf("%s: %w", op, err)
}

// NotFound reports whether err represents a missing remote resource.
func NotFound(err error) bool {
	return StatusCode(err) == 404 || errors.Is(err, domain.ErrNotFound)
}

// MethodNotAllowed reports whether the server rejected the verb itself,
// which signals that the raw fallback should be tried once.
func MethodNotAllowed(err error) bool {
	return StatusCode(err) == 405
}
