// Package upstream contains HTTP clients for the external services the API
// proxies to: the ML microservice (crop recommendation, disease detection),
// the weather provider, and the government market-data feed.
//
// These are the system's external collaborators — each client accepts
// validated input, forwards it, and reshapes the response. No business state
// lives here: a failure is either the upstream being unreachable
// (apperror.ErrUpstream, surfaced as 503) or the upstream answering with an
// error (StatusError, whose status code is forwarded as-is).
//
// Every client is built from a config struct with a DefaultConfig-style
// constructor, takes a context on each call so an abandoned request cancels
// the outbound round-trip, and shares nothing between calls except the
// http.Client's connection pool.
package upstream

import (
	"fmt"
	"net/http"
	"time"
)

// defaultTimeout bounds every outbound call. The ML model inference is the
// slowest collaborator; 30s covers it with headroom while still failing a
// dead upstream well before the server's own write timeout would.
const defaultTimeout = 30 * time.Second

// StatusError reports a non-2xx answer from an upstream service. The handler
// layer forwards StatusCode and Message to the client unchanged, so an ML
// validation error (bad feature range, unreadable image) keeps its original
// status instead of collapsing into a generic 500.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Message)
}

// newHTTPClient returns the http.Client used by all upstream clients.
func newHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &http.Client{Timeout: timeout}
}
