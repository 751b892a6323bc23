package httpclient

import (
	"fmt"
	"net/http"
)

// UpstreamError represents an error returned by an upstream vendor API.
type UpstreamError struct {
	StatusCode int
	Body       []byte
	URL        string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream error: status %d from %s", e.StatusCode, e.URL)
}

// Transient reports whether the failure is worth distinguishing for
// operators: rate limits, timeouts and 5xx are transient; bad credentials or
// an unknown model are permanent. Both are handled identically at the user
// boundary.
func (e *UpstreamError) Transient() bool {
	switch e.StatusCode {
	case http.StatusRequestTimeout, http.StatusTooManyRequests:
		return true
	}
	return e.StatusCode >= 500
}
