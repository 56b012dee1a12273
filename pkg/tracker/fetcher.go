// Package tracker defines the issue fetch capability relationship extraction
// depends on, together with a Jira REST implementation and an in-memory mock.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrNotFound is matched by errors.Is when the tracker has no issue for a key.
var ErrNotFound = errors.New("issue not found")

// Fetcher retrieves a single issue by key.
type Fetcher interface {
	GetIssue(ctx context.Context, key string) (*Issue, error)
}

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, key string) (*Issue, error)

// GetIssue calls f(ctx, key).
func (f FetcherFunc) GetIssue(ctx context.Context, key string) (*Issue, error) {
	return f(ctx, key)
}

// StatusError is returned when the tracker answers with a non-2xx status.
type StatusError struct {
	Key        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("fetching %s: HTTP %d: %s", e.Key, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("fetching %s: HTTP %d", e.Key, e.StatusCode)
}

// Is makes a 404 StatusError match ErrNotFound.
func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}
