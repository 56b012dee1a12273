package tracker

import (
	"context"
	"net/http"
	"sync"
)

// MockFetcher serves issues from memory. Keys without an issue return
// ErrNotFound; keys listed in Errors return that error instead.
type MockFetcher struct {
	Issues map[string]*Issue
	Errors map[string]error

	mu    sync.Mutex
	calls []string
}

// NewMockFetcher creates a mock serving the given issues, keyed by Issue.Key.
func NewMockFetcher(issues ...*Issue) *MockFetcher {
	m := &MockFetcher{
		Issues: make(map[string]*Issue),
		Errors: make(map[string]error),
	}
	for _, issue := range issues {
		m.Issues[issue.Key] = issue
	}
	return m
}

// GetIssue records the call and returns the configured issue or error.
func (m *MockFetcher) GetIssue(ctx context.Context, key string) (*Issue, error) {
	m.mu.Lock()
	m.calls = append(m.calls, key)
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err, ok := m.Errors[key]; ok {
		return nil, err
	}
	issue, ok := m.Issues[key]
	if !ok {
		return nil, &StatusError{Key: key, StatusCode: http.StatusNotFound}
	}
	return issue, nil
}

// Calls returns the keys requested so far, in request order.
func (m *MockFetcher) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}
