package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// maxErrorBody bounds how much of an error response is kept in StatusError.
const maxErrorBody = 512

// HTTPFetcher implements Fetcher against the Jira REST API v2
// (GET /rest/api/2/issue/{key}).
type HTTPFetcher struct {
	baseURL    string
	user       string
	token      string
	fields     []string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// HTTPOption customizes an HTTPFetcher.
type HTTPOption func(*HTTPFetcher)

// WithBasicAuth authenticates with a user name and API token.
func WithBasicAuth(user, token string) HTTPOption {
	return func(f *HTTPFetcher) {
		f.user = user
		f.token = token
	}
}

// WithBearerToken authenticates with a personal access token.
func WithBearerToken(token string) HTTPOption {
	return func(f *HTTPFetcher) {
		f.user = ""
		f.token = token
	}
}

// WithTimeout sets the per-request timeout of the underlying HTTP client.
func WithTimeout(d time.Duration) HTTPOption {
	return func(f *HTTPFetcher) {
		f.httpClient.Timeout = d
	}
}

// WithRateLimit allows at most perSecond requests per second, with bursts
// of up to burst requests. A non-positive rate disables limiting.
func WithRateLimit(perSecond float64, burst int) HTTPOption {
	return func(f *HTTPFetcher) {
		if perSecond <= 0 {
			f.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		f.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(f *HTTPFetcher) {
		f.httpClient = c
	}
}

// WithFields limits the response to the given fields. The fields needed for
// links and hierarchy are always requested.
func WithFields(fields ...string) HTTPOption {
	return func(f *HTTPFetcher) {
		f.fields = append([]string{fieldIssueLinks, fieldParent, fieldSubtasks}, fields...)
	}
}

// NewHTTPFetcher creates a fetcher targeting the given base URL
// (e.g. "https://example.atlassian.net").
func NewHTTPFetcher(baseURL string, opts ...HTTPOption) *HTTPFetcher {
	f := &HTTPFetcher{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// GetIssue fetches one issue. A 404 yields an error matching ErrNotFound.
func (f *HTTPFetcher) GetIssue(ctx context.Context, key string) (*Issue, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("waiting to fetch %s: %w", key, err)
		}
	}

	path := "/rest/api/2/issue/" + url.PathEscape(key)
	if len(f.fields) > 0 {
		q := url.Values{}
		q.Set("fields", strings.Join(f.fields, ","))
		path += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request for %s: %w", key, err)
	}
	req.Header.Set("Accept", "application/json")
	switch {
	case f.user != "":
		req.SetBasicAuth(f.user, f.token)
	case f.token != "":
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching %s: %w", key, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{
			Key:        key,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
		}
	}

	var issue Issue
	if err := json.NewDecoder(resp.Body).Decode(&issue); err != nil {
		return nil, fmt.Errorf("decoding %s: %w", key, err)
	}
	if issue.Key == "" {
		issue.Key = key
	}
	return &issue, nil
}
