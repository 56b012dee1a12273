// Package extract assembles relationship graphs by fetching issues from a
// tracker: breadth-first from a root issue, or one hop for a list of keys.
//
// Fetch failures are never returned. A key that cannot be fetched is left
// out of the graph and extraction carries on with the remaining keys.
package extract

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ritzau/relgraph/pkg/links"
	"github.com/ritzau/relgraph/pkg/logging"
	"github.com/ritzau/relgraph/pkg/metrics"
	"github.com/ritzau/relgraph/pkg/model"
	"github.com/ritzau/relgraph/pkg/tracker"
)

var (
	// ErrNegativeDepth is returned when Extract is called with maxDepth < 0.
	ErrNegativeDepth = errors.New("max depth must not be negative")
	// ErrNilFetcher is returned by New when no fetcher is given.
	ErrNilFetcher = errors.New("fetcher must not be nil")
)

// Provenance labels written to Metadata.Source.
const (
	SourceTraversal = "jira"
	SourceBulk      = "jira_bulk"
)

// Progress reports extraction state after each processed key.
type Progress struct {
	Key     string
	Depth   int
	Fetched int
	Skipped int
	Queued  int
	Err     error
}

// Extractor runs extractions against a single fetcher. It holds no state
// between calls and may be shared by concurrent callers.
type Extractor struct {
	fetcher     tracker.Fetcher
	links       *links.Extractor
	concurrency int
	progress    func(Progress)
	logger      *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithConcurrency fetches up to n keys of the same depth at once.
// Values below 1 are treated as 1.
func WithConcurrency(n int) Option {
	return func(e *Extractor) {
		if n < 1 {
			n = 1
		}
		e.concurrency = n
	}
}

// WithEpicFields sets the custom fields probed for an issue's epic.
func WithEpicFields(fields ...string) Option {
	return func(e *Extractor) {
		e.links = links.NewExtractor(fields...)
	}
}

// WithProgress registers a callback invoked after every processed key.
// It is called from the extracting goroutine only.
func WithProgress(fn func(Progress)) Option {
	return func(e *Extractor) {
		e.progress = fn
	}
}

// WithLogger replaces the default component logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Extractor) {
		e.logger = l
	}
}

// New creates an Extractor over fetcher.
func New(fetcher tracker.Fetcher, opts ...Option) (*Extractor, error) {
	if fetcher == nil {
		return nil, ErrNilFetcher
	}
	e := &Extractor{
		fetcher:     fetcher,
		links:       links.NewExtractor(),
		concurrency: 1,
		logger:      logging.New("extract"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// fetchResult is the outcome of fetching one key.
type fetchResult struct {
	issue *tracker.Issue
	err   error
}

// fetchAll fetches keys, concurrently when configured, and returns results
// in key order. Individual failures are reported in the results; the
// returned error is only the context's.
func (e *Extractor) fetchAll(ctx context.Context, keys []string) ([]fetchResult, error) {
	results := make([]fetchResult, len(keys))

	if e.concurrency <= 1 || len(keys) <= 1 {
		for i, key := range keys {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			results[i] = e.fetch(ctx, key)
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return results, nil
	}

	// Goroutines never return an error, so one failure cannot cancel the rest.
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, key := range keys {
		g.Go(func() error {
			results[i] = e.fetch(ctx, key)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Extractor) fetch(ctx context.Context, key string) fetchResult {
	issue, err := e.fetcher.GetIssue(ctx, key)
	if err == nil && issue == nil {
		err = tracker.ErrNotFound
	}
	metrics.RecordFetch(err)
	return fetchResult{issue: issue, err: err}
}

func (e *Extractor) report(p Progress) {
	if e.progress != nil {
		e.progress(p)
	}
}

func resolveOptions(opts *model.GraphOptions) model.GraphOptions {
	if opts == nil {
		return model.DefaultGraphOptions()
	}
	return *opts
}
