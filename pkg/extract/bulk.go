package extract

import (
	"context"
	"time"

	"github.com/ritzau/relgraph/pkg/metrics"
	"github.com/ritzau/relgraph/pkg/model"
)

// ExtractBulk fetches exactly the given keys and records their direct
// relationships. Related issues are not fetched. Keys are not deduplicated;
// a repeated key is fetched again and its record replaced.
//
// The graph has no root and a max depth of 0. The only error is the
// context's on cancellation.
func (e *Extractor) ExtractBulk(ctx context.Context, keys []string, opts *model.GraphOptions) (*model.Graph, error) {
	options := resolveOptions(opts)
	start := time.Now()

	g := model.NewGraph(SourceBulk)

	results, err := e.fetchAll(ctx, keys)
	if err != nil {
		return nil, err
	}

	progress := Progress{}
	for i, key := range keys {
		progress.Key = key
		progress.Err = results[i].err
		progress.Queued = len(keys) - i - 1

		if results[i].err != nil {
			progress.Skipped++
			e.logger.DebugContext(ctx, "skipping issue", "key", key, "error", results[i].err)
			e.report(progress)
			continue
		}

		g.AddIssue(key, e.links.Extract(results[i].issue, options))
		progress.Fetched++
		e.report(progress)
	}

	elapsed := time.Since(start)
	metrics.RecordExtraction(metrics.ModeBulk, elapsed, g.Metadata.IssueCount)
	e.logger.InfoContext(ctx, "bulk extraction complete",
		"requested", len(keys),
		"issues", g.Metadata.IssueCount,
		"skipped", progress.Skipped,
		"durationMs", elapsed.Milliseconds(),
	)
	return g, nil
}
