package extract

import (
	"context"
	"time"

	"github.com/ritzau/relgraph/pkg/metrics"
	"github.com/ritzau/relgraph/pkg/model"
)

type queueItem struct {
	key   string
	depth int
}

// Extract walks the relationship graph breadth-first from root, following
// every related key up to maxDepth hops, and returns the issues it could
// fetch. A nil opts uses model.DefaultGraphOptions.
//
// Every key is fetched at most once. If root itself cannot be fetched the
// returned graph is empty. The only errors are ErrNegativeDepth, checked
// before any fetch, and the context's error on cancellation.
func (e *Extractor) Extract(ctx context.Context, root string, maxDepth int, opts *model.GraphOptions) (*model.Graph, error) {
	if maxDepth < 0 {
		return nil, ErrNegativeDepth
	}
	options := resolveOptions(opts)
	start := time.Now()

	g := model.NewGraph(SourceTraversal)
	g.SetRoot(root, maxDepth)

	queue := []queueItem{{key: root, depth: 0}}
	depths := map[string]int{root: 0}
	visited := make(map[string]bool)
	progress := Progress{}

	for len(queue) > 0 {
		// Sequentially one key at a time; concurrently the whole frontier.
		n := 1
		if e.concurrency > 1 {
			for n < len(queue) && queue[n].depth == queue[0].depth {
				n++
			}
		}
		batch := queue[:n]
		queue = queue[n:]

		items := make([]queueItem, 0, len(batch))
		keys := make([]string, 0, len(batch))
		for _, item := range batch {
			if visited[item.key] {
				continue
			}
			visited[item.key] = true
			items = append(items, item)
			keys = append(keys, item.key)
		}
		if len(items) == 0 {
			continue
		}

		results, err := e.fetchAll(ctx, keys)
		if err != nil {
			return nil, err
		}

		for i, item := range items {
			progress.Key = item.key
			progress.Depth = item.depth
			progress.Err = results[i].err

			if results[i].err != nil {
				progress.Skipped++
				progress.Queued = len(queue)
				e.logger.DebugContext(ctx, "skipping issue", "key", item.key, "depth", item.depth, "error", results[i].err)
				e.report(progress)
				continue
			}

			rel := e.links.Extract(results[i].issue, options)
			g.AddIssue(item.key, rel)
			progress.Fetched++

			if item.depth < maxDepth {
				for _, next := range rel.Related() {
					if _, assigned := depths[next]; assigned {
						continue
					}
					depths[next] = item.depth + 1
					queue = append(queue, queueItem{key: next, depth: item.depth + 1})
				}
			}

			progress.Queued = len(queue)
			e.report(progress)
		}
	}

	elapsed := time.Since(start)
	metrics.RecordExtraction(metrics.ModeTraversal, elapsed, g.Metadata.IssueCount)
	e.logger.InfoContext(ctx, "extraction complete",
		"root", root,
		"depth", maxDepth,
		"issues", g.Metadata.IssueCount,
		"relationships", g.Metadata.RelationshipCount,
		"skipped", progress.Skipped,
		"durationMs", elapsed.Milliseconds(),
	)
	return g, nil
}
