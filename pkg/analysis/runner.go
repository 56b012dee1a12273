// Package analysis runs extractions on behalf of the web server and streams
// their progress to subscribers.
package analysis

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/ritzau/relgraph/pkg/extract"
	"github.com/ritzau/relgraph/pkg/logging"
	"github.com/ritzau/relgraph/pkg/model"
	"github.com/ritzau/relgraph/pkg/pubsub"
	"github.com/ritzau/relgraph/pkg/tracker"
	"github.com/ritzau/relgraph/pkg/web"
)

var log = logging.New("analysis")

// Runner orchestrates extractions and publishes their results
type Runner struct {
	ctx     context.Context // parent of runs started over HTTP
	fetcher tracker.Fetcher
	opts    []extract.Option
	server  *web.Server
	mu      sync.Mutex // Prevent concurrent extraction runs

	wg sync.WaitGroup
}

// Request describes one extraction run. Keys selects bulk extraction;
// otherwise Root is traversed to Depth.
type Request struct {
	RunID   string
	Root    string
	Keys    []string
	Depth   int
	Options *model.GraphOptions
	Reason  string // e.g., "initial extraction", "requested over HTTP"
}

// NewRunner creates a runner and registers it as the server's extraction
// handler. Runs requested over HTTP are cancelled with ctx. opts are applied
// to every extractor it builds.
func NewRunner(ctx context.Context, fetcher tracker.Fetcher, server *web.Server, opts ...extract.Option) *Runner {
	r := &Runner{
		ctx:     ctx,
		fetcher: fetcher,
		opts:    opts,
		server:  server,
	}
	server.SetExtractFunc(r.startFromWeb)
	return r
}

// Run executes one extraction, publishes it to the server and returns the
// graph. Runs are serialized.
func (r *Runner) Run(ctx context.Context, req Request) (*model.Graph, error) {
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}

	// Lock to prevent concurrent extraction
	r.mu.Lock()
	defer r.mu.Unlock()

	log.Info("starting extraction", "runID", req.RunID, "reason", req.Reason, "root", req.Root, "keys", len(req.Keys))
	r.publish(pubsub.ExtractionStatus{
		RunID:   req.RunID,
		State:   pubsub.StateFetching,
		Message: fmt.Sprintf("Extraction started: %s", req.Reason),
		Key:     req.Root,
		Depth:   req.Depth,
	})

	opts := append([]extract.Option{}, r.opts...)
	opts = append(opts, extract.WithProgress(func(p extract.Progress) {
		r.publish(pubsub.ExtractionStatus{
			RunID:   req.RunID,
			State:   pubsub.StateFetching,
			Message: fmt.Sprintf("Processed %s", p.Key),
			Key:     p.Key,
			Depth:   p.Depth,
			Fetched: p.Fetched,
			Skipped: p.Skipped,
			Queued:  p.Queued,
		})
	}))
	ex, err := extract.New(r.fetcher, opts...)
	if err != nil {
		return nil, r.fail(req, err)
	}

	var g *model.Graph
	if len(req.Keys) > 0 {
		g, err = ex.ExtractBulk(ctx, req.Keys, req.Options)
	} else {
		g, err = ex.Extract(ctx, req.Root, req.Depth, req.Options)
	}
	if err != nil {
		return nil, r.fail(req, err)
	}

	if err := r.server.SetGraph(g); err != nil {
		log.Warn("failed to publish graph", "runID", req.RunID, "error", err)
	}
	r.publish(pubsub.ExtractionStatus{
		RunID:   req.RunID,
		State:   pubsub.StateComplete,
		Message: "Extraction complete",
		Key:     req.Root,
		Depth:   req.Depth,
		Fetched: g.Metadata.IssueCount,
	})

	log.Info("extraction complete", "runID", req.RunID, "issues", g.Metadata.IssueCount,
		"relationships", g.Metadata.RelationshipCount)
	return g, nil
}

// Start queues req to run in the background and returns its run ID.
func (r *Runner) Start(ctx context.Context, req Request) string {
	if req.RunID == "" {
		req.RunID = uuid.NewString()
	}
	r.publish(pubsub.ExtractionStatus{
		RunID:   req.RunID,
		State:   pubsub.StateQueued,
		Message: "Extraction queued",
		Key:     req.Root,
		Depth:   req.Depth,
		Queued:  len(req.Keys),
	})

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if _, err := r.Run(ctx, req); err != nil {
			log.Warn("extraction failed", "runID", req.RunID, "error", err)
		}
	}()
	return req.RunID
}

// Wait blocks until every run started with Start has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) startFromWeb(req web.ExtractRequest) (string, error) {
	return r.Start(r.ctx, Request{
		Root:    req.Root,
		Keys:    req.Keys,
		Depth:   req.Depth,
		Options: req.Options,
		Reason:  "requested over HTTP",
	}), nil
}

func (r *Runner) fail(req Request, err error) error {
	r.publish(pubsub.ExtractionStatus{
		RunID:   req.RunID,
		State:   pubsub.StateFailed,
		Message: fmt.Sprintf("Extraction failed: %v", err),
		Key:     req.Root,
		Depth:   req.Depth,
	})
	return fmt.Errorf("extraction %s: %w", req.RunID, err)
}

func (r *Runner) publish(status pubsub.ExtractionStatus) {
	if err := r.server.PublishStatus(status); err != nil {
		log.Debug("status not published", "runID", status.RunID, "state", status.State, "error", err)
	}
}
