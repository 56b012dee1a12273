package watcher

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ritzau/relgraph/pkg/model"
	"github.com/ritzau/relgraph/pkg/output"
	"github.com/ritzau/relgraph/pkg/pubsub"
)

// Default debounce timings for snapshot reloads.
const (
	DefaultQuietPeriod = 250 * time.Millisecond
	DefaultMaxWait     = 2 * time.Second
)

// GraphSink receives reloaded graphs. *web.Server implements it.
type GraphSink interface {
	SetGraph(g *model.Graph) error
	PublishStatus(status pubsub.ExtractionStatus) error
}

// Reloader loads a snapshot file into a GraphSink, once or on every change.
type Reloader struct {
	path        string
	sink        GraphSink
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewReloader creates a reloader for the snapshot at path.
func NewReloader(path string, sink GraphSink) *Reloader {
	return &Reloader{
		path:        path,
		sink:        sink,
		quietPeriod: DefaultQuietPeriod,
		maxWait:     DefaultMaxWait,
	}
}

// SetDebounce overrides the debounce timings used by Watch.
func (r *Reloader) SetDebounce(quietPeriod, maxWait time.Duration) {
	r.quietPeriod = quietPeriod
	r.maxWait = maxWait
}

// Load reads the snapshot and hands it to the sink.
func (r *Reloader) Load() error {
	g, err := output.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("loading snapshot %s: %w", r.path, err)
	}
	if err := r.sink.SetGraph(g); err != nil {
		return fmt.Errorf("publishing snapshot %s: %w", r.path, err)
	}

	status := pubsub.ExtractionStatus{
		RunID:   uuid.NewString(),
		State:   pubsub.StateReloaded,
		Message: fmt.Sprintf("Reloaded %s", r.path),
		Depth:   g.Metadata.MaxDepth,
		Fetched: g.Metadata.IssueCount,
	}
	if g.Metadata.RootIssue != nil {
		status.Key = *g.Metadata.RootIssue
	}
	if err := r.sink.PublishStatus(status); err != nil {
		log.Debug("reload status not published", "error", err)
	}

	log.Info("snapshot loaded", "path", r.path, "issues", g.Metadata.IssueCount)
	return nil
}

// Watch reloads the snapshot after every debounced change until ctx is
// done. Failed reloads are logged and the previous graph stays served.
func (r *Reloader) Watch(ctx context.Context) error {
	fw, err := NewFileWatcher(r.path)
	if err != nil {
		return err
	}
	if err := fw.Start(ctx); err != nil {
		return err
	}

	debouncer := NewDebouncer(fw.Events(), r.quietPeriod, r.maxWait)
	debouncer.Start(ctx)

	for event := range debouncer.Output() {
		analysis := AnalyzeChanges(event)
		switch {
		case analysis.NeedReload:
			if err := r.Load(); err != nil {
				log.Warn("snapshot reload failed", "error", err)
			}
		case analysis.Removed:
			log.Warn("snapshot removed, keeping current graph", "path", r.path)
		}
	}
	return nil
}
