// Package web serves the latest extracted relationship graph over HTTP:
// graph queries, extraction triggers, SSE progress streams and metrics.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ritzau/relgraph/pkg/cycles"
	"github.com/ritzau/relgraph/pkg/graph"
	"github.com/ritzau/relgraph/pkg/lens"
	"github.com/ritzau/relgraph/pkg/logging"
	"github.com/ritzau/relgraph/pkg/model"
	"github.com/ritzau/relgraph/pkg/pubsub"
)

var log = logging.New("web")

// ErrNoGraph is reported while no graph has been extracted or loaded yet.
var ErrNoGraph = errors.New("no graph available yet")

// ExtractRequest asks for a new extraction. Keys selects bulk extraction;
// otherwise Root is traversed to Depth.
type ExtractRequest struct {
	Root    string              `json:"root,omitempty"`
	Keys    []string            `json:"keys,omitempty"`
	Depth   int                 `json:"depth"`
	Options *model.GraphOptions `json:"options,omitempty"`
}

// Validate checks the request before any work is queued.
func (r *ExtractRequest) Validate() error {
	switch {
	case r.Root == "" && len(r.Keys) == 0:
		return errors.New("either root or keys is required")
	case r.Root != "" && len(r.Keys) > 0:
		return errors.New("root and keys are mutually exclusive")
	case r.Depth < 0:
		return errors.New("depth must not be negative")
	}
	return nil
}

// ExtractFunc starts an extraction in the background and returns its run ID.
type ExtractFunc func(req ExtractRequest) (runID string, err error)

// Server represents the web server
type Server struct {
	router     *mux.Router
	publisher  *pubsub.SSEPublisher
	httpServer *http.Server

	mu       sync.RWMutex
	graph    *model.Graph
	snapshot *lens.GraphSnapshot
	extract  ExtractFunc
}

// NewServer creates a new web server
func NewServer() *Server {
	ssePublisher := pubsub.NewSSEPublisher()
	pubsub.ConfigureDefaultTopics(ssePublisher)

	s := &Server{
		router:    mux.NewRouter(),
		publisher: ssePublisher,
	}
	s.setupRoutes()
	return s
}

// SetExtractFunc installs the handler behind POST /api/extract.
func (s *Server) SetExtractFunc(fn ExtractFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.extract = fn
}

// SetGraph replaces the served graph and publishes how it differs from
// the previous one.
func (s *Server) SetGraph(g *model.Graph) error {
	s.mu.Lock()
	diff := lens.ComputeDiff(s.snapshot, g)
	s.graph = g
	s.snapshot = lens.CreateSnapshot(g)
	s.mu.Unlock()

	log.Info("graph updated",
		"source", g.Metadata.Source,
		"issues", g.Metadata.IssueCount,
		"added", len(diff.AddedIssues),
		"removed", len(diff.RemovedIssues),
		"modified", len(diff.ModifiedIssues),
	)

	data := pubsub.GraphData{
		RootIssue:         g.Metadata.RootIssue,
		Source:            g.Metadata.Source,
		IssueCount:        g.Metadata.IssueCount,
		RelationshipCount: g.Metadata.RelationshipCount,
		Diff:              diff,
		Complete:          true,
	}
	return s.publisher.Publish(pubsub.TopicGraph, pubsub.EventGraphDiff, data)
}

// Graph returns the currently served graph, or nil.
func (s *Server) Graph() *model.Graph {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph
}

// PublishStatus publishes an extraction status event
func (s *Server) PublishStatus(status pubsub.ExtractionStatus) error {
	return s.publisher.Publish(pubsub.TopicExtractionStatus, status.State, status)
}

// Handler returns the HTTP handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.Use(logging.RequestIDMiddleware)

	// SSE subscription endpoint
	s.router.HandleFunc("/api/subscribe/{topic}", s.handleSubscribe).Methods("GET")

	// API routes - more specific routes must come first
	s.router.HandleFunc("/api/graph/path", s.handlePath).Methods("GET")
	s.router.HandleFunc("/api/graph/cycles", s.handleCycles).Methods("GET")
	s.router.HandleFunc("/api/graph/distances", s.handleDistances).Methods("GET")
	s.router.HandleFunc("/api/graph/view", s.handleView).Methods("POST")
	s.router.HandleFunc("/api/graph/issues/{key}/related", s.handleRelated).Methods("GET")
	s.router.HandleFunc("/api/graph/issues/{key}", s.handleIssue).Methods("GET")
	s.router.HandleFunc("/api/graph", s.handleGraph).Methods("GET")
	s.router.HandleFunc("/api/extract", s.handleExtract).Methods("POST")

	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Warn("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// currentGraph writes 503 and returns nil while there is no graph.
func (s *Server) currentGraph(w http.ResponseWriter) *model.Graph {
	g := s.Graph()
	if g == nil {
		writeError(w, http.StatusServiceUnavailable, ErrNoGraph)
	}
	return g
}

func (s *Server) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	topic := mux.Vars(r)["topic"]
	if topic != pubsub.TopicExtractionStatus && topic != pubsub.TopicGraph {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown topic %q", topic))
		return
	}

	// Set SSE headers
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*") // CORS support

	// Send initial comment to establish connection (Safari compatibility)
	fmt.Fprintf(w, ": connected\n\n")
	flusher, _ := w.(http.Flusher)
	if flusher != nil {
		flusher.Flush()
	}

	// Resume after the last event a reconnecting client saw
	lastVersion := -1
	if id := r.Header.Get("Last-Event-ID"); id != "" {
		if v, err := strconv.Atoi(id); err == nil && v >= 0 {
			lastVersion = v
		}
	}

	sub, err := s.publisher.SubscribeFrom(r.Context(), topic, lastVersion)
	if err != nil {
		log.ErrorContext(r.Context(), "subscribe failed", "topic", topic, "error", err)
		return
	}
	defer sub.Close()

	// Stream events until the client goes away or the publisher closes
	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := pubsub.WriteSSE(w, event); err != nil {
				log.WarnContext(r.Context(), "error writing SSE event", "topic", topic, "error", err)
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
	}
}

func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	if g := s.currentGraph(w); g != nil {
		writeJSON(w, http.StatusOK, g)
	}
}

func (s *Server) handleIssue(w http.ResponseWriter, r *http.Request) {
	g := s.currentGraph(w)
	if g == nil {
		return
	}

	key := mux.Vars(r)["key"]
	rel, ok := g.Get(key)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("issue %s not in graph", key))
		return
	}
	writeJSON(w, http.StatusOK, rel)
}

func (s *Server) handleRelated(w http.ResponseWriter, r *http.Request) {
	g := s.currentGraph(w)
	if g == nil {
		return
	}

	key := mux.Vars(r)["key"]
	if !g.Contains(key) {
		writeError(w, http.StatusNotFound, fmt.Errorf("issue %s not in graph", key))
		return
	}
	related := g.RelatedKeys(key)
	sort.Strings(related)
	if related == nil {
		related = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"key": key, "related": related})
}

func (s *Server) handlePath(w http.ResponseWriter, r *http.Request) {
	g := s.currentGraph(w)
	if g == nil {
		return
	}

	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" || to == "" {
		writeError(w, http.StatusBadRequest, errors.New("from and to are required"))
		return
	}
	path, ok := g.ShortestPath(from, to)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("no path from %s to %s", from, to))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"from": from, "to": to, "path": path})
}

func (s *Server) handleCycles(w http.ResponseWriter, r *http.Request) {
	g := s.currentGraph(w)
	if g == nil {
		return
	}

	category := model.Blocks
	if c := r.URL.Query().Get("category"); c != "" {
		category = model.Category(c)
	}
	found := cycles.FindCycles(graph.Build(g, category))
	writeJSON(w, http.StatusOK, map[string]any{"category": category, "cycles": found})
}

func (s *Server) handleDistances(w http.ResponseWriter, r *http.Request) {
	g := s.currentGraph(w)
	if g == nil {
		return
	}

	from := r.URL.Query()["from"]
	if len(from) == 0 && g.Metadata.RootIssue != nil {
		from = []string{*g.Metadata.RootIssue}
	}
	if len(from) == 0 {
		writeError(w, http.StatusBadRequest, errors.New("from is required for graphs without a root"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"from": from, "distances": lens.ComputeDistances(g, from)})
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	g := s.currentGraph(w)
	if g == nil {
		return
	}

	var cfg lens.Config
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid lens: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, lens.Render(g, &cfg))
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	extract := s.extract
	s.mu.RUnlock()
	if extract == nil {
		writeError(w, http.StatusServiceUnavailable, errors.New("extraction is not configured"))
		return
	}

	var req ExtractRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request: %w", err))
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	runID, err := extract(req)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	log.InfoContext(r.Context(), "extraction queued", "runID", runID, "root", req.Root, "keys", len(req.Keys))
	writeJSON(w, http.StatusAccepted, map[string]string{"run_id": runID})
}

// Start listens on port until Shutdown is called.
func (s *Server) Start(port int) error {
	addr := fmt.Sprintf(":%d", port)
	s.mu.Lock()
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srv := s.httpServer
	s.mu.Unlock()

	log.Info("starting web server", "url", "http://localhost"+addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown closes subscriptions and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.publisher.Close()

	s.mu.RLock()
	srv := s.httpServer
	s.mu.RUnlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}
