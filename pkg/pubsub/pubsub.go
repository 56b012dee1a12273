// Package pubsub fans extraction progress and graph updates out to
// Server-Sent Events subscribers.
package pubsub

import (
	"context"
	"encoding/json"
)

// Event represents a pub/sub event
type Event struct {
	Topic   string          `json:"topic"`   // Subscription topic (e.g., "extraction_status", "graph")
	Type    string          `json:"type"`    // Event type (e.g., "fetching", "complete", "diff")
	Data    json.RawMessage `json:"data"`    // Event payload
	Version int             `json:"version"` // Version number for ordering
}

// Subscription represents a client subscription to a topic
type Subscription interface {
	// Topic returns the subscription topic
	Topic() string

	// Events returns a channel for receiving events
	Events() <-chan Event

	// Close closes the subscription
	Close() error
}

// Publisher manages pub/sub subscriptions and event publishing
type Publisher interface {
	// Subscribe creates a new subscription to a topic
	// Context cancellation will close the subscription
	Subscribe(ctx context.Context, topic string) (Subscription, error)

	// Publish sends an event to all subscribers of a topic
	Publish(topic string, eventType string, data any) error

	// Close shuts down the publisher and all subscriptions
	Close() error
}

// Topics
const (
	TopicExtractionStatus = "extraction_status"
	TopicGraph            = "graph"
)

// Extraction states, used as event types on TopicExtractionStatus
const (
	StateQueued    = "queued"
	StateFetching  = "fetching"
	StateComplete  = "complete"
	StateFailed    = "failed"
	StateReloaded  = "reloaded"
	EventGraphDiff = "diff"
)

// ExtractionStatus represents the progress of one extraction run
type ExtractionStatus struct {
	RunID   string `json:"run_id"`
	State   string `json:"state"`   // queued, fetching, complete, failed, reloaded
	Message string `json:"message"` // Human-readable status message
	Key     string `json:"key,omitempty"`
	Depth   int    `json:"depth"`
	Fetched int    `json:"fetched"`
	Skipped int    `json:"skipped"`
	Queued  int    `json:"queued"`
}

// GraphData announces a new graph and how it differs from the previous one
type GraphData struct {
	RootIssue         *string `json:"root_issue"`
	Source            string  `json:"source"`
	IssueCount        int     `json:"issue_count"`
	RelationshipCount int     `json:"relationship_count"`
	Diff              any     `json:"diff,omitempty"`
	Complete          bool    `json:"complete"` // True when the extraction finished
}

// ConfigureDefaultTopics sets the buffering used by the relgraph server:
// status replays its latest event, graph replays only the latest diff.
func ConfigureDefaultTopics(p *SSEPublisher) {
	p.ConfigureTopic(TopicExtractionStatus, TopicConfig{BufferSize: 1})
	p.ConfigureTopic(TopicGraph, TopicConfig{BufferSize: 1})
}
