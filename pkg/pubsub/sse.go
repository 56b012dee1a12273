package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/ritzau/relgraph/pkg/logging"
	"github.com/ritzau/relgraph/pkg/metrics"
)

var log = logging.New("pubsub")

// ErrClosed is returned by Publish and Subscribe after Close.
var ErrClosed = errors.New("publisher is closed")

// subscriberBuffer is how many events a subscriber may lag before drops.
const subscriberBuffer = 100

// TopicConfig configures buffering behavior for a topic
type TopicConfig struct {
	BufferSize int  // Number of events to buffer (0 = no buffering)
	ReplayAll  bool // If true, replay all buffered events; if false, only replay last event
}

// topicState is everything the publisher keeps per topic.
type topicState struct {
	config  TopicConfig
	version int
	buffer  []Event
	subs    map[*sseSubscription]struct{}
}

// SSEPublisher implements Publisher using Server-Sent Events
type SSEPublisher struct {
	mu     sync.Mutex
	topics map[string]*topicState
	closed bool
}

// NewSSEPublisher creates a new SSE-based publisher
func NewSSEPublisher() *SSEPublisher {
	return &SSEPublisher{
		topics: make(map[string]*topicState),
	}
}

// topic returns the state for name, creating it. Callers hold p.mu.
func (p *SSEPublisher) topic(name string) *topicState {
	t, ok := p.topics[name]
	if !ok {
		t = &topicState{subs: make(map[*sseSubscription]struct{})}
		p.topics[name] = t
	}
	return t
}

// ConfigureTopic sets buffering configuration for a topic
func (p *SSEPublisher) ConfigureTopic(topic string, config TopicConfig) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t := p.topic(topic)
	t.config = config
	if len(t.buffer) > config.BufferSize {
		t.buffer = t.buffer[len(t.buffer)-config.BufferSize:]
	}
}

// Subscribe creates a new subscription to a topic and replays buffered
// events as configured for the topic.
func (p *SSEPublisher) Subscribe(ctx context.Context, topic string) (Subscription, error) {
	return p.SubscribeFrom(ctx, topic, -1)
}

// SubscribeFrom resumes a subscription after the event with version
// lastVersion: every buffered event newer than it is replayed. A negative
// lastVersion behaves like Subscribe. Events older than the buffer are lost.
func (p *SSEPublisher) SubscribeFrom(ctx context.Context, topic string, lastVersion int) (Subscription, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrClosed
	}

	sub := &sseSubscription{
		topic:     topic,
		events:    make(chan Event, subscriberBuffer),
		publisher: p,
	}
	t := p.topic(topic)
	t.subs[sub] = struct{}{}

	// Replay under the lock so no publish can slip in between
	replay := replayed(t, lastVersion)
	for _, event := range replay {
		select {
		case sub.events <- event:
		default:
			metrics.EventDropped(topic)
			log.Warn("could not replay event to new subscriber", "topic", topic, "version", event.Version)
		}
	}
	p.mu.Unlock()

	metrics.SubscriberAdded(topic)
	if len(replay) > 0 {
		log.Debug("replayed events to new subscriber", "topic", topic, "count", len(replay))
	}

	// Handle context cancellation
	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done():
		}
	}()

	return sub, nil
}

// replayed picks the buffered events a new subscriber should see.
func replayed(t *topicState, lastVersion int) []Event {
	if len(t.buffer) == 0 {
		return nil
	}
	if lastVersion >= 0 {
		var newer []Event
		for _, event := range t.buffer {
			if event.Version > lastVersion {
				newer = append(newer, event)
			}
		}
		return newer
	}
	if t.config.ReplayAll {
		return append([]Event(nil), t.buffer...)
	}
	return []Event{t.buffer[len(t.buffer)-1]}
}

// Publish sends an event to all subscribers of a topic. Subscribers that
// have fallen behind miss the event; publishing never blocks on them.
func (p *SSEPublisher) Publish(topic string, eventType string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}

	t := p.topic(topic)
	t.version++
	event := Event{
		Topic:   topic,
		Type:    eventType,
		Data:    jsonData,
		Version: t.version,
	}

	if size := t.config.BufferSize; size > 0 {
		t.buffer = append(t.buffer, event)
		if len(t.buffer) > size {
			t.buffer = t.buffer[len(t.buffer)-size:]
		}
	}

	for sub := range t.subs {
		select {
		case sub.events <- event:
		default:
			metrics.EventDropped(topic)
			log.Warn("subscription channel full, dropping event", "topic", topic, "version", event.Version)
		}
	}
	metrics.EventPublished(topic)

	return nil
}

// Close shuts down the publisher and ends every subscription's event stream
func (p *SSEPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	for name, t := range p.topics {
		for sub := range t.subs {
			sub.markClosed()
			close(sub.events)
			metrics.SubscriberRemoved(name)
		}
		t.subs = nil
	}

	return nil
}

// unsubscribe removes a subscription (called by subscription.Close())
func (p *SSEPublisher) unsubscribe(sub *sseSubscription) {
	p.mu.Lock()
	defer p.mu.Unlock()

	t := p.topics[sub.topic]
	if t == nil || t.subs == nil {
		return
	}
	if _, ok := t.subs[sub]; ok {
		delete(t.subs, sub)
		metrics.SubscriberRemoved(sub.topic)
	}
}

// sseSubscription implements Subscription
type sseSubscription struct {
	topic     string
	events    chan Event
	publisher *SSEPublisher

	mu     sync.Mutex
	closed bool
	stop   chan struct{}
}

// Topic returns the subscription topic
func (s *sseSubscription) Topic() string {
	return s.topic
}

// Events returns a channel for receiving events. It is closed when the
// publisher shuts down.
func (s *sseSubscription) Events() <-chan Event {
	return s.events
}

// Close closes the subscription
func (s *sseSubscription) Close() error {
	if !s.markClosed() {
		return nil
	}
	s.publisher.unsubscribe(s)
	return nil
}

// markClosed flips the closed flag and reports whether it was open.
func (s *sseSubscription) markClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.closed = true
	if s.stop != nil {
		close(s.stop)
	}
	return true
}

// done is closed once the subscription is closed.
func (s *sseSubscription) done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stop == nil {
		s.stop = make(chan struct{})
		if s.closed {
			close(s.stop)
		}
	}
	return s.stop
}

// WriteSSE writes an event to an SSE response writer. The version is sent
// as the event id so reconnecting clients can resume with Last-Event-ID.
// Format: "id: {version}\ndata: {json}\n\n"
func WriteSSE(w io.Writer, event Event) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = fmt.Fprintf(w, "id: %d\ndata: %s\n\n", event.Version, jsonData)
	return err
}
