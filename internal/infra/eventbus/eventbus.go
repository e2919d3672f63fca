// Package eventbus provides an in-memory publish/subscribe bus.
// The RAG ingest path publishes on TopicSourceIngested after writing chunks;
// the embed worker subscribes and backfills embeddings asynchronously.
//
// Events are fire-and-forget: a full subscriber buffer drops the event.
// The embed worker reconciles against pending rows on startup, so a
// dropped event delays embedding rather than losing data.
package eventbus

import "sync"

// Topics published by demoplane services.
const (
	// TopicSourceIngested fires once per ingested knowledge source.
	// Payload is the source ID (string).
	TopicSourceIngested = "rag.source.ingested"

	// TopicConfigUpdated fires when runtime settings change.
	// Payload is the acting admin subject (string).
	TopicConfigUpdated = "config.updated"
)

// Event is a single published message.
type Event struct {
	Topic   string
	Payload any
}

// EventBus is the interface for publishing and subscribing to topics.
type EventBus interface {
	Publish(topic string, payload any)
	Subscribe(topic string) <-chan Event
}

const defaultBufferSize = 100

// Bus is the in-memory implementation of EventBus.
type Bus struct {
	mu          sync.RWMutex
	subscribers map[string][]chan Event
}

// New returns a new in-memory Bus.
func New() *Bus {
	return &Bus{
		subscribers: make(map[string][]chan Event),
	}
}

// Subscribe registers a new subscriber for topic and returns a read-only channel.
// The caller must consume the channel to prevent drops on future Publish calls.
func (b *Bus) Subscribe(topic string) <-chan Event {
	ch := make(chan Event, defaultBufferSize)
	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], ch)
	b.mu.Unlock()
	return ch
}

// Publish sends an Event to all subscribers of topic.
// If a subscriber's buffer is full the event is dropped (non-blocking).
func (b *Bus) Publish(topic string, payload any) {
	evt := Event{Topic: topic, Payload: payload}
	b.mu.RLock()
	subs := b.subscribers[topic]
	b.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
			// buffer full, drop
		}
	}
}
