// Package eventbus provides a small in-process topic bus: the transport-
// agnostic seam between the cart engine's change notifier and whatever UI
// event system the application bridges it to.
package eventbus

import (
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Handler receives payloads published on a topic.
type Handler func(topic string, payload any)

// Bus fans published events out to topic subscribers, synchronously and in
// subscription order. Handler panics are logged and isolated.
type Bus struct {
	lg *zap.Logger

	mu     sync.RWMutex
	topics map[string][]handlerEntry
}

type handlerEntry struct {
	id uuid.UUID
	fn Handler
}

// New creates a Bus. A nil logger defaults to a no-op logger.
func New(lg *zap.Logger) *Bus {
	if lg == nil {
		lg = zap.NewNop()
	}
	return &Bus{
		lg:     lg,
		topics: make(map[string][]handlerEntry),
	}
}

// Subscribe registers fn for a topic and returns an unsubscribe handle.
// Subscribing to the wildcard topic "*" receives every publication.
func (b *Bus) Subscribe(topic string, fn Handler) (unsubscribe func()) {
	id := uuid.New()

	b.mu.Lock()
	b.topics[topic] = append(b.topics[topic], handlerEntry{id: id, fn: fn})
	b.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			entries := b.topics[topic]
			for i, e := range entries {
				if e.id == id {
					b.topics[topic] = append(entries[:i], entries[i+1:]...)
					break
				}
			}
		})
	}
}

// Publish delivers payload to subscribers of topic, then to wildcard
// subscribers.
func (b *Bus) Publish(topic string, payload any) {
	b.mu.RLock()
	entries := make([]handlerEntry, 0, len(b.topics[topic])+len(b.topics["*"]))
	entries = append(entries, b.topics[topic]...)
	if topic != "*" {
		entries = append(entries, b.topics["*"]...)
	}
	b.mu.RUnlock()

	for _, e := range entries {
		b.deliver(e, topic, payload)
	}
}

func (b *Bus) deliver(e handlerEntry, topic string, payload any) {
	defer func() {
		if rec := recover(); rec != nil {
			b.lg.Error("event handler panicked",
				zap.String("topic", topic),
				zap.String("subscription", e.id.String()),
				zap.Any("panic", rec),
			)
		}
	}()
	e.fn(topic, payload)
}
