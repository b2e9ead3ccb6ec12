package messaging

import (
	"context"
	"errors"
	"sync"

	"github.com/jvhellemondt/api-time-registration/pkg/outbox"
)

var errBusClosed = errors.New("event bus closed")

// MemoryBus is an in-process EventBus for tests and single-binary use.
// Like the durable buses it deduplicates on the row key, so redelivered
// rows reach handlers at most once.
type MemoryBus struct {
	mu       sync.Mutex
	handlers map[string][]RowHandler
	seen     map[string]struct{}
	closed   bool
}

// NewMemoryBus creates an empty in-memory bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		handlers: make(map[string][]RowHandler),
		seen:     make(map[string]struct{}),
	}
}

// Publish delivers rows synchronously to the topic's handlers, dropping
// rows whose key was already delivered.
func (b *MemoryBus) Publish(ctx context.Context, rows []outbox.Row) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return errBusClosed
	}

	for _, row := range rows {
		key := row.Key()
		if _, dup := b.seen[key]; dup {
			continue
		}
		b.seen[key] = struct{}{}

		for _, handler := range b.handlers[row.Topic] {
			if err := handler(row); err != nil {
				// Undeliver so a retry can reach the handler again.
				delete(b.seen, key)
				return err
			}
		}
	}
	return nil
}

// Subscribe registers a handler for one topic.
func (b *MemoryBus) Subscribe(topic string, handler RowHandler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, errBusClosed
	}

	b.handlers[topic] = append(b.handlers[topic], handler)
	return &memorySubscription{bus: b, topic: topic}, nil
}

// Close stops accepting publishes and subscriptions.
func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.handlers = make(map[string][]RowHandler)
	return nil
}

type memorySubscription struct {
	bus   *MemoryBus
	topic string
}

func (s *memorySubscription) Unsubscribe() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	delete(s.bus.handlers, s.topic)
	return nil
}
