// Package messaging defines the event bus contract the relay publishes
// through. The bus is the external delivery side of the outbox pattern;
// consumers must tolerate re-delivery.
package messaging

import (
	"context"

	"github.com/jvhellemondt/api-time-registration/pkg/outbox"
)

// EventBus publishes outbox rows to downstream consumers.
type EventBus interface {
	// Publish delivers rows in order. Implementations deduplicate on the
	// row key ("stream:version") so redelivered rows are dropped bus-side.
	Publish(ctx context.Context, rows []outbox.Row) error

	// Subscribe registers a handler for rows published to a topic.
	// Returning an error from the handler nacks the row for redelivery.
	Subscribe(topic string, handler RowHandler) (Subscription, error)

	// Close releases connections and subscriptions.
	Close() error
}

// RowHandler processes one delivered row.
type RowHandler func(row outbox.Row) error

// Subscription is an active consumer registration.
type Subscription interface {
	// Unsubscribe stops delivery and cleans up the consumer.
	Unsubscribe() error
}
