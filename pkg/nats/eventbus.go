// Package nats implements the messaging contracts on NATS JetStream,
// giving the relay durable, deduplicated delivery.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/jvhellemondt/api-time-registration/pkg/messaging"
	"github.com/jvhellemondt/api-time-registration/pkg/outbox"
)

// Config holds configuration for the NATS event bus.
type Config struct {
	// URL is the NATS server URL.
	URL string

	// StreamName is the JetStream stream holding published rows.
	StreamName string

	// SubjectPrefix prefixes every subject ("<prefix>.<topic>.<eventType>").
	SubjectPrefix string

	// MaxAge is how long rows stay in the stream.
	MaxAge time.Duration

	// DedupWindow is JetStream's message-id deduplication window. Rows
	// redelivered by the relay inside this window are dropped server-side.
	DedupWindow time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		URL:           nats.DefaultURL,
		StreamName:    "TIMEENTRIES",
		SubjectPrefix: "timeentries",
		MaxAge:        7 * 24 * time.Hour,
		DedupWindow:   2 * time.Hour,
	}
}

// EventBus is a JetStream-backed messaging.EventBus.
type EventBus struct {
	nc     *nats.Conn
	js     nats.JetStreamContext
	config Config

	mu   sync.Mutex
	subs map[string]*nats.Subscription
}

// NewEventBus connects to NATS and ensures the stream exists.
func NewEventBus(config Config) (*EventBus, error) {
	nc, err := nats.Connect(config.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	bus := &EventBus{
		nc:     nc,
		js:     js,
		config: config,
		subs:   make(map[string]*nats.Subscription),
	}

	if err := bus.ensureStream(); err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to ensure stream: %w", err)
	}

	return bus, nil
}

func (b *EventBus) ensureStream() error {
	streamConfig := &nats.StreamConfig{
		Name:       b.config.StreamName,
		Subjects:   []string{b.config.SubjectPrefix + ".>"},
		Retention:  nats.LimitsPolicy,
		MaxAge:     b.config.MaxAge,
		Duplicates: b.config.DedupWindow,
		Storage:    nats.FileStorage,
		Replicas:   1,
	}

	if _, err := b.js.StreamInfo(b.config.StreamName); err != nil {
		if _, err := b.js.AddStream(streamConfig); err != nil {
			return fmt.Errorf("failed to create stream: %w", err)
		}
		return nil
	}

	if _, err := b.js.UpdateStream(streamConfig); err != nil {
		return fmt.Errorf("failed to update stream: %w", err)
	}
	return nil
}

// Publish sends each row with its key as the JetStream message ID, so the
// same (stream, version) published twice lands once.
func (b *EventBus) Publish(ctx context.Context, rows []outbox.Row) error {
	for _, row := range rows {
		data, err := json.Marshal(row)
		if err != nil {
			return fmt.Errorf("failed to serialize row %s: %w", row.Key(), err)
		}

		subject := fmt.Sprintf("%s.%s.%s", b.config.SubjectPrefix, row.Topic, row.EventType)
		if _, err := b.js.Publish(subject, data, nats.MsgId(row.Key()), nats.Context(ctx)); err != nil {
			return fmt.Errorf("failed to publish row %s: %w", row.Key(), err)
		}
	}
	return nil
}

// Subscribe creates a durable consumer for one topic.
func (b *EventBus) Subscribe(topic string, handler messaging.RowHandler) (messaging.Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subject := fmt.Sprintf("%s.%s.>", b.config.SubjectPrefix, topic)
	consumerName := fmt.Sprintf("consumer_%s", topic)

	sub, err := b.js.Subscribe(
		subject,
		func(msg *nats.Msg) {
			var row outbox.Row
			if err := json.Unmarshal(msg.Data, &row); err != nil {
				msg.Nak()
				return
			}
			if err := handler(row); err != nil {
				msg.Nak()
				return
			}
			msg.Ack()
		},
		nats.Durable(consumerName),
		nats.ManualAck(),
		nats.AckExplicit(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}

	b.subs[consumerName] = sub
	return &subscription{bus: b, sub: sub, consumerName: consumerName}, nil
}

// Close unsubscribes everything and closes the connection.
func (b *EventBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, sub := range b.subs {
		sub.Unsubscribe()
	}
	b.nc.Close()
	return nil
}

type subscription struct {
	bus          *EventBus
	sub          *nats.Subscription
	consumerName string
}

func (s *subscription) Unsubscribe() error {
	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()

	delete(s.bus.subs, s.consumerName)
	return s.sub.Unsubscribe()
}
