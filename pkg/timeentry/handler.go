package timeentry

import (
	"context"
	"errors"
	"fmt"

	"github.com/jvhellemondt/api-time-registration/pkg/eventstore"
	"github.com/jvhellemondt/api-time-registration/pkg/observability"
	"github.com/jvhellemondt/api-time-registration/pkg/outbox"
)

// RegisterHandler drives one register command through
// load → decide → append → enqueue as one logical unit. Each step's
// failure short-circuits with its most specific error kind; retry policy
// belongs to the caller.
//
// If the append commits but an enqueue then fails, the events are durable
// without publication intents; a recovery sweep re-driving the handler is
// safe because replays re-derive the same (stream, version) pairs and land
// as outbox duplicates.
type RegisterHandler struct {
	topic   string
	store   eventstore.Store
	outbox  outbox.Outbox
	metrics *observability.Metrics
}

// HandlerOption configures a RegisterHandler.
type HandlerOption func(*RegisterHandler)

// WithHandlerMetrics attaches metric instruments to the handler.
func WithHandlerMetrics(m *observability.Metrics) HandlerOption {
	return func(h *RegisterHandler) {
		h.metrics = m
	}
}

// NewRegisterHandler creates a handler publishing to the given topic.
func NewRegisterHandler(topic string, store eventstore.Store, ob outbox.Outbox, opts ...HandlerOption) *RegisterHandler {
	h := &RegisterHandler{topic: topic, store: store, outbox: ob}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Handle executes the command against the given stream. On success the
// caller reads the new version via a subsequent Load if it needs one.
func (h *RegisterHandler) Handle(ctx context.Context, streamID string, cmd RegisterCommand) error {
	if h.metrics != nil {
		h.metrics.CommandsTotal.Add(ctx, 1)
	}

	stream, err := h.store.Load(ctx, streamID)
	if err != nil {
		return fmt.Errorf("load stream %s: %w", streamID, err)
	}

	state := State(Unregistered{})
	for _, rec := range stream.Records {
		ev, err := UnmarshalEvent(rec.EventType, rec.EventVersion, rec.Payload)
		if err != nil {
			return fmt.Errorf("decode event %s: %w", EventRef(streamID, rec.StreamVersion), err)
		}
		state = Evolve(state, ev)
	}

	events, err := Decide(state, cmd)
	if err != nil {
		if h.metrics != nil {
			h.metrics.CommandsRejected.Add(ctx, 1)
		}
		return &RejectedError{Reason: err}
	}

	records := make([]eventstore.Record, len(events))
	payloads := make([][]byte, len(events))
	for i, ev := range events {
		payload, err := MarshalEvent(ev)
		if err != nil {
			return fmt.Errorf("encode event: %w", err)
		}
		payloads[i] = payload
		records[i] = eventstore.Record{
			StreamID:      streamID,
			StreamVersion: stream.Version + int64(i) + 1,
			EventType:     ev.EventType(),
			EventVersion:  ev.EventVersion(),
			OccurredAt:    ev.OccurredAt(),
			Payload:       payload,
		}
	}

	if err := h.store.Append(ctx, streamID, stream.Version, records); err != nil {
		if h.metrics != nil && errors.Is(err, eventstore.ErrVersionMismatch) {
			h.metrics.VersionConflicts.Add(ctx, 1)
		}
		return fmt.Errorf("append to stream %s: %w", streamID, err)
	}
	if h.metrics != nil {
		h.metrics.EventsAppended.Add(ctx, int64(len(records)))
	}

	for i, ev := range events {
		row := outbox.Row{
			Topic:         h.topic,
			EventType:     ev.EventType(),
			EventVersion:  ev.EventVersion(),
			StreamID:      streamID,
			StreamVersion: stream.Version + int64(i) + 1,
			OccurredAt:    ev.OccurredAt(),
			Payload:       payloads[i],
		}
		if err := h.outbox.Enqueue(ctx, row); err != nil {
			if h.metrics != nil && errors.Is(err, outbox.ErrDuplicate) {
				h.metrics.OutboxDuplicates.Add(ctx, 1)
			}
			return fmt.Errorf("enqueue outbox row %s: %w", row.Key(), err)
		}
	}

	return nil
}
