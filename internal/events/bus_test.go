package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSubscriber struct {
	events []Event
	err    error
}

func (c *captureSubscriber) Notify(_ context.Context, ev Event) error {
	c.events = append(c.events, ev)
	return c.err
}

func TestEmitDeliversToAllSubscribers(t *testing.T) {
	now := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	first := &captureSubscriber{}
	second := &captureSubscriber{}
	bus := &Bus{Subscribers: []Subscriber{first, second, nil}, Now: func() time.Time { return now }}

	id := uuid.New()
	require.NoError(t, bus.Emit(context.Background(), TopicInvoiceCreated, id, map[string]any{"n": 1}))

	require.Len(t, first.events, 1)
	require.Len(t, second.events, 1)
	assert.Equal(t, TopicInvoiceCreated, first.events[0].Topic)
	assert.Equal(t, id, first.events[0].AggregateID)
	assert.Equal(t, now, first.events[0].OccurredAt)
}

func TestEmitValidatesTopicAndAggregate(t *testing.T) {
	sub := &captureSubscriber{}
	bus := &Bus{Subscribers: []Subscriber{sub}}

	assert.Error(t, bus.Emit(context.Background(), "  ", uuid.New(), nil))
	assert.Error(t, bus.Emit(context.Background(), TopicEntryCreated, uuid.Nil, nil))
	assert.Empty(t, sub.events)
}

func TestEmitJoinsSubscriberErrors(t *testing.T) {
	failed := errors.New("sink unavailable")
	failing := &captureSubscriber{err: failed}
	healthy := &captureSubscriber{}
	bus := &Bus{Subscribers: []Subscriber{failing, healthy}}

	err := bus.Emit(context.Background(), TopicPaymentRecorded, uuid.New(), nil)
	assert.ErrorIs(t, err, failed)

	// A failing subscriber never blocks the others.
	assert.Len(t, healthy.events, 1)
}

func TestNilBusEmitIsNoop(t *testing.T) {
	var bus *Bus
	assert.NoError(t, bus.Emit(context.Background(), TopicEntryDeleted, uuid.New(), nil))
}

func TestLogSubscriberWritesStructuredEvent(t *testing.T) {
	var buf bytes.Buffer
	sub := LogSubscriber{Logger: zerolog.New(&buf)}
	id := uuid.New()

	err := sub.Notify(context.Background(), Event{
		Topic:       TopicInvoiceRecomputed,
		AggregateID: id,
		Payload:     map[string]any{"event_id": "abc"},
		OccurredAt:  time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, TopicInvoiceRecomputed, line["topic"])
	assert.Equal(t, id.String(), line["aggregate_id"])
	assert.Equal(t, "abc", line["event_id"])
	assert.Equal(t, "domain event", line["message"])
}
