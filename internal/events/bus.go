package events

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Event is a domain event describing a billing-relevant mutation.
type Event struct {
	Topic       string
	AggregateID uuid.UUID
	Payload     map[string]any
	OccurredAt  time.Time
}

// Subscriber reacts to emitted events (logging, metrics, cache
// invalidation). Subscribers run synchronously on the emitting goroutine.
// Invoice recomputation is not a subscriber — it runs inside the mutation
// transaction via direct hooks so totals and the mutation commit together.
type Subscriber interface {
	Notify(ctx context.Context, event Event) error
}

// Bus fans domain events out to subscribers.
type Bus struct {
	Subscribers []Subscriber
	Now         func() time.Time
}

// Emit dispatches the event to all configured subscribers, joining their
// errors. Subscriber failures never roll back the originating mutation.
func (b *Bus) Emit(ctx context.Context, topic string, aggregateID uuid.UUID, payload map[string]any) error {
	if b == nil {
		return nil
	}
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return errors.New("events: topic is required")
	}
	if aggregateID == uuid.Nil {
		return errors.New("events: aggregate id is required")
	}
	now := time.Now()
	if b.Now != nil {
		now = b.Now()
	}
	ev := Event{Topic: topic, AggregateID: aggregateID, Payload: payload, OccurredAt: now}
	var joined error
	for _, sub := range b.Subscribers {
		if sub == nil {
			continue
		}
		if err := sub.Notify(ctx, ev); err != nil {
			joined = errors.Join(joined, fmt.Errorf("events: subscriber: %w", err))
		}
	}
	return joined
}
