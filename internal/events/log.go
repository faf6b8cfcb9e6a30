package events

import (
	"context"

	"github.com/rs/zerolog"
)

// LogSubscriber writes every domain event to the structured log.
type LogSubscriber struct {
	Logger zerolog.Logger
}

// Notify implements Subscriber.
func (l LogSubscriber) Notify(_ context.Context, ev Event) error {
	l.Logger.Info().
		Str("topic", ev.Topic).
		Str("aggregate_id", ev.AggregateID.String()).
		Time("occurred_at", ev.OccurredAt).
		Fields(ev.Payload).
		Msg("domain event")
	return nil
}
