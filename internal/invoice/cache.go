package invoice

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache wraps Redis helpers for invoice list summaries. It sits in front of
// the cached-totals columns purely to cheapen admin list views; the columns
// themselves remain the source of truth.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewCache constructs a cache helper.
func NewCache(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func eventKey(eventID uuid.UUID) string {
	return fmt.Sprintf("invoices:event:%s", eventID)
}

// GetEventSummaries unmarshals the cached list payload for an event. It
// reports whether the key existed.
func (c *Cache) GetEventSummaries(ctx context.Context, eventID uuid.UUID, dst any) (bool, error) {
	if c == nil || c.client == nil {
		return false, nil
	}
	data, err := c.client.Get(ctx, eventKey(eventID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return false, err
	}
	return true, nil
}

// SetEventSummaries stores the list payload with the configured TTL.
func (c *Cache) SetEventSummaries(ctx context.Context, eventID uuid.UUID, v any) error {
	if c == nil || c.client == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, eventKey(eventID), data, c.ttl).Err()
}

// InvalidateEvent drops the cached list for an event; called after every
// recompute and payment.
func (c *Cache) InvalidateEvent(ctx context.Context, eventID uuid.UUID) error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Del(ctx, eventKey(eventID)).Err()
}
