package ratelimit

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestLimiterSlidingWindow(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()
	limiter := Limiter{Client: client, Prefix: "test:"}

	ctx := context.Background()
	window := 2 * time.Second
	max := 3

	for i := 0; i < max; i++ {
		allowed, remaining, _, err := limiter.Allow(ctx, "mentor-1", window, max)
		if err != nil {
			t.Fatalf("allow: %v", err)
		}
		if !allowed {
			t.Fatalf("expected request %d within the window to be allowed", i)
		}
		if remaining != max-(i+1) {
			t.Fatalf("unexpected remaining after request %d: %d", i, remaining)
		}
	}

	allowed, remaining, _, err := limiter.Allow(ctx, "mentor-1", window, max)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if allowed {
		t.Fatal("expected request over the limit to be rejected")
	}
	if remaining != 0 {
		t.Fatalf("expected remaining 0, got %d", remaining)
	}

	// Other keys are counted independently.
	allowed, _, _, err = limiter.Allow(ctx, "mentor-2", window, max)
	if err != nil {
		t.Fatalf("allow other key: %v", err)
	}
	if !allowed {
		t.Fatal("expected unrelated key to be allowed")
	}

	mr.FastForward(window)

	allowed, _, _, err = limiter.Allow(ctx, "mentor-1", window, max)
	if err != nil {
		t.Fatalf("allow after window: %v", err)
	}
	if !allowed {
		t.Fatal("expected request after the window to be allowed")
	}
}

func TestLimiterZeroConfigAllows(t *testing.T) {
	limiter := Limiter{}
	allowed, _, _, err := limiter.Allow(context.Background(), "any", time.Second, 0)
	if err != nil {
		t.Fatalf("allow: %v", err)
	}
	if !allowed {
		t.Fatal("expected unconfigured limiter to allow")
	}
}
