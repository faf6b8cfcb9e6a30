package common

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"time"

	redis "github.com/redis/go-redis/v9"
)

// Idem enforces Idempotency-Key semantics on write endpoints. A key claims a
// Redis slot for TTL; a second request carrying the same key within the
// window is rejected instead of re-applied. Payment recording is the primary
// consumer: double-submitting a payment must not double the ledger.
type Idem struct {
	R   *redis.Client
	TTL time.Duration
}

func idemSlot(key string) string {
	sum := sha256.Sum256([]byte(key))
	return "idem:" + hex.EncodeToString(sum[:])
}

// Middleware claims the request's idempotency key before invoking the next
// handler. Requests without a key pass through untouched.
func (i Idem) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get("Idempotency-Key")
		if key == "" || i.R == nil {
			next.ServeHTTP(w, r)
			return
		}
		slot := idemSlot(key)
		claimed, err := i.R.SetNX(r.Context(), slot, "locked", i.TTL).Result()
		if err != nil {
			JSONError(w, http.StatusInternalServerError, "INTERNAL", "idempotency store error", map[string]any{"error": err.Error()})
			return
		}
		if !claimed {
			JSONError(w, http.StatusConflict, "IDEMPOTENT_REPLAY", "duplicate request", nil)
			return
		}
		defer func() {
			// Refresh the TTL even if the handler panics, so the slot
			// still expires.
			_ = i.R.Expire(context.Background(), slot, i.TTL).Err()
		}()
		next.ServeHTTP(w, r)
	})
}
