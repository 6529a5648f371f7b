package billing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// ProcessedTracker remembers webhook event ids that were already handled.
type ProcessedTracker interface {
	AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error)
	MarkProcessed(ctx context.Context, provider, eventID string) (bool, error)
}

// RedisProcessedTracker tracks processed events in Redis with a TTL. Stripe
// retries webhooks for up to three days, so a week of memory is enough.
type RedisProcessedTracker struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisProcessedTracker creates a Redis-backed processed-event tracker.
func NewRedisProcessedTracker(client *redis.Client) *RedisProcessedTracker {
	return &RedisProcessedTracker{client: client, ttl: 7 * 24 * time.Hour}
}

func processedKey(provider, eventID string) string {
	return fmt.Sprintf("webhook_processed:%s:%s", provider, eventID)
}

// AlreadyProcessed checks whether the event id has been seen.
func (t *RedisProcessedTracker) AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	n, err := t.client.Exists(ctx, processedKey(provider, eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("billing: check processed: %w", err)
	}
	return n > 0, nil
}

// MarkProcessed records the event id, returning false if it was already set.
func (t *RedisProcessedTracker) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	ok, err := t.client.SetNX(ctx, processedKey(provider, eventID), "1", t.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("billing: mark processed: %w", err)
	}
	return ok, nil
}

// MemoryProcessedTracker is a process-local fallback for environments without
// Redis. Deduplication does not survive restarts.
type MemoryProcessedTracker struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

// NewMemoryProcessedTracker creates an in-memory processed-event tracker.
func NewMemoryProcessedTracker() *MemoryProcessedTracker {
	return &MemoryProcessedTracker{seen: make(map[string]struct{})}
}

func (t *MemoryProcessedTracker) AlreadyProcessed(_ context.Context, provider, eventID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.seen[processedKey(provider, eventID)]
	return ok, nil
}

func (t *MemoryProcessedTracker) MarkProcessed(_ context.Context, provider, eventID string) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	key := processedKey(provider, eventID)
	if _, ok := t.seen[key]; ok {
		return false, nil
	}
	t.seen[key] = struct{}{}
	return true, nil
}
