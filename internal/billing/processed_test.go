package billing

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisProcessedTracker(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	tracker := NewRedisProcessedTracker(client)
	ctx := context.Background()

	seen, err := tracker.AlreadyProcessed(ctx, "stripe", "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	ok, err := tracker.MarkProcessed(ctx, "stripe", "evt_1")
	require.NoError(t, err)
	assert.True(t, ok)

	seen, err = tracker.AlreadyProcessed(ctx, "stripe", "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	// Second mark reports the duplicate.
	ok, err = tracker.MarkProcessed(ctx, "stripe", "evt_1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Provider is part of the key.
	seen, err = tracker.AlreadyProcessed(ctx, "square", "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)
}
