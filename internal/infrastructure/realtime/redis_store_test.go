package realtime

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// redisStore connects to the instance named by REDIS_ADDR and skips the
// test when it is not set.
func redisStore(t *testing.T) (*RedisStore, *redis.Client) {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, client.Ping(context.Background()).Err())

	store := NewRedisStore(client)
	t.Cleanup(func() {
		store.Close()
		client.Close()
	})

	// wait for the events subscription before writing
	require.Eventually(t, func() bool {
		counts, err := client.PubSubNumSub(context.Background(), redisEventsChannel).Result()
		return err == nil && counts[redisEventsChannel] > 0
	}, 2*time.Second, 10*time.Millisecond)
	return store, client
}

func TestRedisStoreAssemblesSubtree(t *testing.T) {
	ctx := context.Background()
	store, _ := redisStore(t)
	conversationID := uuid.NewString()

	require.NoError(t, store.Set(ctx, MessagePath(conversationID, "m1"), map[string]interface{}{"content": "hi"}))
	require.NoError(t, store.Update(ctx, SummaryPath(conversationID), map[string]interface{}{
		"lastMessage": "hi",
		"updatedAt":   int64(10),
	}))

	snapshot, err := store.Get(ctx, ConversationPath(conversationID))
	require.NoError(t, err)
	require.True(t, snapshot.Exists)

	tree := snapshot.Value.(map[string]interface{})
	summary := tree["summary"].(map[string]interface{})
	assert.Equal(t, "hi", summary["lastMessage"])
	assert.Equal(t, float64(10), summary["updatedAt"])
	assert.Contains(t, tree["messages"].(map[string]interface{}), "m1")

	require.NoError(t, store.Set(ctx, ConversationPath(conversationID), nil))
	snapshot, err = store.Get(ctx, ConversationPath(conversationID))
	require.NoError(t, err)
	assert.False(t, snapshot.Exists)
}

func TestRedisStoreWakesSubscribers(t *testing.T) {
	ctx := context.Background()
	store, _ := redisStore(t)
	conversationID := uuid.NewString()

	onChange, ch := collect(t)
	unsubscribe, err := store.Subscribe(ctx, ConversationPath(conversationID), onChange)
	require.NoError(t, err)
	defer unsubscribe()

	initial := next(t, ch)
	assert.False(t, initial.Exists)

	require.NoError(t, store.Set(ctx, MessagePath(conversationID, "m1"), map[string]interface{}{"content": "a"}))
	snapshot := next(t, ch)
	assert.True(t, snapshot.Exists)
	assert.Equal(t, ConversationPath(conversationID), snapshot.Path)
}
