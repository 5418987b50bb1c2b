package gateway

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// setupRedis connects to the server named by REDIS_TEST_ADDR, skipping the
// test when none is configured.
func setupRedis(t *testing.T) *Redis {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}

	client := redis.NewClient(&redis.Options{Addr: addr, DB: 9})
	require.NoError(t, client.FlushDB(context.Background()).Err())

	gw, err := NewRedis(client, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { gw.Close() })
	return gw
}

func TestRedisReadWriteUpdateRemove(t *testing.T) {
	gw := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, gw.Write(ctx, "books/a", record{Name: "first", Count: 5}))

	var got record
	found, err := gw.Read(ctx, "books/a", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "first", got.Name)

	require.NoError(t, gw.Update(ctx, "books/a", map[string]interface{}{"count": 2}))
	_, err = gw.Read(ctx, "books/a", &got)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Count)

	require.NoError(t, gw.Remove(ctx, "books/a"))
	found, err = gw.Read(ctx, "books/a", nil)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisPrefixRead(t *testing.T) {
	gw := setupRedis(t)
	ctx := context.Background()

	require.NoError(t, gw.Write(ctx, "orders/u1/o1", record{Name: "one"}))
	require.NoError(t, gw.Write(ctx, "orders/u1/o2", record{Name: "two"}))

	var got map[string]record
	found, err := gw.Read(ctx, "orders/u1", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, got, 2)
}

func TestRedisSubscribeDeliversChanges(t *testing.T) {
	gw := setupRedis(t)
	ctx := context.Background()

	sub, err := gw.Subscribe(ctx, "books")
	require.NoError(t, err)
	defer sub.Cancel()

	waitForValue(t, sub)

	require.NoError(t, gw.Write(ctx, "books/a", record{Name: "first"}))

	assert.Eventually(t, func() bool {
		select {
		case raw, ok := <-sub.Events():
			return ok && len(raw) > len("null")
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}
