package gateway

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestMemoryReadWrite(t *testing.T) {
	gw := NewMemory()
	defer gw.Close()
	ctx := context.Background()

	found, err := gw.Read(ctx, "books/a", nil)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, gw.Write(ctx, "books/a", record{Name: "first", Count: 1}))

	var got record
	found, err = gw.Read(ctx, "books/a", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "first", got.Name)
}

func TestMemoryPrefixRead(t *testing.T) {
	gw := NewMemory()
	defer gw.Close()
	ctx := context.Background()

	require.NoError(t, gw.Write(ctx, "books/a", record{Name: "first"}))
	require.NoError(t, gw.Write(ctx, "books/b", record{Name: "second"}))

	var got map[string]record
	found, err := gw.Read(ctx, "books", &got)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, got, 2)
	assert.Equal(t, "second", got["b"].Name)
}

func TestMemoryNestedPrefixRead(t *testing.T) {
	gw := NewMemory()
	defer gw.Close()
	ctx := context.Background()

	require.NoError(t, gw.Write(ctx, "orders/u1/o1", record{Name: "one"}))
	require.NoError(t, gw.Write(ctx, "orders/u1/o2", record{Name: "two"}))
	require.NoError(t, gw.Write(ctx, "orders/u2/o3", record{Name: "three"}))

	var perUser map[string]record
	found, err := gw.Read(ctx, "orders/u1", &perUser)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, perUser, 2)

	var all map[string]map[string]record
	found, err = gw.Read(ctx, "orders", &all)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, all, 2)
	assert.Equal(t, "three", all["u2"]["o3"].Name)
}

func TestMemoryUpdateMergesFields(t *testing.T) {
	gw := NewMemory()
	defer gw.Close()
	ctx := context.Background()

	require.NoError(t, gw.Write(ctx, "books/a", record{Name: "first", Count: 5}))
	require.NoError(t, gw.Update(ctx, "books/a", map[string]interface{}{"count": 3}))

	var got record
	_, err := gw.Read(ctx, "books/a", &got)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Name)
	assert.Equal(t, 3, got.Count)
}

func TestMemoryRemoveSubtree(t *testing.T) {
	gw := NewMemory()
	defer gw.Close()
	ctx := context.Background()

	require.NoError(t, gw.Write(ctx, "wishlists/u1/a", record{Name: "a"}))
	require.NoError(t, gw.Write(ctx, "wishlists/u1/b", record{Name: "b"}))
	require.NoError(t, gw.Remove(ctx, "wishlists/u1"))

	found, err := gw.Read(ctx, "wishlists/u1", nil)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestPushKeysAreOrdered(t *testing.T) {
	gw := NewMemory()
	defer gw.Close()
	ctx := context.Background()

	first, err := gw.Push(ctx, "orders/u1")
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)
	second, err := gw.Push(ctx, "orders/u1")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.Less(t, first, second)
}

func TestMemorySubscribeDeliversInitialAndUpdates(t *testing.T) {
	gw := NewMemory()
	defer gw.Close()
	ctx := context.Background()

	require.NoError(t, gw.Write(ctx, "books/a", record{Name: "first"}))

	sub, err := gw.Subscribe(ctx, "books")
	require.NoError(t, err)
	defer sub.Cancel()

	initial := waitForValue(t, sub)
	var got map[string]record
	require.NoError(t, json.Unmarshal(initial, &got))
	assert.Len(t, got, 1)

	require.NoError(t, gw.Write(ctx, "books/b", record{Name: "second"}))

	assert.Eventually(t, func() bool {
		select {
		case raw, ok := <-sub.Events():
			if !ok {
				return false
			}
			var next map[string]record
			if err := json.Unmarshal(raw, &next); err != nil {
				return false
			}
			return len(next) == 2
		default:
			return false
		}
	}, time.Second, 5*time.Millisecond)
}

func TestMemorySubscribeCancelClosesChannel(t *testing.T) {
	gw := NewMemory()
	defer gw.Close()

	sub, err := gw.Subscribe(context.Background(), "books")
	require.NoError(t, err)

	waitForValue(t, sub)
	sub.Cancel()

	assert.Eventually(t, func() bool {
		_, ok := <-sub.Events()
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, ValidatePath("books/a"))
	assert.Error(t, ValidatePath(""))
	assert.Error(t, ValidatePath("/books"))
	assert.Error(t, ValidatePath("books/"))
	assert.Error(t, ValidatePath("books//a"))
}

func waitForValue(t *testing.T, sub *Subscription) json.RawMessage {
	t.Helper()
	select {
	case raw := <-sub.Events():
		return raw
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for subscription value")
		return nil
	}
}
