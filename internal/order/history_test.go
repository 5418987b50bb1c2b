package order

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Therealpare/Bookstore/internal/catalog"
	"github.com/Therealpare/Bookstore/internal/gateway"
)

func seedOrder(t *testing.T, gw *gateway.Memory, userID, orderID string, createdAt int64, total catalog.Price) {
	t.Helper()
	o := Order{
		CreatedAt:  createdAt,
		Status:     StatusPending,
		TotalPrice: total,
		Items: []LineSnapshot{
			{BookID: "b1", Title: "Dune", Price: total, Quantity: 1},
		},
	}
	require.NoError(t, gw.Write(context.Background(), Path(userID, orderID), o))
}

func TestListNewestFirst(t *testing.T) {
	gw := gateway.NewMemory()
	defer gw.Close()
	ctx := context.Background()

	seedOrder(t, gw, "u1", "o1", 100, catalog.Price(1000))
	seedOrder(t, gw, "u1", "o2", 300, catalog.Price(2000))
	seedOrder(t, gw, "u1", "o3", 200, catalog.Price(3000))

	orders, err := List(ctx, gw, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, "o2", orders[0].ID)
	assert.Equal(t, "o3", orders[1].ID)
	assert.Equal(t, "o1", orders[2].ID)
}

func TestListEmptyHistory(t *testing.T) {
	gw := gateway.NewMemory()
	defer gw.Close()

	orders, err := List(context.Background(), gw, "u1")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestListIsolatedPerUser(t *testing.T) {
	gw := gateway.NewMemory()
	defer gw.Close()

	seedOrder(t, gw, "u1", "o1", 100, catalog.Price(1000))

	orders, err := List(context.Background(), gw, "u2")
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestHistoryFollowsNewOrders(t *testing.T) {
	gw := gateway.NewMemory()
	defer gw.Close()
	ctx := context.Background()

	seedOrder(t, gw, "u1", "o1", 100, catalog.Price(1000))

	h, err := NewHistory(ctx, gw, "u1", zap.NewNop())
	require.NoError(t, err)
	defer h.Close()

	orders := h.Orders()
	require.Len(t, orders, 1)
	assert.Equal(t, "o1", orders[0].ID)
	assert.Equal(t, StatusPending, orders[0].Status)

	seedOrder(t, gw, "u1", "o2", 200, catalog.Price(2000))

	assert.Eventually(t, func() bool {
		current := h.Orders()
		return len(current) == 2 && current[0].ID == "o2"
	}, time.Second, 5*time.Millisecond)
}

func TestHistoryOutlivesStartupContext(t *testing.T) {
	gw := gateway.NewMemory()
	defer gw.Close()

	seedOrder(t, gw, "u1", "o1", 100, catalog.Price(1000))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	h, err := NewHistory(ctx, gw, "u1", zap.NewNop())
	require.NoError(t, err)
	defer h.Close()
	cancel()

	seedOrder(t, gw, "u1", "o2", 200, catalog.Price(2000))

	assert.Eventually(t, func() bool {
		return len(h.Orders()) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestHistoryTieBreaksOnID(t *testing.T) {
	gw := gateway.NewMemory()
	defer gw.Close()

	seedOrder(t, gw, "u1", "o-aa", 100, catalog.Price(1000))
	seedOrder(t, gw, "u1", "o-bb", 100, catalog.Price(2000))

	orders, err := List(context.Background(), gw, "u1")
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, "o-bb", orders[0].ID)
	assert.Equal(t, "o-aa", orders[1].ID)
}
