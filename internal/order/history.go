package order

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/Therealpare/Bookstore/internal/gateway"
)

// History is a live newest-first view over one user's orders.
type History struct {
	log *zap.Logger
	sub *gateway.Subscription

	mu     sync.RWMutex
	orders []Order

	done chan struct{}
}

// NewHistory subscribes to the user's order collection and blocks until the
// initial value has been applied. ctx bounds only that initial load; the
// subscription itself lives until Close.
func NewHistory(ctx context.Context, gw gateway.Gateway, userID string, log *zap.Logger) (*History, error) {
	sub, err := gw.Subscribe(context.Background(), UserPath(userID))
	if err != nil {
		return nil, err
	}

	h := &History{
		log:  log,
		sub:  sub,
		done: make(chan struct{}),
	}

	select {
	case raw := <-sub.Events():
		h.apply(raw)
	case <-ctx.Done():
		sub.Cancel()
		return nil, ctx.Err()
	}

	go h.run()
	return h, nil
}

// List is a one-shot read of a user's orders, newest first.
func List(ctx context.Context, gw gateway.Gateway, userID string) ([]Order, error) {
	records := map[string]Order{}
	if _, err := gw.Read(ctx, UserPath(userID), &records); err != nil {
		return nil, err
	}
	return sorted(records), nil
}

func (h *History) run() {
	defer close(h.done)
	for raw := range h.sub.Events() {
		h.apply(raw)
	}
}

func (h *History) apply(raw json.RawMessage) {
	records := map[string]Order{}
	if err := json.Unmarshal(raw, &records); err != nil {
		h.log.Error("Failed to decode order history", zap.Error(err))
		return
	}
	orders := sorted(records)

	h.mu.Lock()
	h.orders = orders
	h.mu.Unlock()
}

// Orders returns a copy of the current snapshot, newest first.
func (h *History) Orders() []Order {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]Order, len(h.orders))
	copy(out, h.orders)
	return out
}

// Close cancels the subscription and waits for the feed goroutine.
func (h *History) Close() {
	h.sub.Cancel()
	<-h.done
}

func sorted(records map[string]Order) []Order {
	orders := make([]Order, 0, len(records))
	for id, o := range records {
		o.ID = id
		orders = append(orders, o)
	}
	sort.Slice(orders, func(i, j int) bool {
		if orders[i].CreatedAt != orders[j].CreatedAt {
			return orders[i].CreatedAt > orders[j].CreatedAt
		}
		return orders[i].ID > orders[j].ID
	})
	return orders
}
