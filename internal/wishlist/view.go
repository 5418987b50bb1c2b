package wishlist

import (
	"context"
	"encoding/json"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/Therealpare/Bookstore/internal/catalog"
	"github.com/Therealpare/Bookstore/internal/gateway"
)

// View is a live subscription over one user's wishlist, joined against the
// catalog view for the current book records.
type View struct {
	catalog *catalog.View
	log     *zap.Logger
	sub     *gateway.Subscription

	mu      sync.RWMutex
	entries []Entry

	done chan struct{}
}

// NewView subscribes to the user's wishlist and blocks until the initial
// value has been applied. ctx bounds only that initial load; the
// subscription itself lives until Close.
func NewView(ctx context.Context, gw gateway.Gateway, cat *catalog.View, userID string, log *zap.Logger) (*View, error) {
	sub, err := gw.Subscribe(context.Background(), UserPath(userID))
	if err != nil {
		return nil, err
	}

	v := &View{
		catalog: cat,
		log:     log,
		sub:     sub,
		done:    make(chan struct{}),
	}

	select {
	case raw := <-sub.Events():
		v.apply(raw)
	case <-ctx.Done():
		sub.Cancel()
		return nil, ctx.Err()
	}

	go v.run()
	return v, nil
}

func (v *View) run() {
	defer close(v.done)
	for raw := range v.sub.Events() {
		v.apply(raw)
	}
}

func (v *View) apply(raw json.RawMessage) {
	records := map[string]Entry{}
	if err := json.Unmarshal(raw, &records); err != nil {
		v.log.Error("Failed to decode wishlist", zap.Error(err))
		return
	}
	entries := sorted(records)

	v.mu.Lock()
	v.entries = entries
	v.mu.Unlock()
}

// Entries returns the saved entries, oldest first.
func (v *View) Entries() []Entry {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]Entry, len(v.entries))
	copy(out, v.entries)
	return out
}

// Books resolves the saved ids against the catalog's current snapshot.
// Entries whose book no longer appears in the catalog are skipped.
func (v *View) Books() []catalog.Book {
	entries := v.Entries()
	books := make([]catalog.Book, 0, len(entries))
	for _, e := range entries {
		if b, ok := v.catalog.Get(e.ID); ok {
			books = append(books, b)
		}
	}
	return books
}

// Count is the number of saved entries.
func (v *View) Count() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.entries)
}

// Close cancels the subscription and waits for the feed goroutine.
func (v *View) Close() {
	v.sub.Cancel()
	<-v.done
}

func sorted(records map[string]Entry) []Entry {
	entries := make([]Entry, 0, len(records))
	for id, e := range records {
		e.ID = id
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].CreatedAt != entries[j].CreatedAt {
			return entries[i].CreatedAt < entries[j].CreatedAt
		}
		return entries[i].ID < entries[j].ID
	})
	return entries
}
