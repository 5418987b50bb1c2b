package catalog

import (
	"context"
	"encoding/json"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Therealpare/Bookstore/internal/gateway"
)

// sectionSize is how many books each home section shows.
const sectionSize = 15

// View is a live local copy of the remote book collection. One subscription
// feeds it; every delivered value replaces the copy wholesale. Search and
// category filtering run against the local copy, never the remote source.
type View struct {
	gw  gateway.Gateway
	log *zap.Logger
	sub *gateway.Subscription

	mu    sync.RWMutex
	books []Book
	byID  map[string]Book

	done chan struct{}
}

// NewView subscribes to the book collection and blocks until the initial
// value has been applied. ctx bounds only that initial load; the
// subscription itself lives until Close.
func NewView(ctx context.Context, gw gateway.Gateway, log *zap.Logger) (*View, error) {
	sub, err := gw.Subscribe(context.Background(), BooksPath)
	if err != nil {
		return nil, err
	}

	v := &View{
		gw:   gw,
		log:  log,
		sub:  sub,
		byID: map[string]Book{},
		done: make(chan struct{}),
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

// apply replaces the local copy with a freshly decoded collection.
func (v *View) apply(raw json.RawMessage) {
	records := map[string]Book{}
	if err := json.Unmarshal(raw, &records); err != nil {
		v.log.Error("Failed to decode book collection", zap.Error(err))
		return
	}

	books := make([]Book, 0, len(records))
	byID := make(map[string]Book, len(records))
	for id, b := range records {
		b.ID = id
		books = append(books, b)
		byID[id] = b
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })

	v.mu.Lock()
	v.books = books
	v.byID = byID
	v.mu.Unlock()
}

// Close cancels the subscription and waits for the feed goroutine.
func (v *View) Close() {
	v.sub.Cancel()
	<-v.done
}

// Books returns a copy of the current catalog snapshot.
func (v *View) Books() []Book {
	v.mu.RLock()
	defer v.mu.RUnlock()
	out := make([]Book, len(v.books))
	copy(out, v.books)
	return out
}

// Get returns the book snapshot for id as of the last catalog refresh.
func (v *View) Get(id string) (Book, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	b, ok := v.byID[id]
	return b, ok
}

// Search filters case-insensitively by substring match across title,
// author, publisher and ISBN. The result is never nil.
func (v *View) Search(query string) []Book {
	q := strings.ToLower(query)

	v.mu.RLock()
	defer v.mu.RUnlock()
	results := make([]Book, 0)
	for _, b := range v.books {
		if strings.Contains(strings.ToLower(b.Title), q) ||
			strings.Contains(strings.ToLower(b.Author), q) ||
			strings.Contains(strings.ToLower(b.Publisher), q) ||
			strings.Contains(strings.ToLower(b.ISBN), q) {
			results = append(results, b)
		}
	}
	return results
}

// FilterByCategory selects books whose category matches exactly, ignoring
// case. The result is never nil.
func (v *View) FilterByCategory(category string) []Book {
	v.mu.RLock()
	defer v.mu.RUnlock()
	results := make([]Book, 0)
	for _, b := range v.books {
		if strings.EqualFold(b.Category, category) {
			results = append(results, b)
		}
	}
	return results
}

// Sections shuffles the catalog and partitions it into the three home
// screen sections: top, latest and upcoming.
func (v *View) Sections() (top, latest, upcoming []Book) {
	books := v.Books()
	rand.Shuffle(len(books), func(i, j int) {
		books[i], books[j] = books[j], books[i]
	})

	take := func(from int) []Book {
		if from >= len(books) {
			return []Book{}
		}
		to := from + sectionSize
		if to > len(books) {
			to = len(books)
		}
		return books[from:to]
	}
	return take(0), take(sectionSize), take(2 * sectionSize)
}
