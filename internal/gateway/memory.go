package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
)

// Memory is an in-process Gateway used by tests and local development. It
// keeps the full key tree in a flat record map guarded by one mutex.
type Memory struct {
	mu       sync.RWMutex
	records  map[string]json.RawMessage
	watchers map[int]*memWatcher
	nextID   int
	closed   bool
}

type memWatcher struct {
	path     string
	notify   chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func (w *memWatcher) stop() {
	w.stopOnce.Do(func() { close(w.done) })
}

// NewMemory creates an empty in-memory gateway.
func NewMemory() *Memory {
	return &Memory{
		records:  make(map[string]json.RawMessage),
		watchers: make(map[int]*memWatcher),
	}
}

func (g *Memory) Read(ctx context.Context, path string, dest interface{}) (bool, error) {
	if err := ValidatePath(path); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	g.mu.RLock()
	raw, ok := assemble(g.records, path)
	g.mu.RUnlock()

	if !ok {
		return false, nil
	}
	if dest != nil {
		if err := json.Unmarshal(raw, dest); err != nil {
			return true, fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return true, nil
}

func (g *Memory) Write(ctx context.Context, path string, value interface{}) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	// A record replaces whatever subtree lived at its path.
	for p := range g.records {
		if isUnder(p, path) {
			delete(g.records, p)
		}
	}
	g.records[path] = raw
	g.notifyLocked(path)
	g.mu.Unlock()
	return nil
}

func (g *Memory) Update(ctx context.Context, path string, fields map[string]interface{}) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	merged, err := mergeFields(g.records[path], fields)
	if err != nil {
		g.mu.Unlock()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	g.records[path] = merged
	g.notifyLocked(path)
	g.mu.Unlock()
	return nil
}

func (g *Memory) Remove(ctx context.Context, path string) error {
	if err := ValidatePath(path); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return ErrClosed
	}
	delete(g.records, path)
	for p := range g.records {
		if isUnder(p, path) {
			delete(g.records, p)
		}
	}
	g.notifyLocked(path)
	g.mu.Unlock()
	return nil
}

func (g *Memory) Push(ctx context.Context, path string) (string, error) {
	if err := ValidatePath(path); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return PushKey(), nil
}

func (g *Memory) Subscribe(ctx context.Context, path string) (*Subscription, error) {
	if err := ValidatePath(path); err != nil {
		return nil, err
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return nil, ErrClosed
	}
	id := g.nextID
	g.nextID++
	w := &memWatcher{
		path:   path,
		notify: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	g.watchers[id] = w
	g.mu.Unlock()

	sub := newSubscription(func() {
		g.mu.Lock()
		delete(g.watchers, id)
		g.mu.Unlock()
		w.stop()
	})

	go func() {
		defer close(sub.events)
		sub.deliver(g.valueAt(path))
		for {
			select {
			case <-w.notify:
				sub.deliver(g.valueAt(path))
			case <-w.done:
				return
			case <-ctx.Done():
				sub.Cancel()
				return
			}
		}
	}()

	return sub, nil
}

// Close cancels every subscription and rejects further mutations.
func (g *Memory) Close() error {
	g.mu.Lock()
	g.closed = true
	watchers := g.watchers
	g.watchers = make(map[int]*memWatcher)
	g.mu.Unlock()

	for _, w := range watchers {
		w.stop()
	}
	return nil
}

// Dump returns the stored record paths, useful in tests.
func (g *Memory) Dump() []string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	paths := make([]string, 0, len(g.records))
	for p := range g.records {
		paths = append(paths, p)
	}
	return paths
}

func (g *Memory) valueAt(path string) json.RawMessage {
	g.mu.RLock()
	raw, ok := assemble(g.records, path)
	g.mu.RUnlock()
	if !ok {
		return json.RawMessage("null")
	}
	return raw
}

func (g *Memory) notifyLocked(changed string) {
	for _, w := range g.watchers {
		if !affects(changed, w.path) {
			continue
		}
		select {
		case w.notify <- struct{}{}:
		default:
		}
	}
}

var _ Gateway = (*Memory)(nil)

// Seed writes a set of records in one call, keyed by full path. It is a
// convenience for tests and local fixtures.
func (g *Memory) Seed(ctx context.Context, records map[string]interface{}) error {
	ordered := make([]string, 0, len(records))
	for p := range records {
		ordered = append(ordered, p)
	}
	// Parents before children so wholesale replacement cannot clobber seeds.
	sortByDepth(ordered)
	for _, p := range ordered {
		if err := g.Write(ctx, p, records[p]); err != nil {
			return err
		}
	}
	return nil
}

func sortByDepth(paths []string) {
	for i := 1; i < len(paths); i++ {
		for j := i; j > 0 && depth(paths[j]) < depth(paths[j-1]); j-- {
			paths[j], paths[j-1] = paths[j-1], paths[j]
		}
	}
}

func depth(p string) int {
	return strings.Count(p, "/")
}
