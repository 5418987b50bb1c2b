package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidPath is returned when a path is empty or malformed
	ErrInvalidPath = errors.New("invalid gateway path")

	// ErrClosed is returned when the gateway has been closed
	ErrClosed = errors.New("gateway closed")
)

// Gateway is a remote key-tree store. Records live at slash-separated paths
// ("books/{id}", "orders/{uid}/{orderId}"); reading or subscribing to a
// prefix yields the assembled subtree as a JSON object keyed by child name.
type Gateway interface {
	// Read unmarshals the current value at path into dest. The second
	// return value reports whether anything exists at path.
	Read(ctx context.Context, path string, dest interface{}) (bool, error)

	// Write replaces the record at path with the JSON encoding of value.
	Write(ctx context.Context, path string, value interface{}) error

	// Update merges fields into the record at path without touching
	// sibling fields. The record is created if it does not exist.
	Update(ctx context.Context, path string, fields map[string]interface{}) error

	// Remove deletes the record or subtree at path.
	Remove(ctx context.Context, path string) error

	// Push allocates a new time-ordered child key under path.
	Push(ctx context.Context, path string) (string, error)

	// Subscribe returns a live subscription to the value at path. The
	// current value is delivered immediately, then again after every
	// change. Slow consumers observe the latest value; intermediate
	// values may be dropped.
	Subscribe(ctx context.Context, path string) (*Subscription, error)

	// Close releases the gateway's resources and cancels all
	// subscriptions.
	Close() error
}

// Subscription is a cancellable live view over a gateway path.
type Subscription struct {
	events chan json.RawMessage
	cancel func()
}

func newSubscription(cancel func()) *Subscription {
	return &Subscription{
		events: make(chan json.RawMessage, 1),
		cancel: cancel,
	}
}

// Events returns the channel on which values are delivered. The channel is
// closed after Cancel.
func (s *Subscription) Events() <-chan json.RawMessage {
	return s.events
}

// Cancel stops delivery and closes the events channel.
func (s *Subscription) Cancel() {
	s.cancel()
}

// deliver replaces any undelivered value with the latest one. Only the
// subscription's single producer goroutine may call it.
func (s *Subscription) deliver(value json.RawMessage) {
	select {
	case s.events <- value:
	default:
		select {
		case <-s.events:
		default:
		}
		s.events <- value
	}
}

// ValidatePath rejects empty paths and path segments.
func ValidatePath(path string) error {
	if path == "" || strings.HasPrefix(path, "/") || strings.HasSuffix(path, "/") {
		return fmt.Errorf("%w: %q", ErrInvalidPath, path)
	}
	for _, seg := range strings.Split(path, "/") {
		if seg == "" {
			return fmt.Errorf("%w: %q", ErrInvalidPath, path)
		}
	}
	return nil
}

// PushKey generates a time-ordered unique child key. Keys allocated later
// sort lexicographically after keys allocated earlier.
func PushKey() string {
	return fmt.Sprintf("%011x-%s", time.Now().UnixMilli(), strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}

// isUnder reports whether path is strictly below prefix in the tree.
func isUnder(path, prefix string) bool {
	return strings.HasPrefix(path, prefix+"/")
}

// affects reports whether a change at changed is visible to a watcher of
// path: equal paths, the change below the watched subtree, or the change
// replacing an ancestor record.
func affects(changed, path string) bool {
	return changed == path || isUnder(changed, path) || isUnder(path, changed)
}

// assemble builds the JSON value visible at path from a flat record map.
// An exact record wins; otherwise descendants are folded into nested
// objects. The boolean reports whether anything exists at path.
func assemble(records map[string]json.RawMessage, path string) (json.RawMessage, bool) {
	if raw, ok := records[path]; ok {
		return raw, true
	}

	children := map[string]json.RawMessage{}
	names := map[string]bool{}
	for p := range records {
		if !isUnder(p, path) {
			continue
		}
		rest := strings.TrimPrefix(p, path+"/")
		name := rest
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			name = rest[:i]
		}
		names[name] = true
	}
	if len(names) == 0 {
		return nil, false
	}

	ordered := make([]string, 0, len(names))
	for name := range names {
		ordered = append(ordered, name)
	}
	sort.Strings(ordered)

	for _, name := range ordered {
		child, ok := assemble(records, path+"/"+name)
		if ok {
			children[name] = child
		}
	}

	raw, err := json.Marshal(children)
	if err != nil {
		return nil, false
	}
	return raw, true
}

// mergeFields applies an Update on top of an existing raw record. A missing
// or non-object record is replaced by the fields alone.
func mergeFields(existing json.RawMessage, fields map[string]interface{}) (json.RawMessage, error) {
	merged := map[string]interface{}{}
	if len(existing) > 0 {
		// Ignore unmarshal errors: a scalar record is replaced wholesale.
		_ = json.Unmarshal(existing, &merged)
	}
	for k, v := range fields {
		merged[k] = v
	}
	return json.Marshal(merged)
}
