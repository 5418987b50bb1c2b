package cart

import (
	"sync"

	"github.com/Therealpare/Bookstore/internal/catalog"
)

// Line pairs a book snapshot with a quantity. Quantities are always >= 1;
// a line whose quantity would reach zero is removed instead.
type Line struct {
	Book     catalog.Book `json:"book"`
	Quantity int          `json:"quantity"`
}

// Store holds the selected lines for one authenticated session. It is a
// single mutable instance shared by reference across screens, never
// persisted, and all operations are synchronous local mutations. Lines keep
// insertion order; removing and re-adding a book appends it at the end.
type Store struct {
	mu     sync.Mutex
	lines  []Line
	subs   map[int]func([]Line)
	nextID int
}

// NewStore creates an empty cart.
func NewStore() *Store {
	return &Store{subs: map[int]func([]Line){}}
}

// Add inserts a new line with quantity 1, or increments the existing line
// for the same book. No stock check happens here; that is checkout's job.
func (s *Store) Add(book catalog.Book) {
	s.mu.Lock()
	found := false
	for i := range s.lines {
		if s.lines[i].Book.ID == book.ID {
			s.lines[i].Quantity++
			found = true
			break
		}
	}
	if !found {
		s.lines = append(s.lines, Line{Book: book, Quantity: 1})
	}
	s.broadcastLocked()
}

// Increase increments the line for bookID. Absent lines are a no-op.
func (s *Store) Increase(bookID string) {
	s.mu.Lock()
	for i := range s.lines {
		if s.lines[i].Book.ID == bookID {
			s.lines[i].Quantity++
			break
		}
	}
	s.broadcastLocked()
}

// Decrease decrements the line for bookID, removing it when the quantity
// would drop to zero. Absent lines are a no-op.
func (s *Store) Decrease(bookID string) {
	s.mu.Lock()
	for i := range s.lines {
		if s.lines[i].Book.ID == bookID {
			if s.lines[i].Quantity <= 1 {
				s.lines = append(s.lines[:i], s.lines[i+1:]...)
			} else {
				s.lines[i].Quantity--
			}
			break
		}
	}
	s.broadcastLocked()
}

// Remove deletes the line for bookID unconditionally.
func (s *Store) Remove(bookID string) {
	s.mu.Lock()
	for i := range s.lines {
		if s.lines[i].Book.ID == bookID {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			break
		}
	}
	s.broadcastLocked()
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	s.lines = nil
	s.broadcastLocked()
}

// Lines returns a copy of the current lines in insertion order.
func (s *Store) Lines() []Line {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Count is the sum of quantities across all lines (badge indicator).
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, l := range s.lines {
		total += l.Quantity
	}
	return total
}

// TotalPrice is the sum of quantity times unit price over all lines.
func (s *Store) TotalPrice() catalog.Price {
	s.mu.Lock()
	defer s.mu.Unlock()
	var total catalog.Price
	for _, l := range s.lines {
		total += l.Book.Price.Mul(l.Quantity)
	}
	return total
}

// Subscribe registers fn to receive the new snapshot after every mutation.
// The returned cancel function removes the subscription.
func (s *Store) Subscribe(fn func([]Line)) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.subs, id)
		s.mu.Unlock()
	}
}

func (s *Store) snapshotLocked() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

// broadcastLocked snapshots under the lock, releases it, then invokes the
// subscribers so they may call back into the store.
func (s *Store) broadcastLocked() {
	snapshot := s.snapshotLocked()
	subs := make([]func([]Line), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snapshot)
	}
}
