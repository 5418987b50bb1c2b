package checkout

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned when checkout is attempted without
	// a signed-in user.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrEmptyCart is returned when checkout is attempted with no lines.
	// No remote call is made in that case.
	ErrEmptyCart = errors.New("cart is empty")
)

// BookNotFoundError reports a cart line whose book record no longer exists.
type BookNotFoundError struct {
	BookID string
	Title  string
}

func (e *BookNotFoundError) Error() string {
	return fmt.Sprintf("book not found: %s (%s)", e.Title, e.BookID)
}

// InsufficientStockError reports a line that asked for more copies than the
// book has left.
type InsufficientStockError struct {
	BookID    string
	Title     string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %q: %d requested, %d left", e.Title, e.Requested, e.Available)
}

// FailedError wraps an unexpected remote failure during checkout. When the
// failure happened in the commit stage, some stock decrements may already
// have been applied; no compensating rollback is attempted.
type FailedError struct {
	Stage string // "validate", "commit" or "record"
	Err   error
}

func (e *FailedError) Error() string {
	return fmt.Sprintf("checkout failed during %s: %v", e.Stage, e.Err)
}

func (e *FailedError) Unwrap() error {
	return e.Err
}
