package httpapi

import (
	"sync"

	"github.com/Therealpare/Bookstore/internal/cart"
	"github.com/Therealpare/Bookstore/internal/identity"
)

// cartRegistry keeps one cart store per authenticated session. Carts are
// never persisted; signing out drops the user's cart.
type cartRegistry struct {
	mu    sync.Mutex
	carts map[string]*cart.Store
}

func newCartRegistry(ids identity.Provider) *cartRegistry {
	r := &cartRegistry{carts: map[string]*cart.Store{}}
	ids.OnStateChanged(func(ev identity.StateEvent) {
		if !ev.SignedIn {
			r.drop(ev.User.ID)
		}
	})
	return r
}

// For returns the user's cart, creating it on first use.
func (r *cartRegistry) For(userID string) *cart.Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.carts[userID]
	if !ok {
		s = cart.NewStore()
		r.carts[userID] = s
	}
	return s
}

func (r *cartRegistry) drop(userID string) {
	r.mu.Lock()
	delete(r.carts, userID)
	r.mu.Unlock()
}
