package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Therealpare/Bookstore/internal/cart"
)

func (s *Server) handleGetCart(c *gin.Context) {
	store := s.carts.For(currentUser(c).ID)
	respond(c, cartPayload(store))
}

type addToCartRequest struct {
	BookID string `json:"bookId"`
}

// handleAddToCart adds the catalog's current snapshot of the book. No
// stock check happens here; checkout enforces availability.
func (s *Server) handleAddToCart(c *gin.Context) {
	var req addToCartRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.BookID == "" {
		respondError(c, http.StatusBadRequest, "bookId is required")
		return
	}

	book, ok := s.catalog.Get(req.BookID)
	if !ok {
		respondError(c, http.StatusNotFound, "book not found")
		return
	}

	store := s.carts.For(currentUser(c).ID)
	store.Add(book)
	respond(c, cartPayload(store))
}

func (s *Server) handleIncrease(c *gin.Context) {
	store := s.carts.For(currentUser(c).ID)
	store.Increase(c.Param("bookID"))
	respond(c, cartPayload(store))
}

func (s *Server) handleDecrease(c *gin.Context) {
	store := s.carts.For(currentUser(c).ID)
	store.Decrease(c.Param("bookID"))
	respond(c, cartPayload(store))
}

func (s *Server) handleRemoveLine(c *gin.Context) {
	store := s.carts.For(currentUser(c).ID)
	store.Remove(c.Param("bookID"))
	respond(c, cartPayload(store))
}

func (s *Server) handleClearCart(c *gin.Context) {
	store := s.carts.For(currentUser(c).ID)
	store.Clear()
	respond(c, cartPayload(store))
}

func (s *Server) handleCheckout(c *gin.Context) {
	user := currentUser(c)
	store := s.carts.For(user.ID)

	placed, err := s.orchestrator.Checkout(c.Request.Context(), user.ID, store)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	respond(c, gin.H{
		"orderId":    placed.ID,
		"status":     placed.Status,
		"totalPrice": placed.TotalPrice.String(),
		"items":      placed.Items,
	})
}

func cartPayload(store *cart.Store) gin.H {
	lines := store.Lines()
	payload := make([]gin.H, len(lines))
	for i, l := range lines {
		payload[i] = gin.H{
			"book":     bookPayload(l.Book),
			"quantity": l.Quantity,
		}
	}
	return gin.H{
		"lines":      payload,
		"count":      store.Count(),
		"totalPrice": store.TotalPrice().String(),
	}
}
