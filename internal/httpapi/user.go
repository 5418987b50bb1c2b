package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Therealpare/Bookstore/internal/notification"
	"github.com/Therealpare/Bookstore/internal/order"
)

func (s *Server) handleWishlist(c *gin.Context) {
	entries, err := s.wishlists.List(c.Request.Context(), currentUser(c).ID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, gin.H{"entries": entries, "count": len(entries)})
}

func (s *Server) handleToggleWishlist(c *gin.Context) {
	book, ok := s.catalog.Get(c.Param("bookID"))
	if !ok {
		respondError(c, http.StatusNotFound, "book not found")
		return
	}

	added, err := s.wishlists.Toggle(c.Request.Context(), currentUser(c).ID, book)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, gin.H{"wishlisted": added})
}

func (s *Server) handleRemoveWishlist(c *gin.Context) {
	if err := s.wishlists.Remove(c.Request.Context(), currentUser(c).ID, c.Param("bookID")); err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, gin.H{"removed": true})
}

func (s *Server) handleGetProfile(c *gin.Context) {
	user := currentUser(c)
	profile, found, err := s.accounts.Get(c.Request.Context(), user.ID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	if !found {
		respondError(c, http.StatusNotFound, "profile not found")
		return
	}
	respond(c, gin.H{
		"username": profile.Username,
		"email":    user.Email,
		"phone":    profile.Phone,
		"address":  profile.Address,
	})
}

type saveProfileRequest struct {
	Username string `json:"username"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

func (s *Server) handleSaveProfile(c *gin.Context) {
	var req saveProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.accounts.Save(c.Request.Context(), currentUser(c).ID, req.Username, req.Phone, req.Address)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respond(c, gin.H{"saved": true})
}

func (s *Server) handleOrders(c *gin.Context) {
	orders, err := order.List(c.Request.Context(), s.gw, currentUser(c).ID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	payload := make([]gin.H, len(orders))
	for i, o := range orders {
		payload[i] = gin.H{
			"id":         o.ID,
			"createdAt":  o.CreatedAt,
			"status":     o.Status,
			"totalPrice": o.TotalPrice.String(),
			"items":      o.Items,
		}
	}
	respond(c, payload)
}

func (s *Server) handleNotifications(c *gin.Context) {
	feed, err := notification.List(c.Request.Context(), s.gw, currentUser(c).ID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	payload := make([]gin.H, len(feed))
	for i, n := range feed {
		payload[i] = gin.H{
			"id":        n.ID,
			"title":     n.Title,
			"message":   n.Message,
			"createdAt": n.CreatedAt,
		}
	}
	respond(c, payload)
}
