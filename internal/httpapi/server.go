// Package httpapi exposes the storefront over HTTP. It is a thin layer:
// every handler delegates to a service or view and translates the error
// taxonomy to a status code, keeping business rules out of the transport.
package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Therealpare/Bookstore/internal/account"
	"github.com/Therealpare/Bookstore/internal/catalog"
	"github.com/Therealpare/Bookstore/internal/checkout"
	"github.com/Therealpare/Bookstore/internal/gateway"
	"github.com/Therealpare/Bookstore/internal/identity"
	"github.com/Therealpare/Bookstore/internal/wishlist"
)

// Server bundles the storefront services behind a gin router.
type Server struct {
	log          *zap.Logger
	gw           gateway.Gateway
	catalog      *catalog.View
	ids          identity.Provider
	accounts     *account.Service
	wishlists    *wishlist.Service
	orchestrator *checkout.Orchestrator
	carts        *cartRegistry
	gatherer     prometheus.Gatherer
}

// NewServer wires the services together. gatherer may be nil to disable
// the /metrics endpoint.
func NewServer(
	log *zap.Logger,
	gw gateway.Gateway,
	cat *catalog.View,
	ids identity.Provider,
	accounts *account.Service,
	wishlists *wishlist.Service,
	orchestrator *checkout.Orchestrator,
	gatherer prometheus.Gatherer,
) *Server {
	return &Server{
		log:          log,
		gw:           gw,
		catalog:      cat,
		ids:          ids,
		accounts:     accounts,
		wishlists:    wishlists,
		orchestrator: orchestrator,
		carts:        newCartRegistry(ids),
		gatherer:     gatherer,
	}
}

// Router builds the gin engine with all storefront routes.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestLogger(s.log), CORS())

	router.GET("/healthz", s.handleHealth)
	if s.gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	api := router.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/signup", s.handleSignUp)
	auth.POST("/login", s.handleSignIn)
	auth.POST("/forgot-password", s.handleForgotPassword)
	auth.POST("/reset-password", s.handleResetPassword)
	auth.POST("/logout", Auth(s.ids), s.handleSignOut)

	api.GET("/books", s.handleListBooks)
	api.GET("/books/home", s.handleHomeSections)
	api.GET("/books/:id", s.handleGetBook)
	api.GET("/categories", s.handleCategories)

	user := api.Group("", Auth(s.ids))
	user.GET("/cart", s.handleGetCart)
	user.POST("/cart/items", s.handleAddToCart)
	user.POST("/cart/items/:bookID/increase", s.handleIncrease)
	user.POST("/cart/items/:bookID/decrease", s.handleDecrease)
	user.DELETE("/cart/items/:bookID", s.handleRemoveLine)
	user.DELETE("/cart", s.handleClearCart)
	user.POST("/checkout", s.handleCheckout)

	user.GET("/wishlist", s.handleWishlist)
	user.POST("/wishlist/:bookID/toggle", s.handleToggleWishlist)
	user.DELETE("/wishlist/:bookID", s.handleRemoveWishlist)

	user.GET("/profile", s.handleGetProfile)
	user.PUT("/profile", s.handleSaveProfile)

	user.GET("/orders", s.handleOrders)
	user.GET("/notifications", s.handleNotifications)

	return router
}

func (s *Server) handleHealth(c *gin.Context) {
	c.String(200, "healthy")
}
