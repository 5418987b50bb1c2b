package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Therealpare/Bookstore/internal/account"
	"github.com/Therealpare/Bookstore/internal/checkout"
	"github.com/Therealpare/Bookstore/internal/identity"
	"github.com/Therealpare/Bookstore/internal/wishlist"
)

func respond(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{"data": data})
}

func respondError(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, gin.H{"error": message})
}

// respondDomainError maps the error taxonomy to HTTP statuses. Unknown
// errors become a generic 502: remote failures are surfaced to the user as
// one message and never retried here.
func respondDomainError(c *gin.Context, err error) {
	var notFound *checkout.BookNotFoundError
	var noStock *checkout.InsufficientStockError
	var failed *checkout.FailedError

	switch {
	case errors.Is(err, checkout.ErrNotAuthenticated),
		errors.Is(err, wishlist.ErrNotAuthenticated),
		errors.Is(err, identity.ErrInvalidToken):
		respondError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, account.ErrEmptyUsername),
		errors.Is(err, identity.ErrWeakPassword),
		errors.Is(err, identity.ErrInvalidResetToken):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, identity.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, err.Error())
	case errors.Is(err, identity.ErrEmailInUse):
		respondError(c, http.StatusConflict, err.Error())
	case errors.Is(err, identity.ErrAccountNotFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.As(err, &notFound):
		respondError(c, http.StatusNotFound, err.Error())
	case errors.As(err, &noStock):
		respondError(c, http.StatusConflict, err.Error())
	case errors.As(err, &failed):
		respondError(c, http.StatusBadGateway, err.Error())
	default:
		respondError(c, http.StatusBadGateway, "operation failed")
	}
}
