package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Therealpare/Bookstore/internal/identity"
)

const (
	ctxUserKey  = "user"
	ctxTokenKey = "token"
)

// Auth extracts the bearer token, resolves it to a user and injects both
// into the request context. Requests without a valid session are rejected.
func Auth(ids identity.Provider) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			respondError(c, http.StatusUnauthorized, "missing Authorization header")
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			respondError(c, http.StatusUnauthorized, "Authorization header must be: Bearer <token>")
			return
		}

		user, err := ids.CurrentUser(c.Request.Context(), parts[1])
		if err != nil {
			respondError(c, http.StatusUnauthorized, "invalid or expired session")
			return
		}

		c.Set(ctxUserKey, *user)
		c.Set(ctxTokenKey, parts[1])
		c.Next()
	}
}

// currentUser returns the authenticated user injected by Auth.
func currentUser(c *gin.Context) identity.User {
	v, ok := c.Get(ctxUserKey)
	if !ok {
		return identity.User{}
	}
	u, _ := v.(identity.User)
	return u
}

func currentToken(c *gin.Context) string {
	v, ok := c.Get(ctxTokenKey)
	if !ok {
		return ""
	}
	t, _ := v.(string)
	return t
}

// RequestLogger logs each request with method, path, status and latency.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("Request handled",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		)
	}
}

// CORS allows the mobile and web storefront origins.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
