// Package middleware contains shared Gin middleware used by the HTTP layer.
//
// This file resolves the local user identifier once per request and stores it
// in the Gin context under UserIDKey, where the logger, the rate limiter, the
// idempotency validator and the handlers pick it up.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// UserIDKey is the Gin context key holding the current user identifier.
const UserIDKey = "userID"

// IdentitySource yields the current user identifier, creating it on first use.
type IdentitySource interface {
	Get(ctx context.Context) (string, error)
}

// Identity resolves the user identifier for every request whose path does not
// start with one of skip. A storage failure aborts with 503 since no store
// operation can run without an identifier.
func Identity(src IdentitySource, skip ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := c.Request.URL.Path
		for _, s := range skip {
			if strings.HasPrefix(p, s) {
				c.Next()
				return
			}
		}
		uid, err := src.Get(c.Request.Context())
		if err != nil {
			LoggerFrom(c).Error().Err(err).Msg("identity: cannot resolve user identifier")
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"request_id": c.Writer.Header().Get(requestIDHeader),
				"code":       CodeStorageUnavailable,
				"message":    "local storage unavailable",
			})
			return
		}
		c.Set(UserIDKey, uid)
		c.Next()
	}
}

// UserID returns the identifier stored by Identity, or "" when absent.
func UserID(c *gin.Context) string {
	v, _ := c.Get(UserIDKey)
	s, _ := v.(string)
	return s
}
