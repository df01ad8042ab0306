package transport

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ellavondegurechaff/auction-house/auctionhouse/logger"
)

const (
	headerUserID   = "X-User-ID"
	headerUserName = "X-User-Name"
	identityKey    = "identity"
)

// Identity is the caller as asserted by the fronting gateway.
type Identity struct {
	ID   string
	Name string
}

func identityFromRequest(c *gin.Context) (Identity, bool) {
	id := strings.TrimSpace(c.GetHeader(headerUserID))
	name := strings.TrimSpace(c.GetHeader(headerUserName))
	if id == "" {
		id = strings.TrimSpace(c.Query("user_id"))
		name = strings.TrimSpace(c.Query("user_name"))
	}
	if id == "" {
		return Identity{}, false
	}
	if name == "" {
		name = id
	}
	return Identity{ID: id, Name: name}, true
}

// requireIdentity rejects requests that carry no user id.
func requireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := identityFromRequest(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing " + headerUserID + " header"})
			return
		}
		c.Set(identityKey, identity)
		c.Next()
	}
}

func currentIdentity(c *gin.Context) Identity {
	v, _ := c.Get(identityKey)
	identity, _ := v.(Identity)
	return identity
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		attrs := []any{slog.String("ip", c.ClientIP())}
		if id := c.GetHeader(headerUserID); id != "" {
			attrs = append(attrs, slog.String("user_id", id))
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, slog.String("error", c.Errors.String()))
		}
		logger.LogRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start), attrs...)
	}
}
