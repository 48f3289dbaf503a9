package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"equity-backend/internal/shared/telemetry"
)

const (
	sessionIDKey     = "sessionId"
	sessionCookie    = "session_id"
	sessionCookieTTL = 60 * 60 * 24
)

// Session reads the session cookie into the request context. It never
// creates a session; EnsureSession does that on the endpoints that may
// start one.
func Session() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := c.Cookie(sessionCookie); err == nil && id != "" {
			c.Set(sessionIDKey, id)
		}
		c.Next()
	}
}

// SessionIDFromContext fetches the session ID stored by Session middleware.
func SessionIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(sessionIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// EnsureSession returns the request's session ID, minting one and setting
// the cookie when the client has none yet.
func EnsureSession(c *gin.Context) string {
	if id := SessionIDFromContext(c); id != "" {
		return id
	}
	id := uuid.NewString()
	c.Set(sessionIDKey, id)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, id, sessionCookieTTL, "/", "", false, true)
	telemetry.Info("session.started", map[string]any{"session_id": id})
	return id
}

// ClearSession removes the session cookie.
func ClearSession(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
}
