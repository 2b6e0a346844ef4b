package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/quickbite/arcade/internal/session"
)

// PlayerIDKey is where the authenticated player ID lands in the gin
// context.
const PlayerIDKey = "player_id"

// RequireSession validates the bearer token and stores the player ID on
// the context.
func RequireSession(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authorization required"})
			c.Abort()
			return
		}

		playerID, err := sessions.Verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			c.Abort()
			return
		}

		c.Set(PlayerIDKey, playerID)
		c.Next()
	}
}
