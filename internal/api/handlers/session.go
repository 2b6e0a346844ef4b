package handlers

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"github.com/quickbite/arcade/internal/session"
)

var playerIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{2,64}$`)

// IssueSession exchanges a player ID for a signed session token. Identity
// verification happens upstream (the storefront login); this service only
// mints the token every other endpoint requires.
func IssueSession(sessions *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			PlayerID string `json:"player_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "player_id required"})
			return
		}
		if !playerIDPattern.MatchString(req.PlayerID) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid player_id"})
			return
		}

		token, err := sessions.Issue(req.PlayerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"token":     token,
			"player_id": req.PlayerID,
		})
	}
}
