package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/quickbite/arcade/internal/match"
	"github.com/quickbite/arcade/internal/models"
	"github.com/quickbite/arcade/internal/rating"
)

// Leaderboard returns the top rankings for a game type and mode.
func Leaderboard(ranks *rating.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		gameType := c.Query("game_type")
		if gameType == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "game_type required"})
			return
		}
		mode := c.Query("mode")
		if mode == "" {
			mode = string(match.ModeRanked)
		}
		limit := intQuery(c, "limit", 20)
		if limit < 1 || limit > 100 {
			limit = 20
		}

		rows, err := ranks.Top(c.Request.Context(), gameType, mode, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read rankings"})
			return
		}
		if rows == nil {
			rows = []models.PlayerRanking{}
		}
		c.JSON(http.StatusOK, gin.H{
			"game_type": gameType,
			"mode":      mode,
			"rankings":  rows,
		})
	}
}

// PlayerRankings returns one player's rows across game types and modes.
func PlayerRankings(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "rankings unavailable"})
			return
		}
		var rows []models.PlayerRanking
		err := db.SelectContext(c.Request.Context(), &rows,
			`SELECT player_id, game_type, mode, rating, matches_played, matches_won,
			        matches_lost, win_streak, best_win_streak, updated_at
			 FROM player_rankings WHERE player_id=$1
			 ORDER BY game_type, mode`, c.Param("id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read rankings"})
			return
		}
		if rows == nil {
			rows = []models.PlayerRanking{}
		}
		c.JSON(http.StatusOK, gin.H{"player_id": c.Param("id"), "rankings": rows})
	}
}

// MatchHistory lists a player's past matches from the persisted rows.
func MatchHistory(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if db == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "history unavailable"})
			return
		}
		limit := intQuery(c, "limit", 20)
		if limit < 1 || limit > 100 {
			limit = 20
		}

		var rows []models.Match
		err := db.SelectContext(c.Request.Context(), &rows,
			`SELECT m.id, m.game_type, m.mode, m.buy_in, m.max_seats, m.status,
			        m.winner_id, m.created_at, m.started_at, m.completed_at
			 FROM matches m
			 JOIN match_seats s ON s.match_id = m.id
			 WHERE s.player_id=$1
			 ORDER BY m.created_at DESC
			 LIMIT $2`, c.Param("id"), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read history"})
			return
		}
		if rows == nil {
			rows = []models.Match{}
		}
		c.JSON(http.StatusOK, gin.H{"player_id": c.Param("id"), "matches": rows})
	}
}
