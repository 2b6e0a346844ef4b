package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/quickbite/arcade/internal/coordinator"
	"github.com/quickbite/arcade/internal/match"
	"github.com/quickbite/arcade/internal/middleware"
	"github.com/quickbite/arcade/internal/wallet"
)

type matchRequest struct {
	GameType string `json:"game_type" binding:"required"`
	Mode     string `json:"mode"`
	BuyIn    int64  `json:"buy_in" binding:"required"`
	Seats    int    `json:"seats"`
}

func (r *matchRequest) normalize() (match.GameType, match.Mode) {
	mode := match.Mode(r.Mode)
	if mode != match.ModeRanked {
		mode = match.ModeCasual
	}
	return match.GameType(r.GameType), mode
}

func matchError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, coordinator.ErrInvalidBuyIn), errors.Is(err, match.ErrUnknownAction):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, wallet.ErrInsufficientFunds):
		c.JSON(http.StatusPaymentRequired, gin.H{"error": err.Error()})
	case errors.Is(err, coordinator.ErrUnknownMatch):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, coordinator.ErrMatchFull),
		errors.Is(err, coordinator.ErrMatchNotOpen),
		errors.Is(err, coordinator.ErrAlreadySeated):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// CreateMatch opens a lobby staked by the caller.
func CreateMatch(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID := c.GetString(middleware.PlayerIDKey)
		var req matchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "game_type and buy_in required"})
			return
		}
		gt, mode := req.normalize()

		m, err := coord.CreateMatch(c.Request.Context(), playerID, gt, mode, req.BuyIn, req.Seats)
		if err != nil {
			matchError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"match": m})
	}
}

// JoinMatch seats the caller in an open lobby.
func JoinMatch(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID := c.GetString(middleware.PlayerIDKey)
		m, err := coord.JoinMatch(c.Request.Context(), playerID, c.Param("id"))
		if err != nil {
			matchError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"match": m})
	}
}

// QuickMatch joins the oldest open lobby for the tier or opens a new one.
func QuickMatch(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID := c.GetString(middleware.PlayerIDKey)
		var req matchRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "game_type and buy_in required"})
			return
		}
		gt, mode := req.normalize()

		m, err := coord.QuickMatch(c.Request.Context(), playerID, gt, mode, req.BuyIn)
		if err != nil {
			matchError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"match": m})
	}
}

// GetMatch returns the lifecycle view plus, for live matches, the
// caller's snapshot of game state.
func GetMatch(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID := c.GetString(middleware.PlayerIDKey)
		matchID := c.Param("id")

		m, err := coord.MatchByID(matchID)
		if err != nil {
			matchError(c, err)
			return
		}
		resp := gin.H{"match": m}

		if machine, err := coord.Machine(matchID); err == nil {
			snap, seq, err := machine.Snapshot(playerID)
			if err == nil {
				resp["state"] = snap
				resp["seq"] = seq
			}
		}
		c.JSON(http.StatusOK, resp)
	}
}

// ListLobbies lists joinable matches, oldest first.
func ListLobbies(coord *coordinator.Coordinator) gin.HandlerFunc {
	return func(c *gin.Context) {
		gt := match.GameType(c.Query("game_type"))
		mode := match.Mode(c.Query("mode"))
		lobbies := coord.OpenLobbies(gt, mode)
		if lobbies == nil {
			lobbies = []*coordinator.Match{}
		}
		c.JSON(http.StatusOK, gin.H{"lobbies": lobbies})
	}
}
