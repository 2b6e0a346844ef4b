package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/quickbite/arcade/internal/middleware"
	"github.com/quickbite/arcade/internal/wallet"
)

// GetBalance returns the caller's available balance.
func GetBalance(ledger *wallet.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID := c.GetString(middleware.PlayerIDKey)
		balance, err := ledger.AvailableBalance(c.Request.Context(), playerID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read balance"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"player_id": playerID,
			"balance":   balance,
		})
	}
}

// AddCredits records a credit purchase for the caller. The purchase
// itself (payment rails) happens upstream; this endpoint books the
// resulting credits.
func AddCredits(ledger *wallet.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID := c.GetString(middleware.PlayerIDKey)
		var req struct {
			Amount      int64  `json:"amount" binding:"required"`
			PurchaseRef string `json:"purchase_ref"`
		}
		if err := c.ShouldBindJSON(&req); err != nil || req.Amount <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "positive amount required"})
			return
		}

		idemKey := req.PurchaseRef
		if idemKey == "" {
			idemKey = "purchase:" + uuid.NewString()
		} else {
			idemKey = "purchase:" + playerID + ":" + idemKey
		}

		entry, err := ledger.Credit(c.Request.Context(), playerID, req.Amount,
			wallet.ReasonPurchase, "", idemKey)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to add credits"})
			return
		}

		balance, _ := ledger.AvailableBalance(c.Request.Context(), playerID)
		c.JSON(http.StatusOK, gin.H{
			"entry":   entry,
			"balance": balance,
		})
	}
}

// WalletHistory lists the caller's recent ledger entries, newest first.
func WalletHistory(ledger *wallet.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		playerID := c.GetString(middleware.PlayerIDKey)
		limit := intQuery(c, "limit", 50)
		if limit < 1 || limit > 200 {
			limit = 50
		}

		entries, err := ledger.History(c.Request.Context(), playerID, limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read history"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"player_id": playerID,
			"entries":   entries,
		})
	}
}

// AdminAdjust books a manual correction entry. Guarded by the admin
// token middleware; amount may be negative.
func AdminAdjust(ledger *wallet.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			PlayerID string `json:"player_id" binding:"required"`
			Amount   int64  `json:"amount" binding:"required"`
			Ref      string `json:"ref"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "player_id and amount required"})
			return
		}

		idemKey := "admin:" + uuid.NewString()
		if req.Ref != "" {
			idemKey = "admin:" + req.Ref
		}

		var err error
		if req.Amount >= 0 {
			_, err = ledger.Credit(c.Request.Context(), req.PlayerID, req.Amount,
				wallet.ReasonAdminAdjust, "", idemKey)
		} else {
			_, err = ledger.Debit(c.Request.Context(), req.PlayerID, -req.Amount,
				wallet.ReasonAdminAdjust, "", idemKey)
		}
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}

		balance, _ := ledger.AvailableBalance(c.Request.Context(), req.PlayerID)
		c.JSON(http.StatusOK, gin.H{
			"player_id": req.PlayerID,
			"balance":   balance,
		})
	}
}
