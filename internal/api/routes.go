package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/quickbite/arcade/internal/api/handlers"
	"github.com/quickbite/arcade/internal/config"
	"github.com/quickbite/arcade/internal/coordinator"
	"github.com/quickbite/arcade/internal/middleware"
	"github.com/quickbite/arcade/internal/rating"
	"github.com/quickbite/arcade/internal/session"
	"github.com/quickbite/arcade/internal/wallet"
	"github.com/quickbite/arcade/internal/ws"
)

// Deps carries everything the route tree needs.
type Deps struct {
	Cfg      *config.Config
	DB       *sqlx.DB
	RDB      *redis.Client
	Ledger   *wallet.Ledger
	Ranks    *rating.Engine
	Coord    *coordinator.Coordinator
	Sessions *session.Manager
	WS       *ws.Handler
}

// SetupRoutes configures the full API surface.
func SetupRoutes(router *gin.Engine, d Deps) {
	router.Use(middleware.CORSMiddleware(d.Cfg))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(d.DB, d.RDB))
		v1.POST("/session", handlers.IssueSession(d.Sessions))

		// public read views
		v1.GET("/rankings", handlers.Leaderboard(d.Ranks))
		v1.GET("/players/:id/rankings", handlers.PlayerRankings(d.DB))
		v1.GET("/players/:id/matches", handlers.MatchHistory(d.DB))

		authed := v1.Group("")
		authed.Use(middleware.RequireSession(d.Sessions))
		{
			wg := authed.Group("/wallet")
			{
				wg.GET("/balance", handlers.GetBalance(d.Ledger))
				wg.POST("/credits", handlers.AddCredits(d.Ledger))
				wg.GET("/history", handlers.WalletHistory(d.Ledger))
			}

			mg := authed.Group("/matches")
			{
				mg.POST("", handlers.CreateMatch(d.Coord))
				mg.POST("/quick", handlers.QuickMatch(d.Coord))
				mg.GET("/open", handlers.ListLobbies(d.Coord))
				mg.GET("/:id", handlers.GetMatch(d.Coord))
				mg.POST("/:id/join", handlers.JoinMatch(d.Coord))
			}
		}

		admin := v1.Group("/admin")
		admin.Use(requireAdminToken(d.Cfg))
		{
			admin.POST("/wallet/adjust", handlers.AdminAdjust(d.Ledger))
		}
	}

	// websocket attach for seated players; auth rides in the query token
	router.GET("/ws/match/:id", d.WS.ServeWS)
}

func requireAdminToken(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.AdminToken == "" || c.GetHeader("X-Admin-Token") != cfg.AdminToken {
			c.JSON(http.StatusForbidden, gin.H{"error": "admin access denied"})
			c.Abort()
			return
		}
		c.Next()
	}
}
