package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

var startTime = time.Now()

const version = "1.0.0"

// HealthCheck reports server health plus backing-store reachability.
func HealthCheck(db *sqlx.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := gin.H{
			"status":  "ok",
			"service": "arcade-api",
			"version": version,
			"uptime":  time.Since(startTime).String(),
		}
		if db != nil {
			if err := db.PingContext(c.Request.Context()); err != nil {
				status["database"] = "down"
			} else {
				status["database"] = "up"
			}
		}
		if rdb != nil {
			if err := rdb.Ping(c.Request.Context()).Err(); err != nil {
				status["redis"] = "down"
			} else {
				status["redis"] = "up"
			}
		}
		c.JSON(http.StatusOK, status)
	}
}
