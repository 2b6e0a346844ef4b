package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/quickbite/arcade/internal/api"
	"github.com/quickbite/arcade/internal/config"
	"github.com/quickbite/arcade/internal/coordinator"
	"github.com/quickbite/arcade/internal/database"
	"github.com/quickbite/arcade/internal/match"
	"github.com/quickbite/arcade/internal/migrations"
	"github.com/quickbite/arcade/internal/physics"
	"github.com/quickbite/arcade/internal/rating"
	"github.com/quickbite/arcade/internal/redis"
	"github.com/quickbite/arcade/internal/session"
	"github.com/quickbite/arcade/internal/wallet"
	"github.com/quickbite/arcade/internal/ws"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if os.Getenv("MIGRATE_ON_START") == "true" {
		log.Println("Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	ledger := wallet.NewLedger(wallet.NewPGStore(db))
	ranks := rating.NewEngine(rating.NewPGStore(db))
	sessions := session.NewManager(cfg.JWTSecret,
		time.Duration(cfg.SessionTimeoutMin)*time.Minute)

	var resolver physics.ShotResolver
	if cfg.ShotResolverURL != "" {
		resolver = physics.NewClient(cfg.ShotResolverURL, cfg.ShotResolverTimeout)
		log.Printf("[POOL] shot resolver at %s", cfg.ShotResolverURL)
	} else {
		log.Printf("[POOL] SHOT_RESOLVER_URL not set, pool matches disabled")
	}

	hub := ws.NewHub(rdb)
	hubDone := make(chan struct{})
	defer close(hubDone)
	go hub.Run(hubDone)
	hub.StartEventRelay(context.Background())

	coord := coordinator.New(coordinator.Config{
		BuyInTiers:   cfg.BuyInTiers,
		RakePercent:  int64(cfg.RakePercent),
		LobbyTimeout: time.Duration(cfg.LobbyTimeoutSeconds) * time.Second,
		Machine: match.MachineConfig{
			TurnClock:   time.Duration(cfg.TurnClockSeconds) * time.Second,
			ReadyCheck:  time.Duration(cfg.ReadyCheckSeconds) * time.Second,
			GracePeriod: time.Duration(cfg.DisconnectGracePeriodSecs) * time.Second,
		},
	}, ledger, ranks, hub, resolver, db, rdb)

	go coord.StartLobbySweeper(context.Background(), time.Minute)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	api.SetupRoutes(router, api.Deps{
		Cfg:      cfg,
		DB:       db,
		RDB:      rdb,
		Ledger:   ledger,
		Ranks:    ranks,
		Coord:    coord,
		Sessions: sessions,
		WS:       ws.NewHandler(hub, coord, sessions),
	})

	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting arcade server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
