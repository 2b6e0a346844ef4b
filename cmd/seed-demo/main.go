package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/quickbite/arcade/internal/config"
	"github.com/quickbite/arcade/internal/database"
	"github.com/quickbite/arcade/internal/wallet"
)

// Seeds demo players with starting credits so a fresh environment can
// play matches right away.
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

	players := []string{"demo-1", "demo-2", "demo-3", "demo-4"}
	if raw := os.Getenv("DEMO_PLAYERS"); raw != "" {
		players = nil
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				players = append(players, p)
			}
		}
	}

	credits := int64(500)
	if raw := os.Getenv("DEMO_CREDITS"); raw != "" {
		if v, err := strconv.ParseInt(raw, 10, 64); err == nil && v > 0 {
			credits = v
		}
	}

	ledger := wallet.NewLedger(wallet.NewPGStore(db))
	ctx := context.Background()

	for _, p := range players {
		_, err := ledger.Credit(ctx, p, credits, wallet.ReasonPurchase, "",
			fmt.Sprintf("seed:%s", p))
		if err != nil {
			log.Fatalf("Failed to seed %s: %v", p, err)
		}
		balance, err := ledger.AvailableBalance(ctx, p)
		if err != nil {
			log.Fatalf("Failed to read balance for %s: %v", p, err)
		}
		log.Printf("Seeded %s (balance=%d)", p, balance)
	}

	log.Printf("Done: %d demo players ready", len(players))
}
