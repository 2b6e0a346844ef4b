package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// Server
	Port        string
	FrontendURL string

	// Economy
	BuyInTiers  []int64 // allowed buy-in amounts in wallet credits
	RakePercent int     // platform cut of the prize pool

	// Match settings
	TurnClockSeconds          int
	ReadyCheckSeconds         int
	DisconnectGracePeriodSecs int
	LobbyTimeoutSeconds       int

	// Shot resolution service
	ShotResolverURL     string
	ShotResolverTimeout int // seconds

	// Security
	JWTSecret         string
	SessionTimeoutMin int
	AdminToken        string // empty disables the admin endpoints
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Database
		DatabaseURL: getEnv("DATABASE_URL", "postgres://localhost:5432/arcade?sslmode=disable"),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Economy
		BuyInTiers:  getEnvInt64List("BUY_IN_TIERS", []int64{5, 10, 25, 50}),
		RakePercent: getEnvInt("RAKE_PERCENTAGE", 10),

		// Match settings
		TurnClockSeconds:          getEnvInt("TURN_CLOCK_SECONDS", 30),
		ReadyCheckSeconds:         getEnvInt("READY_CHECK_SECONDS", 20),
		DisconnectGracePeriodSecs: getEnvInt("DISCONNECT_GRACE_PERIOD_SECONDS", 120),
		LobbyTimeoutSeconds:       getEnvInt("LOBBY_TIMEOUT_SECONDS", 600),

		// Shot resolution service
		ShotResolverURL:     getEnv("SHOT_RESOLVER_URL", ""),
		ShotResolverTimeout: getEnvInt("SHOT_RESOLVER_TIMEOUT_SECONDS", 10),

		// Security
		JWTSecret:         getEnv("JWT_SECRET", "change-me-in-production"),
		SessionTimeoutMin: getEnvInt("SESSION_TIMEOUT_MINUTES", 720),
		AdminToken:        getEnv("ADMIN_TOKEN", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvInt64List(key string, defaultValue []int64) []int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []int64
	for _, part := range strings.Split(value, ",") {
		v, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return defaultValue
		}
		out = append(out, v)
	}
	return out
}
