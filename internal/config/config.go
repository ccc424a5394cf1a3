package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/jwsummers/techmetrix/internal/model"
)

// Config holds all runtime configuration. Each field corresponds to an
// environment variable; required values halt startup when missing.
type Config struct {
	Port        string
	DatabaseURL string
	TokenSecret string
	TokenTTLHrs int
	BcryptCost  int

	// Labor-hour goals efficiency is measured against.
	Targets model.Targets
}

// Load reads configuration from the environment, after loading a local
// .env file when one exists.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:        getenv("PORT", "8080"),
		DatabaseURL: must("DATABASE_URL"),
		TokenSecret: must("TOKEN_AUTH_SECRET"),
		TokenTTLHrs: getenvInt("TOKEN_TTL_HOURS", 24),
		BcryptCost:  getenvInt("BCRYPT_COST", 10),
		Targets: model.Targets{
			DailyTarget:  getenvFloat("DAILY_TARGET", 8),
			WeeklyTarget: getenvFloat("WEEKLY_TARGET", 40),
		},
	}
}

func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Fatalf("invalid integer for env var %s: %q", key, v)
	}
	return n
}

func getenvFloat(key string, fallback float64) float64 {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Fatalf("invalid number for env var %s: %q", key, v)
	}
	return f
}
