package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// R2Config describes the optional Cloudflare R2 snapshot export target.
// The exporter stays disabled unless every credential field is present.
type R2Config struct {
	AccountID       string
	AccessKeyID     string
	SecretAccessKey string
	BucketName      string
	SnapshotKey     string
}

func (c R2Config) Enabled() bool {
	return c.AccountID != "" && c.AccessKeyID != "" && c.SecretAccessKey != "" && c.BucketName != ""
}

// Config хранит все конфигурационные параметры приложения.
type Config struct {
	DatabaseURL      string
	ServerPort       int
	TraqBaseURL      string
	TraqBotToken     string
	PortfolioBaseURL string
	AtCoderBaseURL   string
	UpdateOnStart    bool
	SyncTimezone     string
	R2               R2Config
}

// Load загружает конфигурацию из переменных окружения.
// Опционально подгружает .env файл (полезно для локальной разработки).
func Load() (*Config, error) {
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is not set")
	}

	botToken := os.Getenv("TRAQ_BOT_ACCESS_TOKEN")
	if botToken == "" {
		return nil, fmt.Errorf("TRAQ_BOT_ACCESS_TOKEN environment variable is not set")
	}

	portStr := os.Getenv("SERVER_PORT")
	if portStr == "" {
		portStr = "8080"
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT environment variable: %w", err)
	}
	if port <= 0 || port > 65535 {
		return nil, fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", port)
	}

	updateOnStart := false
	if v := os.Getenv("UPDATE_ON_START"); v != "" {
		updateOnStart, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("UPDATE_ON_START must be a boolean: %w", err)
		}
	}

	cfg := &Config{
		DatabaseURL:      dbURL,
		ServerPort:       port,
		TraqBaseURL:      getEnvOrDefault("TRAQ_BASE_URL", "https://q.trap.jp/api/v3"),
		TraqBotToken:     botToken,
		PortfolioBaseURL: getEnvOrDefault("PORTFOLIO_BASE_URL", "https://portfolio.trap.jp/api/v1"),
		AtCoderBaseURL:   getEnvOrDefault("ATCODER_BASE_URL", "https://atcoder.jp"),
		UpdateOnStart:    updateOnStart,
		SyncTimezone:     getEnvOrDefault("SYNC_TIMEZONE", "Asia/Tokyo"),
		R2: R2Config{
			AccountID:       os.Getenv("R2_ACCOUNT_ID"),
			AccessKeyID:     os.Getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("R2_SECRET_ACCESS_KEY"),
			BucketName:      os.Getenv("R2_BUCKET_NAME"),
			SnapshotKey:     getEnvOrDefault("R2_SNAPSHOT_KEY", "users.json"),
		},
	}

	return cfg, nil
}

func getEnvOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
