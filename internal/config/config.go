package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	API       APIConfig
	Identity  IdentityConfig
	Scanner   ScannerConfig
	Presenter PresenterConfig
	History   HistoryConfig
	Reveal    RevealConfig
	LogLevel  string
}

// APIConfig holds marketplace backend configuration
type APIConfig struct {
	BaseURL string
	Token   string
	Timeout time.Duration
}

// IdentityConfig holds the authenticated viewer identity
type IdentityConfig struct {
	UserID string
}

// ScannerConfig holds buyer-side scan loop configuration
type ScannerConfig struct {
	RetryDelay   time.Duration
	PollInterval time.Duration
	SpoolDir     string
}

// PresenterConfig holds seller-side code display configuration
type PresenterConfig struct {
	QRImagePath string
	Terminal    bool
}

// HistoryConfig holds local confirmation history configuration
type HistoryConfig struct {
	DBPath string
}

// RevealConfig holds the success screen staging configuration
type RevealConfig struct {
	StageDelay time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	config := &Config{
		API: APIConfig{
			BaseURL: getEnv("MARKET_API_URL", ""),
			Token:   getEnv("MARKET_API_TOKEN", ""),
			Timeout: parseDuration(getEnv("MARKET_API_TIMEOUT", "10s"), 10*time.Second),
		},
		Identity: IdentityConfig{
			UserID: getEnv("MARKET_USER_ID", ""),
		},
		Scanner: ScannerConfig{
			RetryDelay:   parseDuration(getEnv("SCAN_RETRY_DELAY", "3s"), 3*time.Second),
			PollInterval: parseDuration(getEnv("SCAN_POLL_INTERVAL", "500ms"), 500*time.Millisecond),
			SpoolDir:     getEnv("SCAN_SPOOL_DIR", "./frames"),
		},
		Presenter: PresenterConfig{
			QRImagePath: getEnv("QR_IMAGE_PATH", "./meetup-qrcode.png"),
			Terminal:    parseBool(getEnv("QR_TERMINAL", "true"), true),
		},
		History: HistoryConfig{
			DBPath: getEnv("HISTORY_DB_PATH", "./db/history.db"),
		},
		Reveal: RevealConfig{
			StageDelay: parseDuration(getEnv("REVEAL_STAGE_DELAY", "600ms"), 600*time.Millisecond),
		},
		LogLevel: getEnv("LOG_LEVEL", "INFO"),
	}

	// Validate required fields
	if config.API.BaseURL == "" {
		return nil, fmt.Errorf("MARKET_API_URL is required")
	}
	if config.Identity.UserID == "" {
		return nil, fmt.Errorf("MARKET_USER_ID is required")
	}

	return config, nil
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// parseBool parses string to bool with default value
func parseBool(value string, defaultValue bool) bool {
	if value == "" {
		return defaultValue
	}
	boolValue, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return boolValue
}

// parseDuration parses string to time.Duration with default value
func parseDuration(value string, defaultValue time.Duration) time.Duration {
	if value == "" {
		return defaultValue
	}
	duration, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return duration
}
