package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL     string
	ListenAddr      string
	PollInterval    int // seconds
	SyncConcurrency int
	ShutdownTimeout int // seconds

	CaptureAPIURL       string
	CaptureClientID     string
	CaptureClientSecret string
	CaptureTokenURL     string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if exists (ignore error in production)
	_ = godotenv.Load()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	captureURL := os.Getenv("CAPTURE_API_URL")
	if captureURL == "" {
		return nil, fmt.Errorf("CAPTURE_API_URL is required")
	}

	clientID := os.Getenv("CAPTURE_CLIENT_ID")
	clientSecret := os.Getenv("CAPTURE_CLIENT_SECRET")
	tokenURL := os.Getenv("CAPTURE_TOKEN_URL")
	if clientID == "" || clientSecret == "" || tokenURL == "" {
		fmt.Println("Warning: CAPTURE_CLIENT_ID, CAPTURE_CLIENT_SECRET or CAPTURE_TOKEN_URL not set, capture API calls will be unauthenticated")
	}

	listenAddr := os.Getenv("LISTEN_ADDR")
	if listenAddr == "" {
		listenAddr = ":8080"
	}

	return &Config{
		DatabaseURL:     dbURL,
		ListenAddr:      listenAddr,
		PollInterval:    5, // poll every 5 seconds
		SyncConcurrency: 3,
		ShutdownTimeout: 30,

		CaptureAPIURL:       captureURL,
		CaptureClientID:     clientID,
		CaptureClientSecret: clientSecret,
		CaptureTokenURL:     tokenURL,
	}, nil
}
