package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig is the process configuration read from the environment.
type AppConfig struct {
	HTTPAddr string

	APIKey            string
	AdvisorBaseURL    string
	AdvisorModel      string
	AdvisorName       string
	AdvisorTimeoutSec int
	AdvisorRetry      int

	BotMoveDelayMs int

	RedisURL      string
	DatabaseURL   string
	SessionTTLSec int

	MessagesDir string

	// WSOriginPatterns lists extra origins allowed to open the event stream.
	WSOriginPatterns []string
	BoardSquarePx    int

	// Warnings collects non-fatal problems the caller should log.
	Warnings []string
}

const (
	DefaultAdvisorBaseURL = "https://generativelanguage.googleapis.com"
	DefaultAdvisorModel   = "gemini-2.5-pro"
)

// LoadDotEnv loads .env style files into the process environment without
// overriding variables that are already set. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return err
		}
	}
	return nil
}

func Load() (*AppConfig, error) {
	cfg := &AppConfig{
		HTTPAddr:          ":8080",
		AdvisorBaseURL:    DefaultAdvisorBaseURL,
		AdvisorModel:      DefaultAdvisorModel,
		AdvisorName:       "Gemini",
		AdvisorTimeoutSec: 60,
		AdvisorRetry:      1,
		BotMoveDelayMs:    500,
		SessionTTLSec:     86400,
		BoardSquarePx:     64,
	}

	if v := strings.TrimSpace(os.Getenv("HTTP_ADDR")); v != "" {
		cfg.HTTPAddr = v
	}

	cfg.APIKey = strings.TrimSpace(os.Getenv("API_KEY"))
	if cfg.APIKey == "" {
		cfg.APIKey = strings.TrimSpace(os.Getenv("GEMINI_API_KEY"))
	}
	if v := strings.TrimSpace(os.Getenv("ADVISOR_BASE_URL")); v != "" {
		cfg.AdvisorBaseURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(os.Getenv("ADVISOR_MODEL")); v != "" {
		cfg.AdvisorModel = v
	}
	if v := strings.TrimSpace(os.Getenv("ADVISOR_NAME")); v != "" {
		cfg.AdvisorName = v
	}
	if v := strings.TrimSpace(os.Getenv("ADVISOR_TIMEOUT_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AdvisorTimeoutSec = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("ADVISOR_RETRY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.AdvisorRetry = n
		}
	}
	if v := strings.TrimSpace(os.Getenv("BOT_MOVE_DELAY_MS")); v != "" { // zero disables the delay
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.BotMoveDelayMs = n
		}
	}

	cfg.RedisURL = strings.TrimSpace(os.Getenv("REDIS_URL"))
	cfg.DatabaseURL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	if v := strings.TrimSpace(os.Getenv("SESSION_TTL_SEC")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionTTLSec = n
		}
	}
	cfg.MessagesDir = strings.TrimSpace(os.Getenv("MESSAGES_DIR"))
	cfg.WSOriginPatterns = splitList(os.Getenv("WS_ORIGINS"))
	if v := strings.TrimSpace(os.Getenv("BOARD_SQUARE_PX")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 24 {
			cfg.BoardSquarePx = n
		}
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("HTTP_ADDR must not be empty")
	}
	// advice requests fail individually until a key is supplied
	if cfg.APIKey == "" {
		cfg.Warnings = append(cfg.Warnings, "API_KEY is not set; advisor requests will fail")
	}

	return cfg, nil
}

func (c *AppConfig) AdvisorTimeout() time.Duration {
	return time.Duration(c.AdvisorTimeoutSec) * time.Second
}

func (c *AppConfig) BotMoveDelay() time.Duration {
	return time.Duration(c.BotMoveDelayMs) * time.Millisecond
}

func (c *AppConfig) SessionTTL() time.Duration {
	return time.Duration(c.SessionTTLSec) * time.Second
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
