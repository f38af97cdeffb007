package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"HTTP_ADDR", "API_KEY", "GEMINI_API_KEY", "ADVISOR_BASE_URL", "ADVISOR_MODEL", "ADVISOR_NAME",
		"ADVISOR_TIMEOUT_SEC", "ADVISOR_RETRY", "BOT_MOVE_DELAY_MS", "REDIS_URL", "DATABASE_URL", "SESSION_TTL_SEC", "MESSAGES_DIR", "WS_ORIGINS", "BOARD_SQUARE_PX"} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaultsWarnOnMissingKey(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AdvisorModel != DefaultAdvisorModel || cfg.HTTPAddr != ":8080" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.BotMoveDelay() != 500*time.Millisecond {
		t.Fatalf("delay = %v", cfg.BotMoveDelay())
	}
	if len(cfg.Warnings) != 1 {
		t.Fatalf("expected one warning, got %v", cfg.Warnings)
	}
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("GEMINI_API_KEY", " k ")
	t.Setenv("BOT_MOVE_DELAY_MS", "0")
	t.Setenv("ADVISOR_BASE_URL", "http://127.0.0.1:9999/")
	t.Setenv("ADVISOR_TIMEOUT_SEC", "nope")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.APIKey != "k" || len(cfg.Warnings) != 0 {
		t.Fatalf("api key not picked up: %+v", cfg)
	}
	if cfg.BotMoveDelay() != 0 {
		t.Fatalf("zero delay should be allowed")
	}
	if cfg.AdvisorBaseURL != "http://127.0.0.1:9999" {
		t.Fatalf("base url = %q", cfg.AdvisorBaseURL)
	}
	if cfg.AdvisorTimeoutSec != 60 {
		t.Fatalf("invalid timeout should keep default, got %d", cfg.AdvisorTimeoutSec)
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("ADVISOR_MODEL=from-file\nHTTP_ADDR=:9000\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("HTTP_ADDR", ":7000")
	os.Unsetenv("ADVISOR_MODEL")
	t.Cleanup(func() { os.Unsetenv("ADVISOR_MODEL") })
	if err := LoadDotEnv(path, filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.AdvisorModel != "from-file" || cfg.HTTPAddr != ":7000" {
		t.Fatalf("unexpected: model=%s addr=%s", cfg.AdvisorModel, cfg.HTTPAddr)
	}
}

func TestLoadOriginsAndBoardSize(t *testing.T) {
	clearEnv(t)
	t.Setenv("WS_ORIGINS", " localhost:5173 , ,coach.example.com")
	t.Setenv("BOARD_SQUARE_PX", "12")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.WSOriginPatterns) != 2 || cfg.WSOriginPatterns[1] != "coach.example.com" {
		t.Fatalf("origins = %q", cfg.WSOriginPatterns)
	}
	if cfg.BoardSquarePx != 64 {
		t.Fatalf("too-small square size should keep the default, got %d", cfg.BoardSquarePx)
	}
}
