package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "BOT_TOKEN", "ADMIN_ID", "BOT_MODE", "WEBHOOK_HOST", "RENDER_EXTERNAL_HOSTNAME",
		"POLL_TIMEOUT_SEC", "SESSION_TTL", "DATABASE_URL", "DB_PATH", "SITE_DIR", "OPERATOR_TOKEN",
		"ALLOWED_ORIGIN", "LOG_LEVEL", "LOG_FORMAT", "CONTENT_FILE", "TIMEZONE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default addr :8080, got %q", cfg.Server.Addr)
	}
	if cfg.Bot.Mode != ModePolling {
		t.Errorf("expected polling mode, got %q", cfg.Bot.Mode)
	}
	if cfg.Bot.PollTimeoutSec != 30 {
		t.Errorf("expected poll timeout 30, got %d", cfg.Bot.PollTimeoutSec)
	}
	if cfg.Store.Path != "requests.db" {
		t.Errorf("expected default db path, got %q", cfg.Store.Path)
	}
	if cfg.Location != time.UTC {
		t.Errorf("expected UTC location, got %v", cfg.Location)
	}
	if cfg.Bot.SessionTTL != 0 {
		t.Errorf("expected no session ttl, got %v", cfg.Bot.SessionTTL)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("BOT_TOKEN", "123:abc")
	t.Setenv("ADMIN_ID", "-1001")
	t.Setenv("BOT_MODE", "Webhook")
	t.Setenv("RENDER_EXTERNAL_HOSTNAME", "okservice.onrender.com")
	t.Setenv("SESSION_TTL", "15m")
	t.Setenv("DATABASE_URL", "postgres://u:p@localhost/db")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Errorf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.Bot.OperatorID != -1001 {
		t.Errorf("unexpected operator id %d", cfg.Bot.OperatorID)
	}
	if cfg.Bot.Mode != ModeWebhook {
		t.Errorf("unexpected mode %q", cfg.Bot.Mode)
	}
	if cfg.Bot.SessionTTL != 15*time.Minute {
		t.Errorf("unexpected ttl %v", cfg.Bot.SessionTTL)
	}
	if err := cfg.ValidateBot(); err != nil {
		t.Fatalf("ValidateBot: %v", err)
	}
	if got := cfg.WebhookURL(); got != "https://okservice.onrender.com/telegram/123:abc" {
		t.Errorf("unexpected webhook url %q", got)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"PORT":             "80 80",
		"ADMIN_ID":         "operator",
		"POLL_TIMEOUT_SEC": "soon",
		"SESSION_TTL":      "-5m",
		"TIMEZONE":         "Mars/Olympus_Mons",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%q", key, value)
			}
		})
	}
}

func TestValidateBot(t *testing.T) {
	cfg := &Config{Bot: BotConfig{Token: "t", OperatorID: 1, Mode: ModeWebhook}}
	if err := cfg.ValidateBot(); err == nil {
		t.Error("expected webhook mode without host to fail")
	}

	cfg.Bot.Mode = "carrier-pigeon"
	if err := cfg.ValidateBot(); err == nil {
		t.Error("expected unknown mode to fail")
	}

	cfg.Bot.Mode = ModePolling
	cfg.Bot.OperatorID = 0
	if err := cfg.ValidateBot(); err == nil {
		t.Error("expected missing operator to fail")
	}
}
