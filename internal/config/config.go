package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// Config aggregates every setting the process reads from the environment.
type Config struct {
	Bot         BotConfig
	Server      ServerConfig
	Store       StoreConfig
	Log         LogConfig
	ContentFile string
	Location    *time.Location
}

// BotConfig describes the chat transport and the operator identity.
type BotConfig struct {
	Token          string
	OperatorID     int64
	Mode           string
	WebhookHost    string
	PollTimeoutSec int
	SessionTTL     time.Duration
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr          string
	SiteDir       string
	OperatorToken string
	AllowedOrigin string
}

// StoreConfig selects the storage backend. DatabaseURL wins over Path.
type StoreConfig struct {
	DatabaseURL string
	Path        string
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	bot, err := loadBotConfig()
	if err != nil {
		return nil, err
	}

	location := time.UTC
	if tz := strings.TrimSpace(os.Getenv("TIMEZONE")); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid TIMEZONE value %q: %w", tz, err)
		}
		location = loc
	}

	return &Config{
		Bot:    bot,
		Server: server,
		Store: StoreConfig{
			DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
			Path:        getEnvOrDefault("DB_PATH", "requests.db"),
		},
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		ContentFile: strings.TrimSpace(os.Getenv("CONTENT_FILE")),
		Location:    location,
	}, nil
}

// ValidateBot reports settings the chat side cannot run without.
func (c *Config) ValidateBot() error {
	if c.Bot.Token == "" {
		return fmt.Errorf("BOT_TOKEN is required")
	}
	if c.Bot.OperatorID == 0 {
		return fmt.Errorf("ADMIN_ID is required")
	}
	switch c.Bot.Mode {
	case ModePolling:
	case ModeWebhook:
		if c.Bot.WebhookHost == "" {
			return fmt.Errorf("WEBHOOK_HOST (or RENDER_EXTERNAL_HOSTNAME) is required in webhook mode")
		}
	default:
		return fmt.Errorf("invalid BOT_MODE value: %q", c.Bot.Mode)
	}
	return nil
}

// WebhookURL is the public address Telegram posts updates to.
func (c *Config) WebhookURL() string {
	host := strings.TrimSuffix(c.Bot.WebhookHost, "/")
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "https://" + host
	}
	return host + WebhookPath(c.Bot.Token)
}

// WebhookPath keeps the token in the path so only Telegram knows the route.
func WebhookPath(token string) string {
	return "/telegram/" + token
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	cfg := ServerConfig{
		SiteDir:       strings.TrimSpace(os.Getenv("SITE_DIR")),
		OperatorToken: strings.TrimSpace(os.Getenv("OPERATOR_TOKEN")),
		AllowedOrigin: getEnvOrDefault("ALLOWED_ORIGIN", "*"),
	}

	if strings.Contains(port, ":") {
		// Allow ":8080" or "127.0.0.1:8080".
		cfg.Addr = port
		return cfg, nil
	}

	if _, err := strconv.Atoi(port); err != nil {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	cfg.Addr = ":" + port
	return cfg, nil
}

func loadBotConfig() (BotConfig, error) {
	var operatorID int64
	if raw := strings.TrimSpace(os.Getenv("ADMIN_ID")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return BotConfig{}, fmt.Errorf("invalid ADMIN_ID value %q: %w", raw, err)
		}
		operatorID = id
	}

	pollTimeout := 30
	if override, err := parseOptionalIntEnv("POLL_TIMEOUT_SEC"); err != nil {
		return BotConfig{}, err
	} else if override != nil && *override > 0 {
		pollTimeout = *override
	}

	ttl, err := parseDurationEnv("SESSION_TTL", 0)
	if err != nil {
		return BotConfig{}, err
	}

	webhookHost := strings.TrimSpace(os.Getenv("WEBHOOK_HOST"))
	if webhookHost == "" {
		webhookHost = strings.TrimSpace(os.Getenv("RENDER_EXTERNAL_HOSTNAME"))
	}

	return BotConfig{
		Token:          strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		OperatorID:     operatorID,
		Mode:           strings.ToLower(getEnvOrDefault("BOT_MODE", ModePolling)),
		WebhookHost:    webhookHost,
		PollTimeoutSec: pollTimeout,
		SessionTTL:     ttl,
	}, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	if val < 0 {
		return 0, fmt.Errorf("invalid %s value %q: must not be negative", key, raw)
	}
	return val, nil
}
