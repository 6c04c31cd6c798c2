package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
)

// TelegramChannel holds the settings for one operator approval channel
type TelegramChannel struct {
	BotToken string
	ChatID   string
}

// Config holds all configuration for the application
type Config struct {
	// Bridge selection: "telegram" or "discord"
	BridgeType string

	// Telegram configuration; per-request-kind channels fall back to Default
	TelegramProxyBase   string
	TelegramDefault     TelegramChannel
	TelegramCreate      TelegramChannel
	TelegramReset       TelegramChannel
	TelegramTransaction TelegramChannel
	TelegramFreePlay    TelegramChannel

	// Discord configuration (alternative operator channel)
	DiscordToken     string
	DiscordChannelID string

	// Storage
	StorageType string // "sqlite" or "memory"
	DataDir     string

	// Orchestrator tuning
	PollInterval  time.Duration
	PollTimeout   time.Duration
	ResumeTTL     time.Duration
	RedeemMinimum int64

	// Elasticsearch history archiver (optional)
	ArchiveEnabled  bool
	ElasticURL      string
	ElasticUsername string
	ElasticPassword string
	ElasticPrefix   string
	ArchiveInterval time.Duration

	// Environment
	Environment string // "development" or "production"
}

// Load reads the configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		// Only return error if file exists but couldn't be loaded
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	// Get working directory for resource paths
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}

	defaultChannel := TelegramChannel{
		BotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		ChatID:   os.Getenv("TELEGRAM_CHAT_ID"),
	}

	cfg := &Config{
		BridgeType:          getEnvWithDefault("BRIDGE_TYPE", "telegram"),
		TelegramProxyBase:   os.Getenv("TELEGRAM_PROXY_BASE"),
		TelegramDefault:     defaultChannel,
		TelegramCreate:      channelWithDefault("TELEGRAM_CREATE_CHAT_ID", defaultChannel),
		TelegramReset:       channelWithDefault("TELEGRAM_RESET_CHAT_ID", defaultChannel),
		TelegramTransaction: channelWithDefault("TELEGRAM_TRANSACTION_CHAT_ID", defaultChannel),
		TelegramFreePlay:    channelWithDefault("TELEGRAM_FREEPLAY_CHAT_ID", defaultChannel),
		DiscordToken:        os.Getenv("DISCORD_TOKEN"),
		DiscordChannelID:    os.Getenv("DISCORD_CHANNEL_ID"),
		StorageType:         getEnvWithDefault("STORAGE_TYPE", "sqlite"),
		DataDir:             getEnvWithDefault("DATA_DIR", filepath.Join(wd, "data")),
		PollInterval:        getEnvDuration("POLL_INTERVAL", time.Second),
		PollTimeout:         getEnvDuration("POLL_TIMEOUT", 5*time.Minute),
		ResumeTTL:           getEnvDuration("RESUME_TTL", 15*time.Minute),
		RedeemMinimum:       50,
		ArchiveEnabled:      os.Getenv("ELASTICSEARCH_URL") != "",
		ElasticURL:          os.Getenv("ELASTICSEARCH_URL"),
		ElasticUsername:     os.Getenv("ELASTICSEARCH_USERNAME"),
		ElasticPassword:     os.Getenv("ELASTICSEARCH_PASSWORD"),
		ElasticPrefix:       getEnvWithDefault("ELASTICSEARCH_PREFIX", "gamepanel"),
		ArchiveInterval:     getEnvDuration("ARCHIVE_INTERVAL", time.Hour),
		Environment:         getEnvWithDefault("ENVIRONMENT", "development"),
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	// Create data directory if it doesn't exist
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return cfg, nil
}

// validate checks if all required configuration is present
func (c *Config) validate() error {
	switch c.BridgeType {
	case "telegram":
		if c.TelegramDefault.BotToken == "" {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
		}
		if c.TelegramDefault.ChatID == "" {
			return fmt.Errorf("TELEGRAM_CHAT_ID is required")
		}
	case "discord":
		if c.DiscordToken == "" {
			return fmt.Errorf("DISCORD_TOKEN is required")
		}
		if c.DiscordChannelID == "" {
			return fmt.Errorf("DISCORD_CHANNEL_ID is required")
		}
	default:
		return fmt.Errorf("unknown BRIDGE_TYPE: %s", c.BridgeType)
	}
	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// channelWithDefault returns a channel pointed at a per-kind chat ID, or the
// default channel when the override is not set
func channelWithDefault(chatKey string, def TelegramChannel) TelegramChannel {
	if chatID := os.Getenv(chatKey); chatID != "" {
		return TelegramChannel{BotToken: def.BotToken, ChatID: chatID}
	}
	return def
}

// getEnvWithDefault returns environment variable value or default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvDuration parses a duration environment variable or returns the default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
