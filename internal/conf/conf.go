package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
)

// Transport names accepted by FORWARD_TRANSPORT
const (
	TransportTelegram = "telegram"
	TransportFeishu   = "feishu"
)

// Config represents application configuration
type Config struct {
	Telegram TelegramConfig
	Feishu   FeishuConfig

	// Transport selects the destination chat network
	Transport string `env:"FORWARD_TRANSPORT" envDefault:"telegram"`

	Rules RulesConfig
	Media MediaConfig
	UFB   UFBConfig
	AMQP  AMQPConfig

	// Debug mode
	Debug bool `env:"DEBUG"`
}

// TelegramConfig contains the bot used as source, and as destination by default
type TelegramConfig struct {
	BotToken string `env:"TELEGRAM_BOT_TOKEN"`
	APIURL   string `env:"TELEGRAM_API_URL"` // optional local Bot API server
}

// FeishuConfig contains Feishu configuration
type FeishuConfig struct {
	AppID     string `env:"FEISHU_APP_ID"`
	AppSecret string `env:"FEISHU_APP_SECRET"`
}

// RulesConfig contains rule store configuration
type RulesConfig struct {
	DBPath   string `env:"RULES_DB_PATH"`
	SeedFile string `env:"RULES_FILE"`
}

// MediaConfig contains media staging configuration
type MediaConfig struct {
	TempDir             string        `env:"MEDIA_TEMP_DIR"`
	GroupWindow         time.Duration `env:"MEDIA_GROUP_WINDOW"          envDefault:"1500ms"`
	DownloadConcurrency int           `env:"MEDIA_DOWNLOAD_CONCURRENCY" envDefault:"4"`
}

// UFBConfig contains the keyword sync peer configuration
type UFBConfig struct {
	Enabled        bool          `env:"UFB_ENABLED"`
	ServerURL      string        `env:"UFB_SERVER_URL"`
	Token          string        `env:"UFB_TOKEN"`
	ConfigPath     string        `env:"UFB_CONFIG_PATH"`
	ReconnectDelay time.Duration `env:"UFB_RECONNECT_DELAY" envDefault:"5s"`
}

// AMQPConfig contains the receipt broker configuration; empty URL disables receipts
type AMQPConfig struct {
	URL      string `env:"AMQP_URL"`
	Exchange string `env:"AMQP_EXCHANGE" envDefault:"forwarder.events"`
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	homeDir, _ := os.UserHomeDir()
	base := filepath.Join(homeDir, ".chat-forwarder")
	if cfg.Rules.DBPath == "" {
		cfg.Rules.DBPath = filepath.Join(base, "rules.db")
	}
	if cfg.UFB.ConfigPath == "" {
		cfg.UFB.ConfigPath = filepath.Join(base, "ufb", "config.json")
	}
	if cfg.Media.TempDir == "" {
		cfg.Media.TempDir = filepath.Join(os.TempDir(), "chat-forwarder")
	}
	return cfg, nil
}

// Validate validates the configuration needed to run the forwarder
func (c *Config) Validate() error {
	if c.Telegram.BotToken == "" {
		return &ConfigError{Field: "TELEGRAM_BOT_TOKEN", Message: "required"}
	}
	switch c.Transport {
	case TransportTelegram:
	case TransportFeishu:
		if c.Feishu.AppID == "" || c.Feishu.AppSecret == "" {
			return &ConfigError{Field: "FEISHU_APP_ID/FEISHU_APP_SECRET", Message: "required for feishu transport"}
		}
	default:
		return &ConfigError{Field: "FORWARD_TRANSPORT", Message: fmt.Sprintf("unknown transport %q", c.Transport)}
	}
	if c.UFB.Enabled && c.UFB.ServerURL == "" {
		return &ConfigError{Field: "UFB_SERVER_URL", Message: "required when UFB_ENABLED"}
	}
	if c.Media.DownloadConcurrency < 1 {
		return &ConfigError{Field: "MEDIA_DOWNLOAD_CONCURRENCY", Message: "must be at least 1"}
	}
	if c.Media.GroupWindow <= 0 {
		return &ConfigError{Field: "MEDIA_GROUP_WINDOW", Message: "must be positive"}
	}
	return nil
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return e.Field + ": " + e.Message
}
