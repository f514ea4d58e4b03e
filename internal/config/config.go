package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all Bullfrog configuration.
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Webex     WebexConfig     `mapstructure:"webex"`
	Evaluator EvaluatorConfig `mapstructure:"evaluator"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// StorageConfig defines database settings.
type StorageConfig struct {
	Driver string `mapstructure:"driver"` // sqlite or postgres
	Path   string `mapstructure:"path"`
	DSN    string `mapstructure:"dsn"`
}

// AlertsConfig defines the alert engine and its delivery integrations.
type AlertsConfig struct {
	Cooldown time.Duration    `mapstructure:"cooldown"`
	Webex    WebexAlertConfig `mapstructure:"webex"`
	Slack    SlackConfig      `mapstructure:"slack"`
	Webhook  WebhookConfig    `mapstructure:"webhook"`
}

// WebexAlertConfig defines the Webex incoming webhook.
type WebexAlertConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	WebhookURL string        `mapstructure:"webhook_url"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

// SlackConfig defines Slack webhook settings.
type SlackConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	WebhookURL string `mapstructure:"webhook_url"`
	Channel    string `mapstructure:"channel"`
}

// WebhookConfig defines generic webhook settings.
type WebhookConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
	Secret  string `mapstructure:"secret"`
}

// WebexConfig defines REST API access for license collection.
type WebexConfig struct {
	APIBase      string        `mapstructure:"api_base"`
	OrgID        string        `mapstructure:"org_id"`
	AccessToken  string        `mapstructure:"access_token"`
	ClientID     string        `mapstructure:"client_id"`
	ClientSecret string        `mapstructure:"client_secret"`
	RefreshToken string        `mapstructure:"refresh_token"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// UsesRefreshGrant reports whether service-app credentials are configured.
func (w WebexConfig) UsesRefreshGrant() bool {
	return w.ClientID != "" || w.ClientSecret != "" || w.RefreshToken != "" || w.AccessToken == ""
}

// EvaluatorConfig defines the periodic jobs run by serve.
type EvaluatorConfig struct {
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	EvaluateInterval  time.Duration `mapstructure:"evaluate_interval"`
	PullInterval      time.Duration `mapstructure:"pull_interval"`
	Parallelism       int           `mapstructure:"parallelism"`
}

// ServerConfig defines the HTTP API settings.
type ServerConfig struct {
	Listen       string        `mapstructure:"listen"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Load reads configuration from file and environment variables.
func Load(cfgFile string) (*Config, error) {
	v := viper.New()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("find home directory: %w", err)
		}

		v.AddConfigPath(filepath.Join(home, ".bullfrog"))
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	setDefaults(v)

	// Environment variables
	v.SetEnvPrefix("BULLFROG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read config file (ignore if not found)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Every key needs a default so AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	home, _ := os.UserHomeDir()
	v.SetDefault("storage.driver", "sqlite")
	v.SetDefault("storage.path", filepath.Join(home, ".bullfrog", "bullfrog.db"))
	v.SetDefault("storage.dsn", "")

	v.SetDefault("alerts.cooldown", "30m")
	v.SetDefault("alerts.webex.enabled", true)
	v.SetDefault("alerts.webex.webhook_url", "")
	v.SetDefault("alerts.webex.timeout", "15s")
	v.SetDefault("alerts.slack.enabled", false)
	v.SetDefault("alerts.slack.webhook_url", "")
	v.SetDefault("alerts.slack.channel", "#license-alerts")
	v.SetDefault("alerts.webhook.enabled", false)
	v.SetDefault("alerts.webhook.url", "")
	v.SetDefault("alerts.webhook.secret", "")

	v.SetDefault("webex.api_base", "https://webexapis.com/v1")
	v.SetDefault("webex.org_id", "")
	v.SetDefault("webex.access_token", "")
	v.SetDefault("webex.client_id", "")
	v.SetDefault("webex.client_secret", "")
	v.SetDefault("webex.refresh_token", "")
	v.SetDefault("webex.timeout", "30s")

	v.SetDefault("evaluator.heartbeat_interval", "5m")
	v.SetDefault("evaluator.evaluate_interval", "1h")
	v.SetDefault("evaluator.pull_interval", "0s") // disabled
	v.SetDefault("evaluator.parallelism", 4)

	v.SetDefault("server.listen", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "60s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks values that would otherwise fail later at runtime.
func (c *Config) Validate() error {
	var errs []error
	switch c.Storage.Driver {
	case "sqlite":
	case "postgres":
		if c.Storage.DSN == "" {
			errs = append(errs, errors.New("storage.dsn is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("storage.driver %q is not one of sqlite, postgres", c.Storage.Driver))
	}
	if c.Alerts.Cooldown < 0 {
		errs = append(errs, errors.New("alerts.cooldown must not be negative"))
	}
	if c.Evaluator.Parallelism < 1 {
		errs = append(errs, errors.New("evaluator.parallelism must be at least 1"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}
