package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/bullfrog/internal/collector"
	"github.com/ogulcanaydogan/bullfrog/internal/config"
	"github.com/ogulcanaydogan/bullfrog/internal/evaluator"
	"github.com/ogulcanaydogan/bullfrog/pkg/alerting"
	"github.com/ogulcanaydogan/bullfrog/pkg/alerts"
	"github.com/ogulcanaydogan/bullfrog/pkg/storage"
	"github.com/ogulcanaydogan/bullfrog/pkg/webex"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Exit codes. exitNothingToDo means the command ran but had no input.
const (
	exitError       = 1
	exitNothingToDo = 2
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "bullfrog",
	Short: "Bullfrog - Webex license alerting with deduplication",
	Long: `Bullfrog collects Webex license usage, detects overages and delivers
deduplicated, cooldown-gated alerts to Webex, Slack or a generic webhook.`,
	SilenceUsage: true,
}

// Execute runs the CLI.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(exitCode(err))
	}
}

func exitCode(err error) int {
	if errors.Is(err, collector.ErrNoLicenses) || errors.Is(err, storage.ErrNoSnapshots) {
		return exitNothingToDo
	}
	return exitError
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ~/.bullfrog/config.yaml)")
}

// loadConfig loads the configuration.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

// newLogger creates a structured logger from config.
func newLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	var handler slog.Handler
	if cfg.Logging.Format == "text" {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	return slog.New(handler)
}

// initStorage opens the configured storage backend.
func initStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	store, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.Path, cfg.Storage.DSN)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	return store, nil
}

// initNotifier combines every enabled delivery integration.
func initNotifier(cfg *config.Config) (*alerts.Fanout, error) {
	var notifiers []alerts.Notifier

	if cfg.Alerts.Webex.Enabled {
		notifiers = append(notifiers, alerts.NewWebexNotifier(
			cfg.Alerts.Webex.WebhookURL,
			cfg.Alerts.Webex.Timeout,
		))
	}

	if cfg.Alerts.Slack.Enabled && cfg.Alerts.Slack.WebhookURL != "" {
		notifiers = append(notifiers, alerts.NewSlackNotifier(
			cfg.Alerts.Slack.WebhookURL,
			cfg.Alerts.Slack.Channel,
		))
	}

	if cfg.Alerts.Webhook.Enabled && cfg.Alerts.Webhook.URL != "" {
		notifiers = append(notifiers, alerts.NewWebhookNotifier(
			cfg.Alerts.Webhook.URL,
			cfg.Alerts.Webhook.Secret,
		))
	}

	if len(notifiers) == 0 {
		return nil, fmt.Errorf("init notifiers: %w", alerts.ErrNoNotifiers)
	}
	return alerts.NewFanout(notifiers...), nil
}

// initTokenSource picks the refresh-token grant when service-app credentials
// are configured and a static access token otherwise.
func initTokenSource(cfg *config.Config, logger *slog.Logger) webex.TokenSource {
	if !cfg.Webex.UsesRefreshGrant() {
		return webex.StaticToken(cfg.Webex.AccessToken)
	}
	return webex.NewTokenCache(webex.TokenConfig{
		APIBase:      cfg.Webex.APIBase,
		ClientID:     cfg.Webex.ClientID,
		ClientSecret: cfg.Webex.ClientSecret,
		RefreshToken: cfg.Webex.RefreshToken,
		Timeout:      cfg.Webex.Timeout,
	}, logger)
}

// initCollector wires the license collector.
func initCollector(cfg *config.Config, store storage.Storage, logger *slog.Logger) *collector.Collector {
	client := webex.NewClient(cfg.Webex.APIBase, cfg.Webex.Timeout, initTokenSource(cfg, logger))
	return collector.New(client, store, logger)
}

// initEvaluator wires the alert engine and the evaluator on top of it.
func initEvaluator(cfg *config.Config, store storage.Storage, logger *slog.Logger) (*evaluator.Evaluator, error) {
	notifier, err := initNotifier(cfg)
	if err != nil {
		return nil, err
	}
	engine := alerting.NewEngine(store, notifier, cfg.Alerts.Cooldown, logger)
	return evaluator.New(store, engine, cfg.Evaluator.Parallelism, logger), nil
}
