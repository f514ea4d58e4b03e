package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/bullfrog/internal/config"
	"github.com/ogulcanaydogan/bullfrog/internal/evaluator"
	"github.com/ogulcanaydogan/bullfrog/internal/metrics"
	"github.com/ogulcanaydogan/bullfrog/internal/server"
	"github.com/ogulcanaydogan/bullfrog/pkg/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server and the periodic alert jobs",
	Long: `Start the HTTP API (health, metrics, alerts) and run the heartbeat and
overage evaluation jobs on their configured intervals. When
evaluator.pull_interval is set, license usage is also collected periodically.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringP("listen", "l", "", "Listen address (default from config)")
	serveCmd.Flags().Bool("no-jobs", false, "Serve the API only, without periodic jobs")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	listen, _ := cmd.Flags().GetString("listen")
	if listen != "" {
		cfg.Server.Listen = listen
	}
	noJobs, _ := cmd.Flags().GetBool("no-jobs")

	logger := newLogger(cfg)
	metrics.SetBuildInfo(Version, "", "")

	store, err := initStorage(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, stop := context.WithCancel(cmd.Context())
	defer stop()

	var jobs sync.WaitGroup
	if !noJobs {
		if err := startJobs(ctx, &jobs, cfg, store); err != nil {
			return err
		}
	}

	apiServer := server.NewServer(store, logger)
	srv := &http.Server{
		Addr:         cfg.Server.Listen,
		Handler:      apiServer.Handler(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server started", "listen", cfg.Server.Listen)
		fmt.Fprintf(os.Stderr, "Bullfrog listening on %s\n", cfg.Server.Listen)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	var serveErr error
	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			serveErr = fmt.Errorf("server error: %w", err)
		}
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			serveErr = fmt.Errorf("shutdown error: %w", err)
		}
	}

	stop()
	jobs.Wait()
	logger.Info("server stopped")
	return serveErr
}

// startJobs launches the periodic jobs; they stop when ctx is cancelled.
func startJobs(ctx context.Context, wg *sync.WaitGroup, cfg *config.Config, store storage.Storage) error {
	logger := newLogger(cfg)

	ev, err := initEvaluator(cfg, store, logger)
	if err != nil {
		return err
	}

	run := func(interval time.Duration, name string, fn func(context.Context) error) {
		if interval <= 0 {
			logger.Info("scheduled job disabled", "job", name)
			return
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			evaluator.RunEvery(ctx, interval, name, logger, fn)
		}()
	}

	run(cfg.Evaluator.HeartbeatInterval, "heartbeat", func(ctx context.Context) error {
		_, err := ev.Heartbeat(ctx)
		return err
	})

	if cfg.Evaluator.PullInterval > 0 {
		coll := initCollector(cfg, store, logger)
		run(cfg.Evaluator.PullInterval, "pull", func(ctx context.Context) error {
			_, err := coll.Pull(ctx, cfg.Webex.OrgID)
			return err
		})
	}

	run(cfg.Evaluator.EvaluateInterval, "evaluate", func(ctx context.Context) error {
		_, err := ev.EvaluateOverage(ctx)
		if errors.Is(err, storage.ErrNoSnapshots) {
			logger.Info("no license snapshots yet; skipping evaluation")
			return nil
		}
		return err
	})

	return nil
}
