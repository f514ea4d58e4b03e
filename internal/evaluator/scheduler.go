package evaluator

import (
	"context"
	"log/slog"
	"time"

	"github.com/ogulcanaydogan/bullfrog/internal/metrics"
)

// RunEvery runs fn immediately and then on every tick of interval until ctx
// is cancelled. Errors are logged and counted; they never stop the loop.
func RunEvery(ctx context.Context, interval time.Duration, name string, logger *slog.Logger, fn func(context.Context) error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	run := func() {
		if err := fn(ctx); err != nil {
			metrics.JobRunsTotal.WithLabelValues(name, "failure").Inc()
			logger.Error("scheduled job failed", "job", name, "error", err)
			return
		}
		metrics.JobRunsTotal.WithLabelValues(name, "success").Inc()
	}

	logger.Info("scheduled job started", "job", name, "interval", interval)
	run()
	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduled job stopped", "job", name)
			return
		case <-ticker.C:
			run()
		}
	}
}
