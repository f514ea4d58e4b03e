package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Report license overages from the latest snapshot",
	Long: `Scan the most recent license snapshot batch and report one alert per
license whose consumption exceeds its entitlement. Alerts inside the cooldown
window are suppressed. Exits with status 2 when no snapshots exist yet.`,
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
}

func runEvaluate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	store, err := initStorage(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	ev, err := initEvaluator(cfg, store, logger)
	if err != nil {
		return err
	}

	summary, err := ev.EvaluateOverage(cmd.Context())
	if err != nil {
		return fmt.Errorf("evaluate overages: %w", err)
	}

	if summary.Overages == 0 {
		fmt.Printf("OK: No overages detected in latest snapshot (%s UTC).\n",
			summary.SnapshotAt.Format("2006-01-02T15:04:05"))
		return nil
	}

	fmt.Printf("Overages: %d. Alerts sent: %d. Suppressed: %d. Failed: %d.\n",
		summary.Overages, summary.Sent, summary.Suppressed, summary.Failed)
	if summary.Failed > 0 {
		return fmt.Errorf("%d overage alerts were not delivered", summary.Failed)
	}
	return nil
}
