package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var heartbeatCmd = &cobra.Command{
	Use:   "heartbeat",
	Short: "Report the evaluator heartbeat once",
	RunE:  runHeartbeat,
}

func init() {
	rootCmd.AddCommand(heartbeatCmd)
}

func runHeartbeat(cmd *cobra.Command, _ []string) error {
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

	outcome, err := ev.Heartbeat(cmd.Context())
	if err != nil {
		return fmt.Errorf("report heartbeat: %w", err)
	}

	fmt.Printf("Heartbeat: %s\n", outcome)
	return nil
}
