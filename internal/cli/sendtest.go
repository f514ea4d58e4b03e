package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/bullfrog/pkg/alerts"
	"github.com/ogulcanaydogan/bullfrog/pkg/model"
)

const testMessage = "**Bullfrog Alerting**\nTest message: configuration and webhook posting are working."

var sendTestCmd = &cobra.Command{
	Use:   "send-test",
	Short: "Post a test message through the configured notifiers",
	Long: `Send a fixed test message through every enabled notifier without touching
alert state. Useful to verify webhook URLs after configuration changes.`,
	RunE: runSendTest,
}

func init() {
	rootCmd.AddCommand(sendTestCmd)
	sendTestCmd.Flags().StringP("message", "m", testMessage, "Markdown message to send")
}

func runSendTest(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	message, _ := cmd.Flags().GetString("message")

	notifier, err := initNotifier(cfg)
	if err != nil {
		return err
	}

	err = notifier.Send(cmd.Context(), alerts.Notification{
		ConditionType: "test",
		Severity:      model.SeverityInfo,
		Markdown:      message,
		Time:          time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("send test message: %w", err)
	}

	fmt.Printf("OK: test message posted via %s.\n", notifier.Name())
	return nil
}
