package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ogulcanaydogan/bullfrog/pkg/model"
)

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Inspect and acknowledge stored alerts",
}

var alertsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alerts, most recently seen first",
	RunE:  runAlertsList,
}

var alertsShowCmd = &cobra.Command{
	Use:   "show <fingerprint>",
	Short: "Show one alert",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertsShow,
}

var alertsResolveCmd = &cobra.Command{
	Use:   "resolve <fingerprint>",
	Short: "Mark an alert as resolved",
	Args:  cobra.ExactArgs(1),
	RunE:  runAlertsResolve,
}

func init() {
	rootCmd.AddCommand(alertsCmd)
	alertsCmd.AddCommand(alertsListCmd)
	alertsCmd.AddCommand(alertsShowCmd)
	alertsCmd.AddCommand(alertsResolveCmd)

	alertsListCmd.Flags().StringP("type", "t", "", "Filter by condition type (e.g., license_overage, heartbeat)")
	alertsListCmd.Flags().StringP("subject", "s", "", "Filter by subject (org id)")
	alertsListCmd.Flags().String("status", "", "Filter by status (open, resolved)")
	alertsListCmd.Flags().StringP("output", "o", "table", "Output format (table, json, yaml)")
	alertsShowCmd.Flags().StringP("output", "o", "yaml", "Output format (json, yaml)")
}

func runAlertsList(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	conditionType, _ := cmd.Flags().GetString("type")
	subject, _ := cmd.Flags().GetString("subject")
	status, _ := cmd.Flags().GetString("status")
	output, _ := cmd.Flags().GetString("output")

	store, err := initStorage(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	filter := model.AlertFilter{ConditionType: conditionType, Subject: subject}
	if status != "" {
		filter.Status = model.ParseStatus(status)
	}

	records, err := store.ListAlerts(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("list alerts: %w", err)
	}

	if len(records) == 0 && (output == "" || output == "table") {
		fmt.Println("No alerts recorded.")
		return nil
	}

	return render(os.Stdout, output, records, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "FINGERPRINT\tTYPE\tSUBJECT\tKEY\tSEVERITY\tSTATUS\tLAST SEEN\tLAST SENT\n")
		for _, r := range records {
			lastSent := "-"
			if r.LastSentAt != nil {
				lastSent = r.LastSentAt.Format("2006-01-02 15:04")
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				shortFP(r.Fingerprint), r.ConditionType, r.Subject, r.SubjectKey,
				r.Severity, r.Status, r.LastSeenAt.Format("2006-01-02 15:04"), lastSent,
			)
		}
	})
}

func runAlertsShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")

	store, err := initStorage(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	record, err := store.GetAlert(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("get alert: %w", err)
	}

	return render(os.Stdout, output, record, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "Fingerprint:\t%s\n", record.Fingerprint)
		fmt.Fprintf(w, "Type:\t%s\n", record.ConditionType)
		fmt.Fprintf(w, "Subject:\t%s\n", record.Subject)
		fmt.Fprintf(w, "Key:\t%s\n", record.SubjectKey)
		fmt.Fprintf(w, "Severity:\t%s\n", record.Severity)
		fmt.Fprintf(w, "Status:\t%s\n", record.Status)
		fmt.Fprintf(w, "Details:\t%s\n", record.Details)
	})
}

func runAlertsResolve(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store, err := initStorage(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.SetAlertStatus(cmd.Context(), args[0], model.StatusResolved); err != nil {
		return fmt.Errorf("resolve alert: %w", err)
	}

	fmt.Printf("Alert %s resolved.\n", shortFP(args[0]))
	return nil
}
