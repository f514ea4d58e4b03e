package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var licensesCmd = &cobra.Command{
	Use:   "licenses",
	Short: "Show the latest captured license usage",
	Long: `Print the most recent license snapshot batch with entitlement,
consumption and overage per license. Exits with status 2 when nothing has
been captured yet.`,
	RunE: runLicenses,
}

func init() {
	rootCmd.AddCommand(licensesCmd)
	licensesCmd.Flags().StringP("output", "o", "table", "Output format (table, json, yaml)")
	licensesCmd.Flags().Bool("overages", false, "Only show licenses over entitlement")
}

func runLicenses(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	output, _ := cmd.Flags().GetString("output")
	onlyOverages, _ := cmd.Flags().GetBool("overages")

	store, err := initStorage(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	capturedAt, snaps, err := store.LatestSnapshots(cmd.Context())
	if err != nil {
		return fmt.Errorf("load latest snapshots: %w", err)
	}

	if onlyOverages {
		filtered := snaps[:0]
		for _, s := range snaps {
			if _, over := s.Overage(); over {
				filtered = append(filtered, s)
			}
		}
		snaps = filtered
	}

	if output == "" || output == "table" {
		fmt.Printf("=== License usage (%s UTC) ===\n\n", capturedAt.Format("2006-01-02 15:04:05"))
	}

	return render(os.Stdout, output, snaps, func(w *tabwriter.Writer) {
		fmt.Fprintf(w, "ORG\tLICENSE\tID\tENTITLED\tCONSUMED\tOVERAGE\n")
		for _, s := range snaps {
			overage := "-"
			if n, over := s.Overage(); over {
				overage = fmt.Sprintf("%d", n)
			}
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
				s.OrgID, s.DisplayKey(), s.LicenseID,
				units(s.TotalUnits), units(s.ConsumedUnits), overage,
			)
		}
	})
}

func units(v *int64) string {
	if v == nil {
		return "?"
	}
	return fmt.Sprintf("%d", *v)
}
