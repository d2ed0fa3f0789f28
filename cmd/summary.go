package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/fgframes/internal/report"
)

// summaryCmd is the cobra command for displaying a high-level database overview.
var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Show a high-level overview of the database",
	Long: `Display aggregate statistics about all stored analyses:
analysis count, frame and window totals, whiffs, jumps and the date range,
followed by the most recent analyses.`,
	Args: cobra.NoArgs,
	RunE: runSummary,
}

func runSummary(cmd *cobra.Command, args []string) error {
	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	ov, err := db.GetOverview()
	if err != nil {
		return fmt.Errorf("get overview: %w", err)
	}
	if ov.TotalAnalyses == 0 {
		fmt.Fprintln(os.Stdout, "No analyses stored yet. Run 'fgframes parse <timeline.json>' to add one.")
		return nil
	}

	fmt.Fprintf(os.Stdout, "\n=== Database Summary ===\n\n")
	report.PrintOverview(os.Stdout, ov)

	recs, err := db.ListAnalyses()
	if err != nil {
		return fmt.Errorf("list analyses: %w", err)
	}
	if len(recs) > 10 {
		recs = recs[:10]
	}
	fmt.Fprintf(os.Stdout, "\n--- Most Recent ---\n\n")
	report.PrintAnalysisList(os.Stdout, recs)
	return nil
}
