package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/fgframes/internal/report"
)

var trendLast int

var trendCmd = &cobra.Command{
	Use:   "trend",
	Short: "Chronological per-analysis frame advantage trend",
	Args:  cobra.NoArgs,
	RunE:  runTrend,
}

func init() {
	trendCmd.Flags().IntVar(&trendLast, "last", 20, "only use the N most recent analyses (0 = all)")
}

func runTrend(cmd *cobra.Command, args []string) error {
	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	recs, err := db.GetTrend(trendLast)
	if err != nil {
		return fmt.Errorf("query trend: %w", err)
	}
	if len(recs) == 0 {
		fmt.Println("no analyses found")
		return nil
	}
	report.PrintTrendTable(os.Stdout, recs)
	return nil
}
