package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/fgframes/internal/report"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all stored analyses",
	Args:  cobra.NoArgs,
	RunE:  runList,
}

func runList(cmd *cobra.Command, args []string) error {
	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	recs, err := db.ListAnalyses()
	if err != nil {
		return fmt.Errorf("list analyses: %w", err)
	}
	if len(recs) == 0 {
		fmt.Fprintln(os.Stdout, "No analyses stored yet. Run 'fgframes parse <timeline.json>' to add one.")
		return nil
	}
	report.PrintAnalysisList(os.Stdout, recs)
	return nil
}
