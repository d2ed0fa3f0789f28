package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var showWindows int

var showCmd = &cobra.Command{
	Use:   "show <hash-prefix>",
	Short: "Show a stored analysis by hash prefix",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().IntVar(&showWindows, "windows", 40, "max attack windows to print (0 = all)")
}

func runShow(cmd *cobra.Command, args []string) error {
	prefix := args[0]

	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	rec, a, err := db.LoadAnalysis(prefix)
	if err != nil {
		return fmt.Errorf("load analysis: %w", err)
	}
	if rec == nil {
		fmt.Fprintf(os.Stderr, "No analysis found with hash prefix %q\n", prefix)
		return nil
	}
	printAnalysis(os.Stdout, *rec, a, showWindows)
	return nil
}
