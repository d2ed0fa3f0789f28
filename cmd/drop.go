package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/fgframes/internal/storage"
)

var dropForce bool

// dropCmd deletes the SQLite database file.
var dropCmd = &cobra.Command{
	Use:   "drop [hash-prefix]",
	Short: "Delete the analysis database, or a single analysis",
	Long: `Without arguments, permanently delete the SQLite database. All stored
analyses will be lost; re-parse your timelines afterwards to rebuild.
With a hash prefix, delete only that analysis and its windows, events,
jumps, frames and insights (works with both drivers).`,
	Args: cobra.MaximumNArgs(1),
	RunE: runDrop,
}

func init() {
	dropCmd.Flags().BoolVarP(&dropForce, "force", "f", false, "skip confirmation prompt")
}

func runDrop(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return dropAnalysis(args[0])
	}
	if cfg.Storage.Driver != storage.DriverSQLite {
		return fmt.Errorf("drop without a hash prefix only removes SQLite files; use 'fgframes sql' for %s", cfg.Storage.Driver)
	}
	path := sqlitePath()
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete: %s\n", path)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			fmt.Fprintln(os.Stdout, "Database does not exist, nothing to drop.")
			return nil
		}
		return fmt.Errorf("remove database: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Deleted: %s\n", path)
	return nil
}

func dropAnalysis(prefix string) error {
	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	rec, err := db.GetAnalysisByPrefix(prefix)
	if err != nil {
		return fmt.Errorf("query analysis: %w", err)
	}
	if rec == nil {
		fmt.Fprintf(os.Stderr, "No analysis found with hash prefix %q\n", prefix)
		return nil
	}
	if !dropForce {
		fmt.Fprintf(os.Stderr, "This will permanently delete analysis %s (%s).\n", rec.ShortHash(), rec.Label)
		fmt.Fprintf(os.Stderr, "Re-run with --force to confirm.\n")
		return nil
	}
	if _, err := db.DeleteAnalysis(rec.Hash); err != nil {
		return fmt.Errorf("delete analysis: %w", err)
	}
	fmt.Fprintf(os.Stdout, "Deleted analysis %s\n", rec.ShortHash())
	return nil
}
