package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/fgframes/internal/model"
	"github.com/pable/fgframes/internal/report"
)

// playerCmd is the cobra command for cross-analysis aggregates of one or more players.
var playerCmd = &cobra.Command{
	Use:   "player <name> [<name>...]",
	Short: "Cross-analysis frame-data stats for one or more players",
	Long: `Aggregate every stored analysis where the named player appears as P1 or P2
(names match case-insensitively). Windows, whiffs, jumps and drive impacts are
counted from that player's side only.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlayer,
}

func runPlayer(cmd *cobra.Command, args []string) error {
	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	var found []model.PlayerAggregate
	for _, name := range args {
		agg, err := db.GetPlayerAggregate(name)
		if err != nil {
			return fmt.Errorf("query player %q: %w", name, err)
		}
		if agg == nil {
			fmt.Fprintf(os.Stderr, "No data found for player %q\n", name)
			continue
		}
		found = append(found, *agg)
	}
	for _, agg := range found {
		report.PrintPlayerAggregate(os.Stdout, agg)
	}
	return nil
}
