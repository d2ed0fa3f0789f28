package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"
)

var sqlCmd = &cobra.Command{
	Use:   "sql <query>",
	Short: "Run a raw SQL query against the analysis database",
	Long: `Run an arbitrary SQL query against the analysis database and print results as a table.

Schema overview:
  analyses(hash, label, p1_name, p2_name, source, frame_count, fps, analyzed_at,
    window_count, plus_on_block, minus_on_block, avg_on_block, median_on_block,
    whiffs, whiff_punishable, jumps, jump_punishable, drive_impacts)
  frames(analysis_hash, frame_id, ts, p1_state, p2_state, p1_can_act, p2_can_act,
    life_p1, life_p2, p1_action, p2_action)
  attack_windows(analysis_hash, seq, attacker, start_frame, end_frame,
    on_block_adv, whiff, punishable, source)
  events(analysis_hash, seq, event_type, frame_id, attacker, defender)
  punishable_jumps(analysis_hash, seq, player, start_frame, land_frame, punishable)
  insights(analysis_hash, seq, message)

Note: on_block_adv is -999 for whiffs. Booleans are stored as 0/1.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSQL,
}

func runSQL(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	cols, rows, err := db.QueryRaw(query)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Println("(no rows)")
		return nil
	}

	table := tablewriter.NewTable(os.Stdout, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))

	colsAny := make([]any, len(cols))
	for i, c := range cols {
		colsAny[i] = c
	}
	table.Header(colsAny...)

	for _, row := range rows {
		rowAny := make([]any, len(row))
		for i, v := range row {
			rowAny[i] = v
		}
		table.Append(rowAny...)
	}
	table.Render()
	fmt.Fprintf(os.Stdout, "\n(%d rows)\n", len(rows))
	return nil
}
