package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/fgframes/internal/model"
	"github.com/pable/fgframes/internal/pipeline"
	"github.com/pable/fgframes/internal/report"
	"github.com/pable/fgframes/internal/storage"
	"github.com/pable/fgframes/internal/timeline"
)

var (
	parseLabel   string
	parseP1      string
	parseP2      string
	parseFPS     float64
	parseWindows int
)

var parseCmd = &cobra.Command{
	Use:   "parse <timeline.json|.jsonl|.zst>",
	Short: "Analyze a frame timeline and store the results",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	parseCmd.Flags().StringVar(&parseLabel, "label", "", "label for this match (e.g. event or set name)")
	parseCmd.Flags().StringVar(&parseP1, "p1", "", "P1 player name")
	parseCmd.Flags().StringVar(&parseP2, "p2", "", "P2 player name")
	parseCmd.Flags().Float64Var(&parseFPS, "fps", 0, "frame rate used to derive timestamps (default from config)")
	parseCmd.Flags().IntVar(&parseWindows, "windows", 40, "max attack windows to print (0 = all)")
}

func runParse(cmd *cobra.Command, args []string) error {
	path := args[0]
	fps := parseFPS
	if fps <= 0 {
		fps = cfg.Report.FPS
	}

	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Fprintf(os.Stdout, "Analyzing %s...\n", path)
	tl, err := timeline.Load(path, fps)
	if err != nil {
		return fmt.Errorf("load timeline: %w", err)
	}
	logger.Debug().Str("hash", tl.Hash).Int("frames", len(tl.Frames)).Msg("timeline loaded")

	exists, err := db.AnalysisExists(tl.Hash)
	if err != nil {
		return fmt.Errorf("check analysis: %w", err)
	}
	if exists {
		fmt.Fprintf(os.Stdout, "Timeline %s already analyzed; showing stored results.\n", tl.Hash[:12])
		return showByHash(db, tl.Hash)
	}

	a := pipeline.Run(newEngine(), tl)
	rec := a.Record(pipeline.Meta{
		Label:  parseLabel,
		P1Name: parseP1,
		P2Name: parseP2,
		Source: "file",
		FPS:    fps,
	}, time.Now().UTC().Format(time.RFC3339))

	if err := db.InsertAnalysis(rec, a); err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	logger.Debug().Str("hash", rec.Hash).Int("windows", rec.WindowCount).Msg("analysis stored")

	printAnalysis(os.Stdout, rec, a, parseWindows)
	return nil
}

func showByHash(db *storage.DB, hash string) error {
	rec, a, err := db.LoadAnalysis(hash)
	if err != nil {
		return fmt.Errorf("load analysis: %w", err)
	}
	if rec == nil {
		return fmt.Errorf("analysis not found: %s", hash)
	}
	printAnalysis(os.Stdout, *rec, a, parseWindows)
	return nil
}

func printAnalysis(w io.Writer, rec model.AnalysisRecord, a *pipeline.Analysis, windowLimit int) {
	report.PrintAnalysisSummary(w, rec)
	if len(a.Result.Windows) > 0 {
		fmt.Fprintln(w, "\nAttack windows:")
		report.PrintWindowTable(w, a.Result.Windows, windowLimit)
	}
	if len(a.Result.Summary.PunishableJumps) > 0 {
		fmt.Fprintln(w, "\nJumps:")
		report.PrintJumpTable(w, a.Result.Summary.PunishableJumps)
	}
	report.PrintInsights(w, a.Insights)
}
