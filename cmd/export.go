package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/pable/fgframes/internal/report"
)

const (
	formatResults  = "results"
	formatPunish   = "punish"
	formatSegments = "segments"
)

var (
	exportFormat     string
	exportCSV        bool
	exportOut        string
	exportSegSeconds int
	exportDebug      int
)

var exportCmd = &cobra.Command{
	Use:   "export <hash-prefix>",
	Short: "Export a stored analysis as JSON or CSV",
	Long: `Write a stored analysis to stdout or a file.

Formats:
  results   full document: frame_data (windows + summary), insights, events
            and the first --debug-frames frames as debug_timeline (JSON only)
  punish    one row per whiff or jump the opponent could have punished
  segments  punish opportunities bucketed into --segment-seconds segments

Example:
  fgframes export 3fa2 --format punish --csv --out punish.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVar(&exportFormat, "format", formatResults, "results, punish or segments")
	exportCmd.Flags().BoolVar(&exportCSV, "csv", false, "write CSV instead of JSON (punish and segments only)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output file (default stdout)")
	exportCmd.Flags().IntVar(&exportSegSeconds, "segment-seconds", 0, "segment length in seconds (default from config)")
	exportCmd.Flags().IntVar(&exportDebug, "debug-frames", 0, "frames echoed in debug_timeline (default from config)")
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportCSV && exportFormat == formatResults {
		return fmt.Errorf("--csv is only supported for the punish and segments formats")
	}

	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	rec, a, err := db.LoadAnalysis(args[0])
	if err != nil {
		return fmt.Errorf("load analysis: %w", err)
	}
	if rec == nil {
		return fmt.Errorf("no analysis found with hash prefix %q", args[0])
	}

	var w io.Writer = os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	segSeconds := exportSegSeconds
	if segSeconds <= 0 {
		segSeconds = cfg.Report.SegmentSeconds
	}
	debugFrames := exportDebug
	if debugFrames <= 0 {
		debugFrames = cfg.Report.DebugFrames
	}

	switch exportFormat {
	case formatResults:
		doc := report.NewResultDocument(a.Result, a.Insights, a.Events, a.Frames, debugFrames)
		err = report.WriteJSON(w, doc)
	case formatPunish:
		rep := report.BuildPunishReport(a.Result.Summary, rec.FPS)
		if exportCSV {
			err = report.WritePunishCSV(w, rep)
		} else {
			err = report.WriteJSON(w, rep)
		}
	case formatSegments:
		rep := report.BuildPunishReport(a.Result.Summary, rec.FPS)
		segs := report.BuildSegments(rep.Rows, segSeconds)
		if exportCSV {
			err = report.WriteSegmentsCSV(w, segs)
		} else {
			err = report.WriteJSON(w, segs)
		}
	default:
		return fmt.Errorf("unknown format %q (want results, punish or segments)", exportFormat)
	}
	if err != nil {
		return fmt.Errorf("write %s: %w", exportFormat, err)
	}
	if exportOut != "" {
		fmt.Fprintf(os.Stderr, "Wrote %s export of %s to %s\n", exportFormat, rec.ShortHash(), exportOut)
	}
	return nil
}
