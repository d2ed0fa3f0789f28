package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/pable/fgframes/internal/insights"
	"github.com/pable/fgframes/internal/model"
)

var (
	cInsight = color.New(color.FgYellow)
	cOK      = color.New(color.FgGreen)
)

func newTable(w io.Writer) *tablewriter.Table {
	return tablewriter.NewTable(w, tablewriter.WithConfig(tablewriter.Config{
		Row:    tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignRight}},
		Header: tw.CellConfig{Alignment: tw.CellAlignment{Global: tw.AlignCenter}},
	}))
}

// PrintAnalysisSummary prints a header line and the aggregate frame-data numbers.
func PrintAnalysisSummary(w io.Writer, r model.AnalysisRecord) {
	label := r.Label
	if label == "" {
		label = "—"
	}
	fmt.Fprintf(w, "\nLabel: %s  |  %s vs %s  |  Frames: %d  |  Source: %s  |  Hash: %s\n\n",
		label, r.PlayerName(model.SideP1), r.PlayerName(model.SideP2), r.FrameCount, r.Source, r.ShortHash())

	table := newTable(w)
	table.Header("WINDOWS", "PLUS", "MINUS", "AVG_ADV", "MEDIAN_ADV", "WHIFFS", "WHIFF_PUN", "JUMPS", "JUMP_PUN", "DRIVE_IMP")
	table.Append(
		strconv.Itoa(r.WindowCount),
		strconv.Itoa(r.PlusOnBlock),
		strconv.Itoa(r.MinusOnBlock),
		fmtAdv(r.AvgOnBlock),
		fmtAdv(r.MedianOnBlock),
		strconv.Itoa(r.Whiffs),
		strconv.Itoa(r.WhiffPunishable),
		strconv.Itoa(r.Jumps),
		strconv.Itoa(r.JumpPunishable),
		strconv.Itoa(r.DriveImpacts),
	)
	table.Render()
}

// PrintWindowTable prints attack windows in result order. limit <= 0 prints all.
func PrintWindowTable(w io.Writer, windows []model.AttackWindow, limit int) {
	table := newTable(w)
	table.Header("ATTACKER", "START", "END", "ADV", "WHIFF", "PUNISHABLE", "SOURCE")

	for i, win := range windows {
		if limit > 0 && i >= limit {
			break
		}
		end := "—"
		if win.End != nil {
			end = strconv.Itoa(*win.End)
		}
		adv := fmt.Sprintf("%+d", win.OnBlockAdv)
		if win.IsWhiff() {
			adv = "whiff"
		}
		table.Append(
			string(win.Attacker),
			strconv.Itoa(win.Start),
			end,
			adv,
			yesNo(win.Whiff),
			yesNo(win.Punishable),
			string(win.Source),
		)
	}
	table.Render()
	if limit > 0 && len(windows) > limit {
		fmt.Fprintf(w, "(%d more windows not shown)\n", len(windows)-limit)
	}
}

// PrintJumpTable prints every detected jump.
func PrintJumpTable(w io.Writer, jumps []model.PunishableJump) {
	if len(jumps) == 0 {
		fmt.Fprintln(w, "No jumps detected.")
		return
	}
	table := newTable(w)
	table.Header("PLAYER", "START", "LAND", "AIR", "PUNISHABLE")
	for _, j := range jumps {
		table.Append(
			string(j.Player),
			strconv.Itoa(j.Start),
			strconv.Itoa(j.Land),
			strconv.Itoa(j.Land-j.Start),
			yesNo(j.Punishable),
		)
	}
	table.Render()
}

// PrintInsights prints the insight list; advice is highlighted, the
// all-clear message is green.
func PrintInsights(w io.Writer, msgs []string) {
	fmt.Fprintln(w, "\nInsights:")
	for i, m := range msgs {
		c := cInsight
		if m == insights.MsgNoWeakness {
			c = cOK
		}
		c.Fprintf(w, "  %d. %s\n", i+1, m)
	}
}

// PrintAnalysisList prints one row per stored analysis.
func PrintAnalysisList(w io.Writer, recs []model.AnalysisRecord) {
	table := newTable(w)
	table.Header("HASH", "ANALYZED", "LABEL", "P1", "P2", "FRAMES", "WINDOWS", "AVG_ADV", "WHIFF_PUN", "JUMP_PUN")
	for _, r := range recs {
		table.Append(
			r.ShortHash(),
			dateOnly(r.AnalyzedAt),
			r.Label,
			r.PlayerName(model.SideP1),
			r.PlayerName(model.SideP2),
			strconv.Itoa(r.FrameCount),
			strconv.Itoa(r.WindowCount),
			fmtAdv(r.AvgOnBlock),
			fmt.Sprintf("%d/%d", r.WhiffPunishable, r.Whiffs),
			fmt.Sprintf("%d/%d", r.JumpPunishable, r.Jumps),
		)
	}
	table.Render()
}

// PrintOverview prints database-wide totals.
func PrintOverview(w io.Writer, o model.DBOverview) {
	fmt.Fprintf(w, "Analyses:  %d\n", o.TotalAnalyses)
	fmt.Fprintf(w, "Frames:    %d\n", o.TotalFrames)
	fmt.Fprintf(w, "Windows:   %d\n", o.TotalWindows)
	fmt.Fprintf(w, "Whiffs:    %d\n", o.TotalWhiffs)
	fmt.Fprintf(w, "Jumps:     %d\n", o.TotalJumps)
	if o.TotalAnalyses > 0 {
		fmt.Fprintf(w, "Range:     %s → %s\n", dateOnly(o.Earliest), dateOnly(o.Latest))
	}
}

// PrintTrendTable prints analyses in chronological order with the change in
// average advantage from the previous one.
func PrintTrendTable(w io.Writer, recs []model.AnalysisRecord) {
	table := newTable(w)
	table.Header("#", "DATE", "LABEL", "AVG_ADV", "Δ", "PLUS", "MINUS", "WHIFF_PUN%", "JUMP_PUN%")
	for i, r := range recs {
		delta := "—"
		if i > 0 {
			delta = fmt.Sprintf("%+.2f", r.AvgOnBlock-recs[i-1].AvgOnBlock)
		}
		table.Append(
			strconv.Itoa(i+1),
			dateOnly(r.AnalyzedAt),
			r.Label,
			fmtAdv(r.AvgOnBlock),
			delta,
			strconv.Itoa(r.PlusOnBlock),
			strconv.Itoa(r.MinusOnBlock),
			pct(r.WhiffPunishable, r.Whiffs),
			pct(r.JumpPunishable, r.Jumps),
		)
	}
	table.Render()
}

// PrintPlayerAggregate prints a named player's cross-analysis stats.
func PrintPlayerAggregate(w io.Writer, a model.PlayerAggregate) {
	table := newTable(w)
	table.Header("PLAYER", "ANALYSES", "WINDOWS", "PLUS", "MINUS", "AVG_ADV", "WHIFFS", "WHIFF_PUN%", "JUMPS", "JUMP_PUN%", "DRIVE_IMP")
	table.Append(
		a.Name,
		strconv.Itoa(a.Analyses),
		strconv.Itoa(a.Windows),
		strconv.Itoa(a.PlusOnBlock),
		strconv.Itoa(a.MinusOnBlock),
		fmtAdv(a.AvgOnBlock()),
		strconv.Itoa(a.Whiffs),
		pct(a.WhiffPunishable, a.Whiffs),
		strconv.Itoa(a.Jumps),
		pct(a.JumpPunishable, a.Jumps),
		strconv.Itoa(a.DriveImpacts),
	)
	table.Render()
}

func fmtAdv(v float64) string {
	return fmt.Sprintf("%+.2f", v)
}

func pct(n, d int) string {
	if d == 0 {
		return "—"
	}
	return fmt.Sprintf("%.0f%%", float64(n)/float64(d)*100)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

func dateOnly(ts string) string {
	if len(ts) >= 10 {
		return ts[:10]
	}
	return ts
}
