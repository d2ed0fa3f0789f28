package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/spf13/cobra"

	"github.com/pable/fgframes/internal/model"
	"github.com/pable/fgframes/internal/pipeline"
	"github.com/pable/fgframes/internal/report"
)

const analyzeSystemPrompt = `You are a fighting-game (Street Fighter 6 style) coach. You are given structured
frame-data output from a timeline analysis tool and a question from the player.

Rules:
- Answer ONLY from the data provided. Never invent frame data or move names.
- Always cite specific numbers when making a claim.
- If the data is insufficient to answer confidently, say so explicitly.
- Be concise and actionable: focus on what the player can actually change.
- Avoid generic advice unless it directly explains a pattern in the data.

Glossary:
- on_block_adv: frames the attacker can act before (+) or after (-) the defender
  once the blocked attack ends. -999 marks a whiff and is never averaged.
- plus/minus on block: count of windows with advantage > 0 / < 0.
- whiff: attack that stayed open longer than the whiff timeout without connecting.
  Punishable when the opponent could act within 4 frames of its end.
- punishable jump: the opponent could act within 3 frames of the landing.
- drive impact: a hit landed while the attacker was in drive state.
- heuristic windows: advantage estimated from the event type (hit +10, block +2)
  because the state timeline could not resolve it.`

var (
	analyzeModel  string
	analyzeAPIKey string
	analyzeLast   int
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <hash-prefix> <question>",
	Short: "AI-powered grounded coaching for one analysis (requires ANTHROPIC_API_KEY)",
	Args:  cobra.ExactArgs(2),
	RunE:  runAnalyzeMatch,
}

var analyzePlayerCmd = &cobra.Command{
	Use:   "player <name> <question>",
	Short: "Analyze a player's cross-analysis stats with AI",
	Args:  cobra.ExactArgs(2),
	RunE:  runAnalyzePlayer,
}

func init() {
	analyzeCmd.PersistentFlags().StringVar(&analyzeModel, "model", "", "Anthropic model to use (default from config)")
	analyzeCmd.PersistentFlags().StringVar(&analyzeAPIKey, "api-key", "", "Anthropic API key (falls back to $ANTHROPIC_API_KEY)")
	analyzePlayerCmd.Flags().IntVar(&analyzeLast, "last", 10, "include the N most recent analyses as a trend")

	analyzeCmd.AddCommand(analyzePlayerCmd)
}

func runAnalyzeMatch(cmd *cobra.Command, args []string) error {
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

	contextJSON, err := buildMatchContext(*rec, a)
	if err != nil {
		return fmt.Errorf("build context: %w", err)
	}
	return callAnthropic(cmd.Context(), contextJSON, args[1])
}

func runAnalyzePlayer(cmd *cobra.Command, args []string) error {
	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	agg, err := db.GetPlayerAggregate(args[0])
	if err != nil {
		return fmt.Errorf("query player: %w", err)
	}
	if agg == nil {
		return fmt.Errorf("no data found for player %q", args[0])
	}
	trend, err := db.GetTrend(0)
	if err != nil {
		return fmt.Errorf("query trend: %w", err)
	}

	contextJSON, err := buildPlayerContext(*agg, filterByPlayer(trend, agg.Name, analyzeLast))
	if err != nil {
		return fmt.Errorf("build context: %w", err)
	}
	return callAnthropic(cmd.Context(), contextJSON, args[1])
}

// buildMatchContext serialises one analysis into compact JSON.
func buildMatchContext(rec model.AnalysisRecord, a *pipeline.Analysis) (string, error) {
	rep := report.BuildPunishReport(a.Result.Summary, rec.FPS)

	bySide := map[model.Side]map[string]int{}
	for _, side := range model.Sides {
		bySide[side] = map[string]int{"windows": 0, "plus": 0, "minus": 0, "whiffs": 0}
	}
	for _, w := range a.Result.Windows {
		s := bySide[w.Attacker]
		if s == nil {
			continue
		}
		s["windows"]++
		switch {
		case w.IsWhiff():
			s["whiffs"]++
		case w.OnBlockAdv > 0:
			s["plus"]++
		case w.OnBlockAdv < 0:
			s["minus"]++
		}
	}

	doc := map[string]interface{}{
		"subject": "match",
		"label":   rec.Label,
		"players": map[string]string{
			"P1": rec.PlayerName(model.SideP1),
			"P2": rec.PlayerName(model.SideP2),
		},
		"frames": rec.FrameCount,
		"fps":    rec.FPS,
		"summary": map[string]interface{}{
			"windows":          rec.WindowCount,
			"plus_on_block":    rec.PlusOnBlock,
			"minus_on_block":   rec.MinusOnBlock,
			"avg_on_block":     round2(rec.AvgOnBlock),
			"median_on_block":  round2(rec.MedianOnBlock),
			"whiffs":           rec.Whiffs,
			"whiff_punishable": rec.WhiffPunishable,
			"jumps":            rec.Jumps,
			"jump_punishable":  rec.JumpPunishable,
			"drive_impacts":    rec.DriveImpacts,
		},
		"by_side":        bySide,
		"insights":       a.Insights,
		"punish_counts":  rep.Counts,
		"punish_samples": firstRows(rep.Rows, 20),
	}

	b, err := json.Marshal(doc)
	return string(b), err
}

// buildPlayerContext serialises a player aggregate plus their recent analyses.
func buildPlayerContext(agg model.PlayerAggregate, recent []model.AnalysisRecord) (string, error) {
	type trendEntry struct {
		Date       string  `json:"date"`
		Label      string  `json:"label"`
		Side       string  `json:"side"`
		AvgOnBlock float64 `json:"avg_on_block_match"`
		Whiffs     string  `json:"whiff_punishable_match"`
	}
	trend := make([]trendEntry, 0, len(recent))
	for _, r := range recent {
		side := "P1"
		if !strings.EqualFold(r.P1Name, agg.Name) {
			side = "P2"
		}
		trend = append(trend, trendEntry{
			Date:       r.AnalyzedAt,
			Label:      r.Label,
			Side:       side,
			AvgOnBlock: round2(r.AvgOnBlock),
			Whiffs:     fmt.Sprintf("%d/%d", r.WhiffPunishable, r.Whiffs),
		})
	}

	doc := map[string]interface{}{
		"subject":          "player",
		"player":           agg.Name,
		"analyses":         agg.Analyses,
		"windows":          agg.Windows,
		"plus_on_block":    agg.PlusOnBlock,
		"minus_on_block":   agg.MinusOnBlock,
		"avg_on_block":     round2(agg.AvgOnBlock()),
		"whiffs":           agg.Whiffs,
		"whiff_punish_pct": round2(agg.WhiffPunishPct()),
		"jumps":            agg.Jumps,
		"jump_punish_pct":  round2(agg.JumpPunishPct()),
		"drive_impacts":    agg.DriveImpacts,
		"recent_analyses":  trend,
		"trend_note":       "per-analysis numbers cover both sides of each match",
	}

	b, err := json.Marshal(doc)
	return string(b), err
}

// filterByPlayer keeps the last n chronological analyses featuring name.
func filterByPlayer(recs []model.AnalysisRecord, name string, n int) []model.AnalysisRecord {
	var out []model.AnalysisRecord
	for _, r := range recs {
		if strings.EqualFold(r.P1Name, name) || strings.EqualFold(r.P2Name, name) {
			out = append(out, r)
		}
	}
	if n > 0 && len(out) > n {
		out = out[len(out)-n:]
	}
	return out
}

func firstRows(rows []report.PunishRow, n int) []report.PunishRow {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}

// round2 rounds a float64 to 2 decimal places.
func round2(v float64) float64 {
	if v < 0 {
		return -float64(int(-v*100+0.5)) / 100
	}
	return float64(int(v*100+0.5)) / 100
}

// callAnthropic streams a response from the Anthropic API and prints it to stdout.
func callAnthropic(ctx context.Context, dataJSON, question string) error {
	apiKey := analyzeAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	if apiKey == "" {
		return fmt.Errorf("no API key: set ANTHROPIC_API_KEY or use --api-key")
	}
	modelID := analyzeModel
	if modelID == "" {
		modelID = cfg.AI.Model
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))

	userMsg := fmt.Sprintf("DATA:\n%s\n\nQUESTION: %s", dataJSON, question)
	logger.Debug().Str("model", modelID).Int("context_bytes", len(dataJSON)).Msg("calling Anthropic")

	fmt.Fprintln(os.Stdout, "\n─── AI Coaching ─────────────────────────────────────")

	stream := client.Messages.NewStreaming(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(modelID),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: analyzeSystemPrompt},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userMsg)),
		},
	})

	for stream.Next() {
		evt := stream.Current()
		if evt.Type == "content_block_delta" {
			delta := evt.AsContentBlockDelta()
			if delta.Delta.Type == "text_delta" {
				fmt.Fprint(os.Stdout, delta.Delta.AsTextDelta().Text)
			}
		}
	}
	fmt.Fprintln(os.Stdout, "\n─────────────────────────────────────────────────────")

	if err := stream.Err(); err != nil {
		errStr := err.Error()
		if strings.Contains(errStr, "401") || strings.Contains(errStr, "authentication") {
			return fmt.Errorf("API authentication failed: check your API key")
		}
		return fmt.Errorf("streaming error: %w", err)
	}
	return nil
}
