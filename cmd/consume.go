package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/pable/fgframes/internal/ingest"
	"github.com/pable/fgframes/internal/pipeline"
	"github.com/pable/fgframes/internal/timeline"
)

var (
	consumeBrokers []string
	consumeTopic   string
	consumeLabel   string
	consumeP1      string
	consumeP2      string
)

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Read one timeline from Kafka, analyze and store it",
	Long: `Consume frame records (one JSON record per message) from the configured
Kafka topic until an empty message marks the end of the timeline, the
frame limit is hit or the timeout expires. The collected timeline is then
analyzed and stored like 'parse'.`,
	Args: cobra.NoArgs,
	RunE: runConsume,
}

func init() {
	consumeCmd.Flags().StringSliceVar(&consumeBrokers, "brokers", nil, "Kafka brokers (overrides config)")
	consumeCmd.Flags().StringVar(&consumeTopic, "topic", "", "Kafka topic (overrides config)")
	consumeCmd.Flags().StringVar(&consumeLabel, "label", "", "label for this match")
	consumeCmd.Flags().StringVar(&consumeP1, "p1", "", "P1 player name")
	consumeCmd.Flags().StringVar(&consumeP2, "p2", "", "P2 player name")
}

func runConsume(cmd *cobra.Command, args []string) error {
	kc := cfg.Kafka
	if len(consumeBrokers) > 0 {
		kc.Brokers = consumeBrokers
	}
	if consumeTopic != "" {
		kc.Topic = consumeTopic
	}
	if len(kc.Brokers) == 0 {
		return fmt.Errorf("no Kafka brokers: set kafka.brokers in the config or use --brokers")
	}

	db, err := openStorage()
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, kc.Timeout)
	defer cancel()

	reader := ingest.NewReader(kc)
	defer reader.Close()

	logger.Info().Strs("brokers", kc.Brokers).Str("topic", kc.Topic).Dur("timeout", kc.Timeout).Msg("consuming timeline")
	recs, err := ingest.Collect(ctx, reader, kc.MaxFrames, logger)
	if err != nil {
		return fmt.Errorf("consume timeline: %w", err)
	}
	tl, err := timeline.FromRecords(recs, cfg.Report.FPS)
	if err != nil {
		return fmt.Errorf("build timeline: %w", err)
	}

	a := pipeline.Run(newEngine(), tl)
	rec := a.Record(pipeline.Meta{
		Label:  consumeLabel,
		P1Name: consumeP1,
		P2Name: consumeP2,
		Source: "kafka",
		FPS:    cfg.Report.FPS,
	}, time.Now().UTC().Format(time.RFC3339))

	if err := db.InsertAnalysis(rec, a); err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}
	printAnalysis(os.Stdout, rec, a, parseWindows)
	return nil
}
