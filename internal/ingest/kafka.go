// Package ingest collects timeline batches from Kafka.
package ingest

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/pable/fgframes/internal/config"
	"github.com/pable/fgframes/internal/timeline"
)

// MessageReader is the subset of *kafka.Reader used by Collect.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
}

// NewReader returns a consumer-group reader for the configured topic.
func NewReader(cfg config.KafkaConfig) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1e3,
		MaxBytes: 10e6,
	})
}

// Collect reads one frame record per message until a message with an empty
// value marks the end of the timeline, maxFrames records have been read, or
// ctx is done. Malformed records are logged and skipped. Records collected
// before ctx expired are returned without error; an empty batch returns
// timeline.ErrEmpty.
func Collect(ctx context.Context, r MessageReader, maxFrames int, logger zerolog.Logger) ([]timeline.Record, error) {
	var recs []timeline.Record
	for maxFrames <= 0 || len(recs) < maxFrames {
		m, err := r.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			logger.Warn().Err(err).Msg("kafka read error")
			continue
		}
		if len(m.Value) == 0 {
			logger.Debug().Int("frames", len(recs)).Msg("end of timeline marker")
			break
		}
		rec, err := timeline.DecodeRecord(m.Value)
		if err != nil {
			logger.Warn().Err(err).Int64("offset", m.Offset).Msg("skipping malformed frame record")
			continue
		}
		recs = append(recs, rec)
	}

	if len(recs) == 0 {
		if err := ctx.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, timeline.ErrEmpty
	}
	logger.Info().Int("frames", len(recs)).Msg("collected timeline batch")
	return recs, nil
}
