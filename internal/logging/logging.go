// Package logging builds the zerolog logger shared by the CLI, the HTTP
// server and the Kafka consumer.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// New returns a console logger writing to w (stderr when nil) at the given
// level. Unknown levels fall back to info.
func New(level string, w io.Writer) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || level == "" {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.TimeOnly,
	}).Level(lvl).With().Timestamp().Str("service", "fgframes").Logger()
}
