package observability

import (
	"io"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// NewLogger builds the process logger. dev gets a human readable console
// writer at debug level; anything else gets JSON at info.
func NewLogger(env string, out io.Writer) zerolog.Logger {
	dev := strings.EqualFold(env, "dev")
	level := zerolog.InfoLevel
	if dev {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339Nano
	if dev {
		return zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}
	return zerolog.New(out).With().Timestamp().Str("service", "boardquest").Logger()
}
