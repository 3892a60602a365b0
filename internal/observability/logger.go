package observability

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	globalLogger zerolog.Logger
	initialized  bool
)

// InitLogger configures the global structured logger: JSON to stdout, or a
// console writer when pretty is set. Unknown levels fall back to info.
// Subsequent calls are no-ops, so callers may initialize lazily.
func InitLogger(level string, pretty bool) {
	if initialized {
		return
	}
	initialized = true

	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var out io.Writer = os.Stdout
	if pretty {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}

	globalLogger = zerolog.New(out).With().
		Timestamp().
		Str("service", "speechpipe").
		Logger()
	log.Logger = globalLogger
}

// GetLogger returns the global logger, initializing defaults if needed
func GetLogger() zerolog.Logger {
	if !initialized {
		InitLogger("info", false)
	}
	return globalLogger
}

// WithCorrelationID returns a logger tagged with the given correlation ID,
// generating one when empty
func WithCorrelationID(correlationID string) zerolog.Logger {
	if correlationID == "" {
		correlationID = NewCorrelationID()
	}
	return GetLogger().With().Str("correlation_id", correlationID).Logger()
}

// NewCorrelationID generates an ID for correlating the log lines of one
// stream or request
func NewCorrelationID() string {
	return uuid.New().String()
}
