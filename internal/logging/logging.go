// Package logging configures the process-wide zerolog logger from a
// LOG_LEVEL-style string, the way hyperifyio-goresearch wires zerolog's
// global logger once at startup and calls log.Info()/log.Warn() from
// everywhere else.
package logging

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init parses level (case-insensitive: DEBUG, INFO, WARN, ERROR) and installs
// it as the global zerolog level. An unrecognized level falls back to Info,
// logging a warning so misconfiguration is visible rather than silent.
func Init(level string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	parsed, err := zerolog.ParseLevel(level)
	if err != nil || parsed == zerolog.NoLevel {
		parsed = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(parsed)
	if err != nil {
		log.Warn().Str("requested_level", level).Msg("logging: unrecognized LOG_LEVEL, defaulting to info")
	}
}
