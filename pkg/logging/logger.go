// Package logging configures zerolog for the music service and adapts it to
// the bootstrap logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/goliatone/go-profiles"
)

// Config holds logging configuration.
type Config struct {
	Level  string
	Pretty bool
	Output io.Writer
}

// Setup configures the global zerolog logger and returns it. Unknown levels
// fall back to info.
func Setup(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.Pretty {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	return log.Logger
}

// ProfilesLogger forwards bootstrap diagnostics to logger. Events carrying
// an error are logged at error level, the rest at info.
func ProfilesLogger(logger zerolog.Logger) profiles.Logger {
	return profiles.LoggerFunc(func(event profiles.LogEvent) {
		var e *zerolog.Event
		if event.Err != nil {
			e = logger.Error().Err(event.Err)
		} else {
			e = logger.Info()
		}
		e.Str("component", "profiles").Str("stage", event.Stage).Fields(event.Fields).Msg(event.Message)
	})
}
