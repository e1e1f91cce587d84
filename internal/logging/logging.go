package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/muesli/termenv"
	"github.com/rs/zerolog"
)

// New builds the root logger used by the daemon and CLI.
// Output is human-readable; level comes from VOICECLIP_LOG (debug|info|warn|error).
func New(out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stderr
	}

	writer := zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.Kitchen,
		NoColor:    noColor(out),
	}

	logger := zerolog.New(writer).With().Timestamp().Logger()
	return logger.Level(levelFromEnv())
}

// Component returns a child logger tagged with the component name.
func Component(logger zerolog.Logger, name string) zerolog.Logger {
	return logger.With().Str("component", name).Logger()
}

func noColor(out io.Writer) bool {
	if termenv.EnvNoColor() {
		return true
	}
	if f, ok := out.(*os.File); ok {
		return f != os.Stderr && f != os.Stdout
	}
	return true
}

func levelFromEnv() zerolog.Level {
	switch strings.ToLower(os.Getenv("VOICECLIP_LOG")) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
