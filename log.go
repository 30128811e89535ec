package bridge

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

const defaultLogLevel = zerolog.InfoLevel

// Diagnostics go to stderr; stdout carries the typed character stream.
var (
	rootLogger   = newRootLogger(os.Stderr)
	serialLogger = subsystemLogger("serial")
	engineLogger = subsystemLogger("chatpad")
	outputLogger = subsystemLogger("output")
	webLogger    = subsystemLogger("web")
	jobsLogger   = subsystemLogger("jobs")
	configLogger = subsystemLogger("config")
	macroLogger  = subsystemLogger("macros")
	natsLogger   = subsystemLogger("nats")
)

func newRootLogger(w io.Writer) zerolog.Logger {
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		w = zerolog.ConsoleWriter{Out: f, TimeFormat: time.RFC3339}
	}
	return zerolog.New(w).With().Timestamp().Logger().Level(zerolog.TraceLevel)
}

func subsystemLogger(name string) *zerolog.Logger {
	l := rootLogger.With().Str("subsystem", name).Logger()
	return &l
}

// setLogLevel applies level globally; unknown names fall back to info.
func setLogLevel(level string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || parsed == zerolog.NoLevel {
		if level != "" {
			configLogger.Warn().Str("level", level).Msg("unknown log level, using default")
		}
		parsed = defaultLogLevel
	}
	zerolog.SetGlobalLevel(parsed)
	return parsed
}
