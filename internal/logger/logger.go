package logger

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Init initializes the global zerolog logger.
// format is "console" (human readable) or "json".
func Init(level, format string) error {
	return InitWithWriter(os.Stdout, level, format)
}

// InitWithWriter is Init with an explicit output, used by tests and the TUI client.
func InitWithWriter(out io.Writer, level, format string) error {
	lvl, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	if lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	var w io.Writer
	switch format {
	case "json":
		w = out
	case "", "console":
		w = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	default:
		return fmt.Errorf("unknown log format %q", format)
	}

	zerolog.SetGlobalLevel(lvl)
	log.Logger = zerolog.New(w).With().Timestamp().Logger()
	return nil
}

// Discard silences all logging.
func Discard() {
	log.Logger = zerolog.Nop()
}

// LogPanic logs a recovered panic with stack trace
func LogPanic(r any) {
	log.Error().
		Str("panic", fmt.Sprint(r)).
		Bytes("stack", debug.Stack()).
		Msg("recovered from panic")
}
