package cli

import (
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/kilnhq/kilnd/internal"
)

// Installs a tinted handler on the default logger, honoring the
// effective quiet, verbose, and debug modes.
func setDefaultLogger(f *os.File) {
	handler := tint.NewHandler(f, &tint.Options{
		Level:      logLevel(),
		TimeFormat: time.TimeOnly,
		NoColor:    !isatty(f),
		AddSource:  internal.IsVerbose(),
	})
	slog.SetDefault(slog.New(handler))
}

// Returns the log level derived from the effective modes.
func logLevel() slog.Level {
	switch {
	case internal.IsDebug():
		return slog.LevelDebug
	case internal.IsQuiet():
		return slog.LevelWarn
	default:
		return slog.LevelInfo
	}
}
