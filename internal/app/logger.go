package app

import (
	"io"
	"log/slog"

	"github.com/specialistvlad/dagwatch/internal/config"
)

// newLogger builds the run's logger from the resolved settings. It does not
// set the global logger. Settings are validated before they get here, so an
// unknown level falls back to info.
func newLogger(s config.Settings, logW io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if err := level.UnmarshalText([]byte(s.LogLevel)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler = slog.NewTextHandler(logW, opts)
	if s.LogFormat == "json" {
		handler = slog.NewJSONHandler(logW, opts)
	}
	return slog.New(handler).With("app", "dagwatch", "scheduler", s.Scheduler.Kind)
}
