package telemetry

import (
	"log/slog"
	"os"
)

// InitSlog installs the default slog handler for CLIs and daemons.
// Debug mode also turns on request/response dumps in restyutil.
func InitSlog(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))
}
