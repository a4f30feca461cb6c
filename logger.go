package trafficlight

import (
	"context"
	"log/slog"
	"os"
)

var logLevel = new(slog.LevelVar)
var logger *slog.Logger

func init() {
	opts := slog.HandlerOptions{
		Level: logLevel,
	}
	logger = slog.New(slog.NewJSONHandler(os.Stderr, &opts))
	slog.SetDefault(logger)
}

func newLoggerFromContext(ctx context.Context) *slog.Logger {
	if t, ok := transitionFromContext(ctx); ok {
		return logger.With("phase", t.Phase, "seq", t.Seq)
	}
	return logger
}
