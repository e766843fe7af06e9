package internal

import (
	"log/slog"
	"os"
)

// Logger returns the process-wide *slog.Logger used by the remote
// transport and the plugin loader/runtime: debug-level text output to
// stderr when TEST_LOG is set in the environment (the same variable the
// plugin loader already propagates to spawned subprocesses), info-level
// otherwise.
func Logger() *slog.Logger {
	level := slog.LevelInfo
	if _, ok := os.LookupEnv("TEST_LOG"); ok {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
