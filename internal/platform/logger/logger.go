package logger

import (
	"log/slog"
	"os"
)

// New returns the process-wide structured logger. JSON output keeps audit and
// operational logs machine-parseable; services receive this via options and
// never construct their own.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
