package app

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide slog.Logger. The ledger runs for a
// single operator, so human-readable text is the default; LOG_FORMAT=json
// switches to JSON for log shippers.
func NewLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{AddSource: true}
	if cfg != nil && cfg.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
