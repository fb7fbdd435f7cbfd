// Package telemetry builds the sidecar's structured logger, following the
// same slog.NewTextHandler pairing the teacher's own services wire up
// around connect.LogWriter.
package telemetry

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns a text-handler slog.Logger writing to w. Pass nil to
// default to os.Stderr, matching the teacher's own "log output goes to
// Stdout/Stderr unless something upstream redirects it" convention.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
