package logging

import (
	"io"
	"log/slog"
)

// New builds the standard process logger: JSON output through a
// SanitizingHandler, matching the teacher's log/slog-everywhere style
// (internal/app/runtime.go, cmd/daemon/main.go) with this repo's own
// redaction policy.
func New(w io.Writer, level slog.Level) *slog.Logger {
	base := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(WrapHandler(base))
}
