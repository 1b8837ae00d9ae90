// Package utils holds small helpers shared across packages.
package utils

import (
	"context"
	"log/slog"

	copilot "github.com/github/copilot-sdk/go"
)

// maxLoggedContent caps how much of a message body a debug line carries.
const maxLoggedContent = 512

// SessionToSlog is a copilot.SessionEventHandler that mirrors agent events
// into the debug log.
func SessionToSlog(event copilot.SessionEvent) {
	ctx := context.Background()
	logger := slog.Default()
	if !logger.Enabled(ctx, slog.LevelDebug) {
		return
	}

	attrs := append(make([]slog.Attr, 0, 6), slog.String("type", string(event.Type)))
	attrs = appendText(attrs, "content", event.Data.Content)
	attrs = appendText(attrs, "deltaContent", event.Data.DeltaContent)
	attrs = appendText(attrs, "toolName", event.Data.ToolName)
	attrs = appendText(attrs, "toolCallID", event.Data.ToolCallID)
	attrs = appendText(attrs, "message", event.Data.Message)

	logger.LogAttrs(ctx, slog.LevelDebug, "Agent event", attrs...)
}

// WarnAll logs each non-nil error in errs at warn level under msg.
func WarnAll(msg string, errs []error) {
	for _, err := range errs {
		if err == nil {
			continue
		}
		slog.Warn(msg, "error", err)
	}
}

func appendText(attrs []slog.Attr, key string, v *string) []slog.Attr {
	if v == nil {
		return attrs
	}
	s := *v
	if len(s) > maxLoggedContent {
		s = s[:maxLoggedContent] + "..."
	}
	return append(attrs, slog.String(key, s))
}
