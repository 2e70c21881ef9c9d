package audit

import (
	"context"
	"log/slog"
)

// LogSink writes events as structured log lines.
type LogSink struct {
	logger *slog.Logger
}

func NewLogSink(logger *slog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Append(ctx context.Context, e Event) error {
	s.logger.InfoContext(ctx, "audit",
		"category", e.Category,
		"action", e.Action,
		"subject", e.Subject,
		"client_id", e.ClientID,
		"sid", e.Sid,
		"lang_id", e.LangID,
		"reason", e.Reason,
		"request_id", e.RequestID,
		"timestamp", e.Timestamp,
	)
	return nil
}
