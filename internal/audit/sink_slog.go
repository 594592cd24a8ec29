package audit

import (
	"context"
	"log/slog"
)

// SlogSink writes events to the process logger. It is always configured so
// operators get the security trail even without a broker.
type SlogSink struct {
	logger *slog.Logger
}

// NewSlogSink constructs a sink over the given logger.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return &SlogSink{logger: logger}
}

func (s *SlogSink) Write(ctx context.Context, event Event) error {
	s.logger.InfoContext(ctx, "security event",
		"event_type", event.Type,
		"subject", event.Subject,
		"session_id", event.SessionID,
		"role", event.Role,
		"reason", event.Reason,
		"client_ip", event.ClientIP,
		"user_agent", event.UserAgent,
	)
	return nil
}
