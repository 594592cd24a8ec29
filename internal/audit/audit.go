// Package audit captures security events from the auth perimeter: every
// verification failure with its true reason, every issuance, every gate
// refusal. Events never contain secrets or full token contents.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/Menakta/op-skillsim-sub004/pkg/domain"
)

// EventType names a security event.
type EventType string

const (
	EventLaunchAccepted   EventType = "launch_accepted"
	EventLaunchRejected   EventType = "launch_rejected"
	EventLoginSucceeded   EventType = "login_succeeded"
	EventLoginFailed      EventType = "login_failed"
	EventLogout           EventType = "logout"
	EventCredentialIssued EventType = "credential_issued"
	EventAccessForbidden  EventType = "access_forbidden"
)

// Event is one structured security event.
type Event struct {
	Type      EventType   `json:"type"`
	Subject   string      `json:"subject,omitempty"`
	SessionID string      `json:"session_id,omitempty"`
	Role      domain.Role `json:"role,omitempty"`
	// Reason carries the true, uncollapsed failure reason for rejections.
	Reason    string    `json:"reason,omitempty"`
	ClientIP  string    `json:"client_ip,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Sink receives emitted events.
type Sink interface {
	Write(ctx context.Context, event Event) error
}

// Publisher fans events out to the configured sinks. Sink failures are
// logged and swallowed: security telemetry must never block the auth path.
type Publisher struct {
	sinks  []Sink
	logger *slog.Logger
}

// NewPublisher constructs a publisher over the given sinks.
func NewPublisher(logger *slog.Logger, sinks ...Sink) *Publisher {
	return &Publisher{sinks: sinks, logger: logger}
}

// Emit timestamps and delivers the event to every sink.
func (p *Publisher) Emit(ctx context.Context, event Event) {
	if p == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	for _, sink := range p.sinks {
		if err := sink.Write(ctx, event); err != nil {
			p.logger.ErrorContext(ctx, "audit sink write failed",
				"error", err,
				"event_type", event.Type,
			)
		}
	}
}
