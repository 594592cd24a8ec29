// Package service orchestrates LMS launch verification: protocol validation,
// signature verification, replay protection, identity resolution, and
// session issuance. Every verification failure is collapsed into one
// indistinguishable refusal before it leaves this package; the true reason
// goes to the log and the audit trail only.
package service

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/Menakta/op-skillsim-sub004/internal/audit"
	"github.com/Menakta/op-skillsim-sub004/internal/identity"
	"github.com/Menakta/op-skillsim-sub004/internal/launch/models"
	"github.com/Menakta/op-skillsim-sub004/internal/launch/signature"
	"github.com/Menakta/op-skillsim-sub004/internal/platform/metrics"
	"github.com/Menakta/op-skillsim-sub004/internal/replay"
	"github.com/Menakta/op-skillsim-sub004/internal/token"
	dErrors "github.com/Menakta/op-skillsim-sub004/pkg/domain-errors"
	"github.com/Menakta/op-skillsim-sub004/pkg/domain"
	"github.com/Menakta/op-skillsim-sub004/pkg/requestcontext"
)

// DefaultSessionTTL is the lifetime of a session minted from an LMS launch.
const DefaultSessionTTL = 8 * time.Hour

// Coarse reason classes for rejection metrics; the exact failing field is
// never exported as a label.
const (
	reasonMalformed = "malformed"
	reasonSignature = "signature"
	reasonReplay    = "replay"
	reasonUpstream  = "upstream"
)

// Result is a successfully verified launch: a minted session credential and
// where the browser should land.
type Result struct {
	Token        string
	Claims       *token.SessionClaims
	RedirectPath string
}

// Service verifies launches end to end.
type Service struct {
	consumerKey    string
	consumerSecret string
	guard          replay.Guard
	resolver       identity.Resolver
	issuer         *token.Issuer
	logger         *slog.Logger
	metrics        *metrics.Metrics
	audit          *audit.Publisher
	sessionTTL     time.Duration
	tracer         trace.Tracer
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records launch outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAudit emits security events for every accepted and rejected launch.
func WithAudit(p *audit.Publisher) Option {
	return func(s *Service) { s.audit = p }
}

// WithSessionTTL overrides the minted session lifetime.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// New constructs the launch service.
func New(
	consumerKey, consumerSecret string,
	guard replay.Guard,
	resolver identity.Resolver,
	issuer *token.Issuer,
	logger *slog.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		guard:          guard,
		resolver:       resolver,
		issuer:         issuer,
		logger:         logger,
		sessionTTL:     DefaultSessionTTL,
		tracer:         otel.Tracer("launch"),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Handle verifies one launch request signed against the given method and
// URL. The checks run cheapest first, and identity resolution only happens
// for a request that has already proven authentic.
func (s *Service) Handle(ctx context.Context, method, rawURL string, req *models.LaunchRequest) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "launch.Handle")
	defer span.End()

	if err := req.Validate(); err != nil {
		return nil, s.reject(ctx, span, req, reasonMalformed, err)
	}
	if req.ConsumerKey != s.consumerKey {
		return nil, s.reject(ctx, span, req, reasonMalformed,
			dErrors.New(dErrors.CodeUnauthorized, "unknown consumer key"))
	}
	if err := signature.Verify(method, rawURL, req.Params, s.consumerSecret); err != nil {
		return nil, s.reject(ctx, span, req, reasonSignature, err)
	}

	seen, err := s.guard.Seen(ctx, req.Nonce, req.Timestamp)
	if err != nil {
		// The store could not answer; treat the launch as replayed rather
		// than risk admitting a real replay.
		return nil, s.reject(ctx, span, req, reasonReplay,
			dErrors.Wrap(dErrors.CodeUnauthorized, "replay guard unavailable", err))
	}
	if seen {
		return nil, s.reject(ctx, span, req, reasonReplay,
			dErrors.New(dErrors.CodeUnauthorized, "nonce already consumed"))
	}

	ext := req.Identity()
	ident, err := s.resolver.Resolve(ctx, ext)
	if err != nil {
		// Not a verification failure: the launch is authentic but the user
		// store is down. Surfaced as an upstream fault, not a refusal.
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "identity resolution failed",
			"error", err,
			"lti_user_id", ext.LTIUserID,
		)
		s.countRejected(reasonUpstream)
		return nil, dErrors.Wrap(dErrors.CodeUpstream, "identity resolution failed", err)
	}

	signed, claims, err := s.issuer.IssueSession(ident.ID.String(), ident.Email, ident.Role, domain.SessionLTI, s.sessionTTL)
	if err != nil {
		span.RecordError(err)
		s.logger.ErrorContext(ctx, "session issuance failed", "error", err)
		s.countRejected(reasonUpstream)
		return nil, dErrors.Wrap(dErrors.CodeInternal, "session issuance failed", err)
	}

	s.logger.InfoContext(ctx, "launch verified",
		"subject", ident.ID,
		"role", ident.Role,
		"session_id", claims.SessionID(),
	)
	if s.metrics != nil {
		s.metrics.IncrementLaunchesVerified()
		s.metrics.IncrementCredentialsIssued(string(token.SchemeSession))
	}
	s.audit.Emit(ctx, audit.Event{
		Type:      audit.EventLaunchAccepted,
		Subject:   ident.ID.String(),
		SessionID: claims.SessionID(),
		Role:      ident.Role,
		ClientIP:  requestcontext.GetClientIP(ctx),
		UserAgent: requestcontext.GetUserAgent(ctx),
	})

	return &Result{
		Token:        signed,
		Claims:       claims,
		RedirectPath: landingPath(ident.Role),
	}, nil
}

// reject logs and audits the true failure reason, then returns the single
// collapsed refusal every failed launch gets.
func (s *Service) reject(ctx context.Context, span trace.Span, req *models.LaunchRequest, reason string, cause error) error {
	span.RecordError(cause)
	s.logger.WarnContext(ctx, "launch rejected",
		"error", cause,
		"reason", reason,
		"consumer_key", req.ConsumerKey,
		"nonce", req.Nonce,
	)
	s.countRejected(reason)
	s.audit.Emit(ctx, audit.Event{
		Type:      audit.EventLaunchRejected,
		Subject:   req.Params[models.ParamUserID],
		Reason:    cause.Error(),
		ClientIP:  requestcontext.GetClientIP(ctx),
		UserAgent: requestcontext.GetUserAgent(ctx),
	})
	return dErrors.New(dErrors.CodeUnauthorized, "invalid launch")
}

func (s *Service) countRejected(reason string) {
	if s.metrics != nil {
		s.metrics.IncrementLaunchesRejected(reason)
	}
}

func landingPath(role domain.Role) string {
	if role.Staff() {
		return "/dashboard"
	}
	return "/training"
}
