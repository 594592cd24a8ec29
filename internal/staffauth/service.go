// Package staffauth implements the direct email/password login path for
// teacher and admin accounts. Trainees never log in directly; their only way
// in is a signed LMS launch.
package staffauth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/Menakta/op-skillsim-sub004/internal/audit"
	"github.com/Menakta/op-skillsim-sub004/internal/identity"
	"github.com/Menakta/op-skillsim-sub004/internal/platform/metrics"
	"github.com/Menakta/op-skillsim-sub004/internal/token"
	dErrors "github.com/Menakta/op-skillsim-sub004/pkg/domain-errors"
	"github.com/Menakta/op-skillsim-sub004/pkg/domain"
	"github.com/Menakta/op-skillsim-sub004/pkg/platform/sentinel"
	"github.com/Menakta/op-skillsim-sub004/pkg/requestcontext"
)

// Session lifetimes per staff role. Admin sessions are deliberately short.
const (
	DefaultTeacherTTL = 24 * time.Hour
	DefaultAdminTTL   = time.Hour
)

// errInvalidCredentials is the single refusal every failed login gets. An
// unknown email and a wrong password are indistinguishable to the caller.
var errInvalidCredentials = dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")

// Result is a successful staff login.
type Result struct {
	Token        string
	Claims       *token.SessionClaims
	RedirectPath string
}

// Service authenticates staff accounts against the identity store.
type Service struct {
	store      identity.StaffStore
	issuer     *token.Issuer
	logger     *slog.Logger
	metrics    *metrics.Metrics
	audit      *audit.Publisher
	teacherTTL time.Duration
	adminTTL   time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithMetrics records issued credentials.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithAudit emits security events for every login attempt.
func WithAudit(p *audit.Publisher) Option {
	return func(s *Service) { s.audit = p }
}

// WithTeacherTTL overrides the teacher session lifetime.
func WithTeacherTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.teacherTTL = ttl
		}
	}
}

// WithAdminTTL overrides the admin session lifetime.
func WithAdminTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.adminTTL = ttl
		}
	}
}

// New constructs the staff login service.
func New(store identity.StaffStore, issuer *token.Issuer, logger *slog.Logger, opts ...Option) *Service {
	s := &Service{
		store:      store,
		issuer:     issuer,
		logger:     logger,
		teacherTTL: DefaultTeacherTTL,
		adminTTL:   DefaultAdminTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Login verifies an email/password pair and mints a staff session.
func (s *Service) Login(ctx context.Context, email, password string) (*Result, error) {
	if email == "" || password == "" {
		return nil, s.fail(ctx, email, "missing email or password")
	}

	ident, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, s.fail(ctx, email, "unknown account")
		}
		s.logger.ErrorContext(ctx, "staff lookup failed", "error", err)
		return nil, dErrors.Wrap(dErrors.CodeUpstream, "account lookup failed", err)
	}

	if !ident.Role.Staff() || ident.PasswordHash == "" {
		return nil, s.fail(ctx, email, "account has no direct login")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(ident.PasswordHash), []byte(password)); err != nil {
		return nil, s.fail(ctx, email, "password mismatch")
	}

	sessionType, ttl := s.sessionFor(ident.Role)
	signed, claims, err := s.issuer.IssueSession(ident.ID.String(), ident.Email, ident.Role, sessionType, ttl)
	if err != nil {
		s.logger.ErrorContext(ctx, "session issuance failed", "error", err)
		return nil, dErrors.Wrap(dErrors.CodeInternal, "session issuance failed", err)
	}

	s.logger.InfoContext(ctx, "staff login succeeded",
		"subject", ident.ID,
		"role", ident.Role,
		"session_id", claims.SessionID(),
	)
	if s.metrics != nil {
		s.metrics.IncrementCredentialsIssued(string(token.SchemeSession))
	}
	s.audit.Emit(ctx, audit.Event{
		Type:      audit.EventLoginSucceeded,
		Subject:   ident.ID.String(),
		SessionID: claims.SessionID(),
		Role:      ident.Role,
		ClientIP:  requestcontext.GetClientIP(ctx),
		UserAgent: requestcontext.GetUserAgent(ctx),
	})

	return &Result{Token: signed, Claims: claims, RedirectPath: "/dashboard"}, nil
}

// Logout records a session ending. Cookie clearing is transport concern; the
// event trail is ours.
func (s *Service) Logout(ctx context.Context, principal requestcontext.Principal) {
	s.logger.InfoContext(ctx, "logout", "subject", principal.UserID, "session_id", principal.SessionID)
	s.audit.Emit(ctx, audit.Event{
		Type:      audit.EventLogout,
		Subject:   principal.UserID,
		SessionID: principal.SessionID,
		Role:      principal.Role,
		ClientIP:  requestcontext.GetClientIP(ctx),
		UserAgent: requestcontext.GetUserAgent(ctx),
	})
}

func (s *Service) fail(ctx context.Context, email, reason string) error {
	s.logger.WarnContext(ctx, "staff login rejected", "email", email, "reason", reason)
	s.audit.Emit(ctx, audit.Event{
		Type:      audit.EventLoginFailed,
		Subject:   email,
		Reason:    reason,
		ClientIP:  requestcontext.GetClientIP(ctx),
		UserAgent: requestcontext.GetUserAgent(ctx),
	})
	return errInvalidCredentials
}

func (s *Service) sessionFor(role domain.Role) (domain.SessionType, time.Duration) {
	if role == domain.RoleAdmin {
		return domain.SessionAdmin, s.adminTTL
	}
	return domain.SessionTeacher, s.teacherTTL
}
