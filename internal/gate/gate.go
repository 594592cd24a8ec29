// Package gate is the single request interceptor enforcing route admission.
// It classifies the path, verifies the session cookie, and either admits the
// request with validated claims in context or denies it. Handlers behind the
// gate never re-implement cookie reading or role checks.
package gate

import (
	"log/slog"
	"net/http"
	"net/url"

	"github.com/Menakta/op-skillsim-sub004/internal/audit"
	"github.com/Menakta/op-skillsim-sub004/internal/platform/metrics"
	"github.com/Menakta/op-skillsim-sub004/internal/token"
	dErrors "github.com/Menakta/op-skillsim-sub004/pkg/domain-errors"
	"github.com/Menakta/op-skillsim-sub004/pkg/platform/httputil"
	"github.com/Menakta/op-skillsim-sub004/pkg/requestcontext"
)

const (
	loginPath = "/auth/login"
	homePath  = "/training"
)

// SessionVerifier validates a session cookie credential.
type SessionVerifier interface {
	VerifySession(tokenString string) (*token.SessionClaims, error)
}

// Gate decides admission for every inbound request.
type Gate struct {
	verifier SessionVerifier
	logger   *slog.Logger
	metrics  *metrics.Metrics
	audit    *audit.Publisher
	secure   bool
}

// Option configures a Gate.
type Option func(*Gate)

// WithMetrics records gate decisions.
func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gate) { g.metrics = m }
}

// WithAudit emits security events for forbidden requests.
func WithAudit(p *audit.Publisher) Option {
	return func(g *Gate) { g.audit = p }
}

// WithSecureCookies marks cleared cookies Secure (production).
func WithSecureCookies(secure bool) Option {
	return func(g *Gate) { g.secure = secure }
}

// New constructs the gate.
func New(verifier SessionVerifier, logger *slog.Logger, opts ...Option) *Gate {
	g := &Gate{verifier: verifier, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Middleware wraps the application router with the admission decision.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		class := Classify(r.URL.Path)

		cookie, cookieErr := r.Cookie(SessionCookieName)
		var claims *token.SessionClaims
		var verifyErr error
		if cookieErr == nil && cookie.Value != "" {
			claims, verifyErr = g.verifier.VerifySession(cookie.Value)
		}

		if class == RoutePublic {
			g.count("admit")
			if claims != nil {
				r = r.WithContext(requestcontext.WithPrincipal(r.Context(), principal(claims)))
			}
			next.ServeHTTP(w, r)
			return
		}

		// No credential, or a credential that failed verification. A bad
		// cookie is cleared on the denying response either way.
		if claims == nil {
			if verifyErr != nil {
				g.logger.WarnContext(r.Context(), "access denied - invalid session",
					"error", verifyErr,
					"path", r.URL.Path,
				)
				ClearSessionCookie(w, g.secure)
			}
			g.deny(w, r, class)
			return
		}

		if (class == RouteStaffPage || class == RouteStaffAPI) && !claims.Role.Staff() {
			g.forbid(w, r, class, claims)
			return
		}

		g.count("admit")
		r = r.WithContext(requestcontext.WithPrincipal(r.Context(), principal(claims)))
		next.ServeHTTP(w, r)
	})
}

// deny handles missing or invalid credentials per route class: pages bounce
// to login carrying the original path, APIs get a structured 401.
func (g *Gate) deny(w http.ResponseWriter, r *http.Request, class RouteClass) {
	switch class {
	case RouteStaffAPI, RouteAPI:
		g.count("reject_unauthenticated")
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "session invalid"))
	default:
		g.count("redirect_login")
		http.Redirect(w, r, loginPath+"?next="+url.QueryEscape(r.URL.Path), http.StatusFound)
	}
}

// forbid handles authenticated callers whose role is insufficient. This is
// surfaced distinctly (403 / home redirect): the caller already proved
// identity, so the refusal leaks nothing.
func (g *Gate) forbid(w http.ResponseWriter, r *http.Request, class RouteClass, claims *token.SessionClaims) {
	g.logger.WarnContext(r.Context(), "access denied - insufficient role",
		"subject", claims.Subject,
		"role", claims.Role,
		"path", r.URL.Path,
	)
	g.audit.Emit(r.Context(), audit.Event{
		Type:      audit.EventAccessForbidden,
		Subject:   claims.Subject,
		SessionID: claims.SessionID(),
		Role:      claims.Role,
		Reason:    "insufficient role for " + r.URL.Path,
		ClientIP:  requestcontext.GetClientIP(r.Context()),
		UserAgent: requestcontext.GetUserAgent(r.Context()),
	})
	if class == RouteStaffAPI {
		g.count("reject_forbidden")
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "staff role required"))
		return
	}
	g.count("redirect_home")
	http.Redirect(w, r, homePath, http.StatusFound)
}

func (g *Gate) count(outcome string) {
	if g.metrics != nil {
		g.metrics.IncrementGateDecision(outcome)
	}
}

func principal(claims *token.SessionClaims) requestcontext.Principal {
	return requestcontext.Principal{
		UserID:      claims.Subject,
		SessionID:   claims.SessionID(),
		Email:       claims.Email,
		Role:        claims.Role,
		SessionType: claims.SessionType,
	}
}
