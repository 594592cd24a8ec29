// Package http wires the perimeter's endpoints into one router: the LMS
// launch, staff login, the streaming token exchange, the gated pages and
// the operational endpoints.
package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Menakta/op-skillsim-sub004/internal/gate"
	"github.com/Menakta/op-skillsim-sub004/internal/platform/metrics"
	"github.com/Menakta/op-skillsim-sub004/internal/staffauth"
	"github.com/Menakta/op-skillsim-sub004/internal/token"
	dErrors "github.com/Menakta/op-skillsim-sub004/pkg/domain-errors"
	"github.com/Menakta/op-skillsim-sub004/pkg/platform/httputil"
	"github.com/Menakta/op-skillsim-sub004/pkg/requestcontext"
)

// StaffAuth is the direct login service contract.
type StaffAuth interface {
	Login(ctx context.Context, email, password string) (*staffauth.Result, error)
	Logout(ctx context.Context, principal requestcontext.Principal)
}

// Handler serves everything that is not the launch endpoint.
type Handler struct {
	staff   StaffAuth
	issuer  *token.Issuer
	logger  *slog.Logger
	metrics *metrics.Metrics
	health  []HealthChecker
	secure  bool
}

// HealthChecker reports readiness of one backing dependency.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithMetrics records credential issuance.
func WithMetrics(m *metrics.Metrics) HandlerOption {
	return func(h *Handler) { h.metrics = m }
}

// WithHealthCheckers adds dependencies to the readiness probe.
func WithHealthCheckers(checkers ...HealthChecker) HandlerOption {
	return func(h *Handler) { h.health = append(h.health, checkers...) }
}

// WithSecureCookies marks session cookies Secure (production).
func WithSecureCookies(secure bool) HandlerOption {
	return func(h *Handler) { h.secure = secure }
}

// NewHandler constructs the transport handler.
func NewHandler(staff StaffAuth, issuer *token.Issuer, logger *slog.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{
		staff:  staff,
		issuer: issuer,
		logger: logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Redirect string `json:"redirect"`
}

// HandleLogin handles POST /auth/login: staff email/password to session
// cookie. Trainee accounts cannot use this path.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req loginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.staff.Login(ctx, req.Email, req.Password)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	gate.SetSessionCookie(w, result.Token, result.Claims.ExpiresAt.Time, http.SameSiteLaxMode, h.secure)
	httputil.WriteJSON(w, http.StatusOK, loginResponse{Redirect: result.RedirectPath})
}

// HandleLogout handles POST /auth/logout. Always succeeds: an anonymous
// logout still clears whatever cookie the browser held.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if principal, ok := requestcontext.GetPrincipal(ctx); ok {
		h.staff.Logout(ctx, principal)
	}
	gate.ClearSessionCookie(w, h.secure)
	w.WriteHeader(http.StatusNoContent)
}

type streamTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// HandleStreamToken handles POST /api/stream/token: exchanges the session
// cookie for a short-lived streaming access credential. The gate has already
// verified the cookie; any authenticated role may stream.
func (h *Handler) HandleStreamToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	principal, ok := requestcontext.GetPrincipal(ctx)
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "session invalid"))
		return
	}

	signed, _, err := h.issuer.IssueAccess(principal.UserID, principal.Role)
	if err != nil {
		h.logger.ErrorContext(ctx, "access issuance failed",
			"error", err,
			"subject", principal.UserID,
		)
		httputil.WriteError(w, dErrors.Wrap(dErrors.CodeInternal, "access issuance failed", err))
		return
	}

	if h.metrics != nil {
		h.metrics.IncrementCredentialsIssued(string(token.SchemeAccess))
	}
	httputil.WriteJSON(w, http.StatusOK, streamTokenResponse{
		AccessToken: signed,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.issuer.AccessTTL().Seconds()),
	})
}

// HandleHealthz handles GET /healthz. Reports degraded with a 503 when any
// backing dependency fails its probe.
func (h *Handler) HandleHealthz(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	for _, checker := range h.health {
		if err := checker.Health(ctx); err != nil {
			h.logger.WarnContext(ctx, "health check failed", "error", err)
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
			return
		}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Register mounts the handler's endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/login", h.HandleLogin)
	r.Post("/auth/logout", h.HandleLogout)
	r.Post("/api/stream/token", h.HandleStreamToken)
	r.Get("/healthz", h.HandleHealthz)
	r.Get("/training", h.handleTrainingPage)
	r.Get("/dashboard", h.handleDashboardPage)
	r.Get("/api/admin/sessions", h.handleAdminSessions)
}

// handleTrainingPage serves the trainee landing page shell.
func (h *Handler) handleTrainingPage(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "Training")
}

// handleDashboardPage serves the staff dashboard shell.
func (h *Handler) handleDashboardPage(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, "Dashboard")
}

// handleAdminSessions reports the caller's own session; the staff session
// listing backs the admin console.
func (h *Handler) handleAdminSessions(w http.ResponseWriter, r *http.Request) {
	principal, ok := requestcontext.GetPrincipal(r.Context())
	if !ok {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "session invalid"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"session_id":   principal.SessionID,
		"subject":      principal.UserID,
		"role":         principal.Role,
		"session_type": principal.SessionType,
	})
}

func (h *Handler) renderPage(w http.ResponseWriter, r *http.Request, title string) {
	principal, _ := requestcontext.GetPrincipal(r.Context())
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte("<!doctype html><title>" + title + "</title><h1>" + title + "</h1><p>" + principal.Email + "</p>"))
}
