// Package handler exposes the LMS launch endpoint. It is the only endpoint
// that accepts form-encoded bodies; everything else on the perimeter speaks
// JSON.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Menakta/op-skillsim-sub004/internal/gate"
	"github.com/Menakta/op-skillsim-sub004/internal/launch/models"
	"github.com/Menakta/op-skillsim-sub004/internal/launch/service"
	dErrors "github.com/Menakta/op-skillsim-sub004/pkg/domain-errors"
	"github.com/Menakta/op-skillsim-sub004/pkg/platform/httputil"
)

// Service verifies a launch and mints the session credential.
type Service interface {
	Handle(ctx context.Context, method, rawURL string, req *models.LaunchRequest) (*service.Result, error)
}

// Handler wires the launch endpoint to the launch service.
type Handler struct {
	service Service
	logger  *slog.Logger
	secure  bool
}

// New constructs a launch handler. secure controls the Secure flag on the
// minted session cookie and must be true outside local development.
func New(service Service, logger *slog.Logger, secure bool) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
		secure:  secure,
	}
}

// Register mounts the launch endpoint on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/lti/launch", h.HandleLaunch)
}

// HandleLaunch handles POST /lti/launch requests. On success it sets the
// session cookie and sends the browser to the role-appropriate landing page
// with a 303 so the form POST is not replayed by a redirect-following client.
func (h *Handler) HandleLaunch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := r.ParseForm(); err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "malformed form body"))
		return
	}

	// r.Form merges body and query parameters; the signature covers both
	// when the LMS appends custom query parameters to the launch URL.
	result, err := h.service.Handle(ctx, r.Method, requestURL(r), models.FromForm(r.Form))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	// SameSite=None: the post-launch page renders inside the LMS iframe and
	// the cookie must travel on that cross-site navigation.
	gate.SetSessionCookie(w, result.Token, result.Claims.ExpiresAt.Time, http.SameSiteNoneMode, h.secure)
	http.Redirect(w, r, result.RedirectPath, http.StatusSeeOther)
}

// requestURL reconstructs the absolute URL the LMS signed against. Behind a
// TLS-terminating proxy the scheme arrives in X-Forwarded-Proto.
func requestURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + r.Host + r.URL.RequestURI()
}
