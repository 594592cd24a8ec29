package gate

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Menakta/op-skillsim-sub004/internal/audit"
	"github.com/Menakta/op-skillsim-sub004/internal/token"
	dErrors "github.com/Menakta/op-skillsim-sub004/pkg/domain-errors"
	"github.com/Menakta/op-skillsim-sub004/pkg/domain"
	"github.com/Menakta/op-skillsim-sub004/pkg/platform/sentinel"
	"github.com/Menakta/op-skillsim-sub004/pkg/requestcontext"
)

// stubVerifier maps fixed cookie values to outcomes so the matrix below does
// not depend on real key material.
type stubVerifier struct{}

func (stubVerifier) VerifySession(tokenString string) (*token.SessionClaims, error) {
	switch tokenString {
	case "student", "teacher", "admin":
		claims := &token.SessionClaims{
			Email:       tokenString + "@example.edu",
			Role:        domain.Role(tokenString),
			SessionType: domain.SessionLTI,
		}
		claims.Subject = "user-" + tokenString
		claims.ID = "session-" + tokenString
		return claims, nil
	case "expired":
		return nil, dErrors.Wrap(dErrors.CodeUnauthorized, "session token expired", sentinel.ErrExpired)
	default:
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}
}

func newTestGate(t *testing.T, opts ...Option) *Gate {
	t.Helper()
	return New(stubVerifier{}, slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
}

func serveGate(t *testing.T, g *Gate, path, cookie string) (*httptest.ResponseRecorder, *requestcontext.Principal) {
	t.Helper()
	var got *requestcontext.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := requestcontext.GetPrincipal(r.Context()); ok {
			got = &p
		}
		w.WriteHeader(http.StatusOK)
	})
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if cookie != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: cookie})
	}
	rec := httptest.NewRecorder()
	g.Middleware(next).ServeHTTP(rec, req)
	return rec, got
}

func clearedSessionCookie(rec *httptest.ResponseRecorder) bool {
	for _, c := range rec.Result().Cookies() {
		if c.Name == SessionCookieName && c.Value == "" && c.MaxAge < 0 {
			return true
		}
	}
	return false
}

func TestGateDecisionTable(t *testing.T) {
	const (
		admit         = "admit"
		redirectLogin = "redirect_login"
		redirectHome  = "redirect_home"
		unauthorized  = "unauthorized"
		forbidden     = "forbidden"
	)

	tests := []struct {
		path    string
		cookie  string
		outcome string
	}{
		// Public routes admit everyone.
		{"/", "", admit},
		{"/", "garbage", admit},
		{"/", "expired", admit},
		{"/", "student", admit},
		{"/", "admin", admit},
		{"/auth/login", "", admit},
		{"/lti/launch", "", admit},

		// Trainee pages need any authenticated role.
		{"/training", "", redirectLogin},
		{"/training", "garbage", redirectLogin},
		{"/training", "expired", redirectLogin},
		{"/training", "student", admit},
		{"/training", "teacher", admit},
		{"/training", "admin", admit},
		{"/training/module/7", "student", admit},

		// Staff pages redirect trainees home, anonymous callers to login.
		{"/dashboard", "", redirectLogin},
		{"/dashboard", "garbage", redirectLogin},
		{"/dashboard", "expired", redirectLogin},
		{"/dashboard", "student", redirectHome},
		{"/dashboard", "teacher", admit},
		{"/dashboard", "admin", admit},
		{"/reports", "student", redirectHome},
		{"/admin/users", "teacher", admit},

		// Staff APIs answer in JSON, never redirect.
		{"/api/admin/users", "", unauthorized},
		{"/api/admin/users", "garbage", unauthorized},
		{"/api/admin/users", "expired", unauthorized},
		{"/api/admin/users", "student", forbidden},
		{"/api/admin/users", "teacher", admit},
		{"/api/admin/users", "admin", admit},
		{"/api/reports/export", "student", forbidden},

		// Authenticated APIs admit every role.
		{"/api/stream/token", "", unauthorized},
		{"/api/stream/token", "garbage", unauthorized},
		{"/api/stream/token", "expired", unauthorized},
		{"/api/stream/token", "student", admit},
		{"/api/stream/token", "teacher", admit},
		{"/api/stream/token", "admin", admit},
	}

	for _, tt := range tests {
		name := tt.path + "/" + tt.cookie
		if tt.cookie == "" {
			name = tt.path + "/anonymous"
		}
		t.Run(name, func(t *testing.T) {
			g := newTestGate(t)
			rec, principal := serveGate(t, g, tt.path, tt.cookie)

			switch tt.outcome {
			case admit:
				assert.Equal(t, http.StatusOK, rec.Code)
			case redirectLogin:
				require.Equal(t, http.StatusFound, rec.Code)
				assert.Contains(t, rec.Header().Get("Location"), "/auth/login?next=")
				assert.Nil(t, principal)
			case redirectHome:
				require.Equal(t, http.StatusFound, rec.Code)
				assert.Equal(t, "/training", rec.Header().Get("Location"))
				assert.Nil(t, principal)
			case unauthorized:
				assert.Equal(t, http.StatusUnauthorized, rec.Code)
				assert.Nil(t, principal)
			case forbidden:
				assert.Equal(t, http.StatusForbidden, rec.Code)
				assert.Nil(t, principal)
			}

			// Any denial carrying a cookie that failed verification must
			// clear it; valid-but-insufficient cookies stay.
			badCookie := tt.cookie == "garbage" || tt.cookie == "expired"
			if badCookie && tt.outcome != admit {
				assert.True(t, clearedSessionCookie(rec), "expected cleared cookie")
			}
			if tt.cookie == "student" {
				assert.False(t, clearedSessionCookie(rec), "valid cookie must not be cleared")
			}
		})
	}
}

func TestGateRedirectCarriesOriginalPath(t *testing.T) {
	g := newTestGate(t)
	rec, _ := serveGate(t, g, "/training/module/7", "")

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/auth/login?next=%2Ftraining%2Fmodule%2F7", rec.Header().Get("Location"))
}

func TestGateClearsInvalidCookieEvenOnPublicDenialPaths(t *testing.T) {
	g := newTestGate(t)

	// Bad cookie on a protected page gets cleared alongside the redirect.
	rec, _ := serveGate(t, g, "/training", "garbage")
	require.Equal(t, http.StatusFound, rec.Code)
	assert.True(t, clearedSessionCookie(rec))
}

func TestGateAttachesPrincipal(t *testing.T) {
	g := newTestGate(t)

	rec, principal := serveGate(t, g, "/training", "teacher")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, principal)
	assert.Equal(t, "user-teacher", principal.UserID)
	assert.Equal(t, "session-teacher", principal.SessionID)
	assert.Equal(t, domain.RoleTeacher, principal.Role)
	assert.Equal(t, domain.SessionLTI, principal.SessionType)
}

func TestGateAttachesPrincipalOnPublicRoutesWhenCookieValid(t *testing.T) {
	g := newTestGate(t)

	_, principal := serveGate(t, g, "/", "student")
	require.NotNil(t, principal)
	assert.Equal(t, "user-student", principal.UserID)
}

func TestGateForbiddenEmitsAuditEvent(t *testing.T) {
	sink := audit.NewMemorySink()
	publisher := audit.NewPublisher(slog.New(slog.NewTextHandler(io.Discard, nil)), sink)
	g := newTestGate(t, WithAudit(publisher))

	serveGate(t, g, "/api/admin/users", "student")

	events := sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventAccessForbidden, events[0].Type)
	assert.Equal(t, "user-student", events[0].Subject)
	assert.Equal(t, domain.RoleStudent, events[0].Role)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		path string
		want RouteClass
	}{
		{"/", RoutePublic},
		{"/auth/login", RoutePublic},
		{"/lti/launch", RoutePublic},
		{"/healthz", RoutePublic},
		{"/trainingcamp", RoutePublic},
		{"/training", RoutePage},
		{"/training/", RoutePage},
		{"/training/module/7", RoutePage},
		{"/dashboard", RouteStaffPage},
		{"/dashboard/cohorts", RouteStaffPage},
		{"/reports", RouteStaffPage},
		{"/admin", RouteStaffPage},
		{"/administrator", RoutePublic},
		{"/api/admin", RouteStaffAPI},
		{"/api/admin/users", RouteStaffAPI},
		{"/api/reports/export", RouteStaffAPI},
		{"/api/stream/token", RouteAPI},
		{"/api/streaming", RoutePublic},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.path))
		})
	}
}
