package staffauth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/Menakta/op-skillsim-sub004/internal/audit"
	"github.com/Menakta/op-skillsim-sub004/internal/identity"
	"github.com/Menakta/op-skillsim-sub004/internal/token"
	dErrors "github.com/Menakta/op-skillsim-sub004/pkg/domain-errors"
	"github.com/Menakta/op-skillsim-sub004/pkg/domain"
)

type failingStore struct{}

func (failingStore) FindByEmail(context.Context, string) (*identity.Identity, error) {
	return nil, errors.New("connection refused")
}

func testIssuer(t *testing.T) *token.Issuer {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	issuer, err := token.NewIssuer([]byte("test-session-key"), key, "skillsim-stream")
	require.NoError(t, err)
	return issuer
}

func seedStaff(t *testing.T, store *identity.MemoryStore, email, password string, role domain.Role) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = store.CreateStaff(context.Background(), email, "Staff Member", string(hash), role)
	require.NoError(t, err)
}

type fixture struct {
	service *Service
	store   *identity.MemoryStore
	sink    *audit.MemorySink
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	store := identity.NewMemoryStore()
	sink := audit.NewMemorySink()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	opts = append([]Option{WithAudit(audit.NewPublisher(logger, sink))}, opts...)
	return &fixture{
		service: New(store, testIssuer(t), logger, opts...),
		store:   store,
		sink:    sink,
	}
}

func TestLoginTeacher(t *testing.T) {
	f := newFixture(t)
	seedStaff(t, f.store, "teacher@example.edu", "correct horse", domain.RoleTeacher)

	result, err := f.service.Login(context.Background(), "teacher@example.edu", "correct horse")

	require.NoError(t, err)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, domain.RoleTeacher, result.Claims.Role)
	assert.Equal(t, domain.SessionTeacher, result.Claims.SessionType)
	assert.Equal(t, "/dashboard", result.RedirectPath)

	lifetime := result.Claims.ExpiresAt.Sub(result.Claims.IssuedAt.Time)
	assert.Equal(t, DefaultTeacherTTL, lifetime)

	events := f.sink.Events()
	require.Len(t, events, 1)
	assert.Equal(t, audit.EventLoginSucceeded, events[0].Type)
}

func TestLoginAdminGetsShortSession(t *testing.T) {
	f := newFixture(t)
	seedStaff(t, f.store, "admin@example.edu", "secret", domain.RoleAdmin)

	result, err := f.service.Login(context.Background(), "admin@example.edu", "secret")

	require.NoError(t, err)
	assert.Equal(t, domain.SessionAdmin, result.Claims.SessionType)
	lifetime := result.Claims.ExpiresAt.Sub(result.Claims.IssuedAt.Time)
	assert.Equal(t, DefaultAdminTTL, lifetime)
}

func TestLoginTTLOverrides(t *testing.T) {
	f := newFixture(t, WithAdminTTL(10*time.Minute))
	seedStaff(t, f.store, "admin@example.edu", "secret", domain.RoleAdmin)

	result, err := f.service.Login(context.Background(), "admin@example.edu", "secret")

	require.NoError(t, err)
	lifetime := result.Claims.ExpiresAt.Sub(result.Claims.IssuedAt.Time)
	assert.Equal(t, 10*time.Minute, lifetime)
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	f := newFixture(t)
	seedStaff(t, f.store, "teacher@example.edu", "correct horse", domain.RoleTeacher)

	tests := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown email", "nobody@example.edu", "correct horse"},
		{"wrong password", "teacher@example.edu", "battery staple"},
		{"empty password", "teacher@example.edu", ""},
		{"empty email", "", "correct horse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := f.service.Login(context.Background(), tt.email, tt.password)

			require.Error(t, err)
			assert.Nil(t, result)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
			assert.Equal(t, "invalid credentials", dErrors.MessageOf(err))
		})
	}

	events := f.sink.Events()
	require.Len(t, events, len(tests))
	for _, event := range events {
		assert.Equal(t, audit.EventLoginFailed, event.Type)
		assert.NotEmpty(t, event.Reason)
	}
}

func TestLoginStoreFailureIsUpstream(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := New(failingStore{}, testIssuer(t), logger)

	_, err := svc.Login(context.Background(), "teacher@example.edu", "secret")

	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeUpstream))
}

func TestLoginEachLoginMintsFreshSession(t *testing.T) {
	f := newFixture(t)
	seedStaff(t, f.store, "teacher@example.edu", "correct horse", domain.RoleTeacher)

	first, err := f.service.Login(context.Background(), "teacher@example.edu", "correct horse")
	require.NoError(t, err)
	second, err := f.service.Login(context.Background(), "teacher@example.edu", "correct horse")
	require.NoError(t, err)

	assert.NotEqual(t, first.Claims.SessionID(), second.Claims.SessionID())
}
