package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Menakta/op-skillsim-sub004/internal/launch/models"
	"github.com/Menakta/op-skillsim-sub004/pkg/domain"
	"github.com/Menakta/op-skillsim-sub004/pkg/platform/sentinel"
)

// PostgresStore persists identities in PostgreSQL for deployments that need
// durable accounts across restarts and instances.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// EnsureSchema creates the users table when it does not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
			lti_user_id   TEXT UNIQUE,
			email         TEXT,
			display_name  TEXT NOT NULL DEFAULT '',
			institution   TEXT NOT NULL DEFAULT '',
			role          TEXT NOT NULL,
			password_hash TEXT NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
		);
		CREATE UNIQUE INDEX IF NOT EXISTS users_email_idx ON users (email) WHERE email <> '';
	`)
	if err != nil {
		return fmt.Errorf("ensure users schema: %w", err)
	}
	return nil
}

// Resolve finds or creates the user for an LMS identity in one round trip.
// The upsert refreshes profile fields on every launch, which keeps the
// operation idempotent per external identity.
func (s *PostgresStore) Resolve(ctx context.Context, ext models.ExternalIdentity) (*Identity, error) {
	if ext.LTIUserID == "" {
		return nil, fmt.Errorf("identity: empty external user id")
	}
	role := domain.RoleFromHint(ext.RawRoles)

	var ident Identity
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (lti_user_id, email, display_name, institution, role)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (lti_user_id) DO UPDATE SET
			email = EXCLUDED.email,
			display_name = EXCLUDED.display_name,
			institution = EXCLUDED.institution,
			role = EXCLUDED.role
		RETURNING id, lti_user_id, email, display_name, institution, role, password_hash, created_at
	`, ext.LTIUserID, ext.Email, ext.DisplayName, ext.Institution, string(role)).Scan(
		&ident.ID, &ident.LTIUserID, &ident.Email, &ident.DisplayName,
		&ident.Institution, &ident.Role, &ident.PasswordHash, &ident.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}
	return &ident, nil
}

// FindByEmail returns the staff account registered under the email.
func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*Identity, error) {
	var ident Identity
	err := s.pool.QueryRow(ctx, `
		SELECT id, COALESCE(lti_user_id, ''), email, display_name, institution, role, password_hash, created_at
		FROM users WHERE email = $1
	`, email).Scan(
		&ident.ID, &ident.LTIUserID, &ident.Email, &ident.DisplayName,
		&ident.Institution, &ident.Role, &ident.PasswordHash, &ident.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("identity %q: %w", email, sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find identity by email: %w", err)
	}
	return &ident, nil
}

// CreateStaff registers a directly-logging-in staff account.
func (s *PostgresStore) CreateStaff(ctx context.Context, email, displayName, passwordHash string, role domain.Role) (*Identity, error) {
	if !role.Staff() {
		return nil, fmt.Errorf("identity: role %q cannot log in directly", role)
	}
	var ident Identity
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, display_name, role, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, COALESCE(lti_user_id, ''), email, display_name, institution, role, password_hash, created_at
	`, email, displayName, string(role), passwordHash).Scan(
		&ident.ID, &ident.LTIUserID, &ident.Email, &ident.DisplayName,
		&ident.Institution, &ident.Role, &ident.PasswordHash, &ident.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create staff identity: %w", err)
	}
	return &ident, nil
}
