// Package identity resolves external LMS identities and staff accounts into
// platform users. The auth perimeter consumes it through the Resolver and
// StaffStore contracts; persistence is an implementation detail behind them.
package identity

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/Menakta/op-skillsim-sub004/internal/launch/models"
	"github.com/Menakta/op-skillsim-sub004/pkg/domain"
)

// Identity is a platform user record.
type Identity struct {
	ID          uuid.UUID
	LTIUserID   string
	Email       string
	DisplayName string
	Institution string
	Role        domain.Role
	// PasswordHash is set only for staff accounts that log in directly.
	PasswordHash string
	CreatedAt    time.Time
}

// Resolver finds or creates the platform user for an LMS-asserted identity.
// It must be idempotent for the same external identity.
type Resolver interface {
	Resolve(ctx context.Context, ext models.ExternalIdentity) (*Identity, error)
}

// StaffStore looks up staff accounts for the direct login path.
type StaffStore interface {
	FindByEmail(ctx context.Context, email string) (*Identity, error)
}
