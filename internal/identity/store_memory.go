package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Menakta/op-skillsim-sub004/internal/launch/models"
	"github.com/Menakta/op-skillsim-sub004/pkg/domain"
	"github.com/Menakta/op-skillsim-sub004/pkg/platform/sentinel"
)

// MemoryStore keeps identities in memory for dev and tests.
type MemoryStore struct {
	mu      sync.RWMutex
	byLTIID map[string]*Identity
	byEmail map[string]*Identity
}

// NewMemoryStore constructs an empty in-memory identity store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byLTIID: make(map[string]*Identity),
		byEmail: make(map[string]*Identity),
	}
}

// Resolve finds or creates the user for an LMS identity. Profile fields are
// refreshed from the launch on every sighting, so the operation is
// idempotent: resolving the same external identity twice yields the same
// record.
func (s *MemoryStore) Resolve(_ context.Context, ext models.ExternalIdentity) (*Identity, error) {
	if ext.LTIUserID == "" {
		return nil, fmt.Errorf("identity: empty external user id")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	role := domain.RoleFromHint(ext.RawRoles)
	if existing, ok := s.byLTIID[ext.LTIUserID]; ok {
		existing.Email = ext.Email
		existing.DisplayName = ext.DisplayName
		existing.Institution = ext.Institution
		existing.Role = role
		if ext.Email != "" {
			s.byEmail[ext.Email] = existing
		}
		copied := *existing
		return &copied, nil
	}

	ident := &Identity{
		ID:          uuid.New(),
		LTIUserID:   ext.LTIUserID,
		Email:       ext.Email,
		DisplayName: ext.DisplayName,
		Institution: ext.Institution,
		Role:        role,
		CreatedAt:   time.Now(),
	}
	s.byLTIID[ext.LTIUserID] = ident
	if ext.Email != "" {
		s.byEmail[ext.Email] = ident
	}
	copied := *ident
	return &copied, nil
}

// FindByEmail returns the staff account registered under the email.
func (s *MemoryStore) FindByEmail(_ context.Context, email string) (*Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ident, ok := s.byEmail[email]; ok {
		copied := *ident
		return &copied, nil
	}
	return nil, fmt.Errorf("identity %q: %w", email, sentinel.ErrNotFound)
}

// CreateStaff registers a directly-logging-in staff account. Used by seeding
// and tests; LTI users are created through Resolve instead.
func (s *MemoryStore) CreateStaff(_ context.Context, email, displayName, passwordHash string, role domain.Role) (*Identity, error) {
	if !role.Staff() {
		return nil, fmt.Errorf("identity: role %q cannot log in directly", role)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[email]; ok {
		return nil, fmt.Errorf("identity %q exists", email)
	}
	ident := &Identity{
		ID:           uuid.New(),
		Email:        email,
		DisplayName:  displayName,
		Role:         role,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now(),
	}
	s.byEmail[email] = ident
	copied := *ident
	return &copied, nil
}
