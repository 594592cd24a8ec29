package token

import (
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Menakta/op-skillsim-sub004/pkg/domain"
)

// Issuer mints fresh credentials. Every call produces a new unique token id;
// credentials are never renewed in place.
type Issuer struct {
	sessionKey []byte
	streamKey  *rsa.PrivateKey
	audience   string
	accessTTL  time.Duration
	now        func() time.Time
}

// IssuerOption configures an Issuer.
type IssuerOption func(*Issuer)

// WithAccessTTL overrides the access-credential lifetime.
func WithAccessTTL(ttl time.Duration) IssuerOption {
	return func(i *Issuer) {
		if ttl > 0 {
			i.accessTTL = ttl
		}
	}
}

// WithIssuerClock sets the clock function for testability.
func WithIssuerClock(now func() time.Time) IssuerOption {
	return func(i *Issuer) {
		if now != nil {
			i.now = now
		}
	}
}

// NewIssuer constructs an issuer for both schemes. Missing key material is a
// configuration error: the caller must refuse to start rather than mint
// unverifiable credentials.
func NewIssuer(sessionKey []byte, streamKey *rsa.PrivateKey, audience string, opts ...IssuerOption) (*Issuer, error) {
	if len(sessionKey) == 0 {
		return nil, errors.New("token: session signing key is required")
	}
	if streamKey == nil {
		return nil, errors.New("token: stream signing key is required")
	}
	if audience == "" {
		return nil, errors.New("token: stream audience is required")
	}
	i := &Issuer{
		sessionKey: sessionKey,
		streamKey:  streamKey,
		audience:   audience,
		accessTTL:  20 * time.Minute,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(i)
		}
	}
	return i, nil
}

// IssueSession mints a cookie credential for an established identity. The
// session id is fresh for every call; a new login never reuses an old one.
func (i *Issuer) IssueSession(subject, email string, role domain.Role, sessionType domain.SessionType, ttl time.Duration) (string, *SessionClaims, error) {
	now := i.now()
	claims := &SessionClaims{
		Email:       email,
		Role:        role,
		SessionType: sessionType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    IssuerName,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.sessionKey)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// IssueAccess mints a short-lived streaming credential for the subject.
func (i *Issuer) IssueAccess(subject string, role domain.Role) (string, *AccessClaims, error) {
	now := i.now()
	claims := &AccessClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			Issuer:    IssuerName,
			Audience:  jwt.ClaimStrings{i.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.accessTTL)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(i.streamKey)
	if err != nil {
		return "", nil, err
	}
	return signed, claims, nil
}

// AccessTTL exposes the access-credential lifetime for response bodies.
func (i *Issuer) AccessTTL() time.Duration {
	return i.accessTTL
}
