package token

import (
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "github.com/Menakta/op-skillsim-sub004/pkg/domain-errors"
	"github.com/Menakta/op-skillsim-sub004/pkg/platform/sentinel"
)

// Verifier validates previously issued credentials. Each scheme pins its
// signing algorithm, so a session token presented as an access token (or the
// reverse) fails before any claim is read. Expired and malformed tokens are
// distinguishable via sentinel errors for logging but carry the same domain
// code, so callers surface them identically.
type Verifier struct {
	sessionKey []byte
	streamPub  *rsa.PublicKey
	audience   string
	now        func() time.Time
}

// VerifierOption configures a Verifier.
type VerifierOption func(*Verifier)

// WithVerifierClock sets the clock function for testability.
func WithVerifierClock(now func() time.Time) VerifierOption {
	return func(v *Verifier) {
		if now != nil {
			v.now = now
		}
	}
}

// NewVerifier constructs a verifier for both schemes. Like NewIssuer it fails
// closed on missing key material.
func NewVerifier(sessionKey []byte, streamPub *rsa.PublicKey, audience string, opts ...VerifierOption) (*Verifier, error) {
	if len(sessionKey) == 0 {
		return nil, errors.New("token: session signing key is required")
	}
	if streamPub == nil {
		return nil, errors.New("token: stream public key is required")
	}
	if audience == "" {
		return nil, errors.New("token: stream audience is required")
	}
	v := &Verifier{
		sessionKey: sessionKey,
		streamPub:  streamPub,
		audience:   audience,
		now:        time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(v)
		}
	}
	return v, nil
}

// VerifySession validates a cookie credential and returns its claims.
func (v *Verifier) VerifySession(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return v.sessionKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(IssuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, translateParseError(err, "session")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}
	if !claims.Role.IsValid() || !claims.SessionType.IsValid() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid session token")
	}
	return claims, nil
}

// VerifyAccess validates a streaming access credential and returns its
// claims. The audience check keeps session-scoped tokens out of the
// streaming capability even if an attacker re-wraps one.
func (v *Verifier) VerifyAccess(tokenString string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (any, error) { return v.streamPub, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(IssuerName),
		jwt.WithAudience(v.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		return nil, translateParseError(err, "access")
	}
	if !parsed.Valid {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid access token")
	}
	if !claims.Role.IsValid() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid access token")
	}
	return claims, nil
}

func translateParseError(err error, scheme string) error {
	if errors.Is(err, jwt.ErrTokenExpired) {
		return dErrors.Wrap(dErrors.CodeUnauthorized, scheme+" token expired", sentinel.ErrExpired)
	}
	return dErrors.New(dErrors.CodeUnauthorized, "invalid "+scheme+" token")
}
