// Package token mints and verifies the platform's two session-credential
// schemes. The session scheme is a symmetrically signed cookie credential
// scoping the whole application; the access scheme is an asymmetrically
// signed, short-lived credential scoped to the compute-streaming capability.
// The schemes are deliberately not interchangeable: each verifier pins its
// algorithm and the access verifier additionally pins its audience.
package token

import (
	"github.com/golang-jwt/jwt/v5"

	"github.com/Menakta/op-skillsim-sub004/pkg/domain"
)

// Scheme tags which credential encoding is meant.
type Scheme string

const (
	// SchemeSession is the symmetric (HS256) cookie credential.
	SchemeSession Scheme = "session"
	// SchemeAccess is the asymmetric (RS256) streaming credential.
	SchemeAccess Scheme = "access"
)

// Issuer is the token issuer name embedded in every credential.
const IssuerName = "skillsim"

// SessionClaims are the claims carried by the cookie credential. The
// registered ID claim is the opaque session id, unique per login.
type SessionClaims struct {
	Email       string             `json:"email,omitempty"`
	Role        domain.Role        `json:"role"`
	SessionType domain.SessionType `json:"session_type"`
	jwt.RegisteredClaims
}

// SessionID returns the opaque per-login session identifier.
func (c *SessionClaims) SessionID() string {
	return c.ID
}

// AccessClaims are the claims carried by the streaming access credential.
type AccessClaims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}
