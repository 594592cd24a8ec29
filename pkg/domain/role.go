// Package domain holds the small shared vocabulary of the platform: roles and
// session types referenced by tokens, the request gate, and identity storage.
package domain

import "strings"

// Role is the authorization role carried in every session credential.
type Role string

const (
	RoleStudent Role = "student"
	RoleTeacher Role = "teacher"
	RoleAdmin   Role = "admin"
)

// IsValid checks if the role is one of the supported enum values.
func (r Role) IsValid() bool {
	switch r {
	case RoleStudent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

// Staff reports whether the role grants access to staff-only routes.
func (r Role) Staff() bool {
	return r == RoleTeacher || r == RoleAdmin
}

// RoleFromHint maps the free-form role string asserted by an LMS launch to a
// platform role. LMS vendors send values like "Instructor",
// "urn:lti:role:ims/lis/Administrator" or comma-joined lists, so matching is
// substring-based and case-insensitive. Unrecognized hints become students.
func RoleFromHint(raw string) Role {
	hint := strings.ToLower(raw)
	switch {
	case strings.Contains(hint, "instructor"),
		strings.Contains(hint, "teacher"),
		strings.Contains(hint, "staff"):
		return RoleTeacher
	case strings.Contains(hint, "admin"):
		return RoleAdmin
	default:
		return RoleStudent
	}
}

// SessionType records which login path minted a session credential.
type SessionType string

const (
	SessionLTI     SessionType = "lti"
	SessionTeacher SessionType = "teacher"
	SessionAdmin   SessionType = "admin"
)

// IsValid checks if the session type is one of the supported enum values.
func (t SessionType) IsValid() bool {
	switch t {
	case SessionLTI, SessionTeacher, SessionAdmin:
		return true
	}
	return false
}
