package gate

import (
	"net/http"
	"time"
)

// SessionCookieName is the cookie carrying the session credential.
const SessionCookieName = "session_token"

// SetSessionCookie hands the session credential to the browser. LTI launches
// render inside the LMS iframe and need SameSite=None; direct staff logins
// use SameSite=Lax. Secure is mandatory in production (and required by
// browsers for SameSite=None).
func SetSessionCookie(w http.ResponseWriter, token string, expires time.Time, sameSite http.SameSite, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	})
}

// ClearSessionCookie expires the session cookie so the browser stops
// presenting a known-bad credential.
func ClearSessionCookie(w http.ResponseWriter, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	})
}
