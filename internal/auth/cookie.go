package auth

import (
	"net/http"
	"time"
)

const (
	// SessionCookieName holds the signed JWT.
	SessionCookieName = "token"
	// StateCookieName holds the OAuth state between /login/github and the callback.
	StateCookieName = "oauth_state"

	stateTTL = 10 * time.Minute
)

// CookieOptions defines how auth cookies are issued.
type CookieOptions struct {
	Path     string
	Secure   bool // true in production (HTTPS only)
	SameSite http.SameSite
}

// normalize fills in defaults. Auth cookies are always HttpOnly, so scripts on
// the page can never read the credential.
func (o CookieOptions) normalize() CookieOptions {
	if o.Path == "" {
		o.Path = "/"
	}
	if o.SameSite == 0 {
		// Lax: sent on top-level navigations (the GitHub redirect back to us)
		// but not on cross-site subrequests.
		o.SameSite = http.SameSiteLaxMode
	}
	return o
}

// SetSessionCookie stores the session JWT until it expires.
func SetSessionCookie(w http.ResponseWriter, token Token, opts CookieOptions) {
	opts = opts.normalize()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    token.Value,
		Path:     opts.Path,
		Expires:  token.ExpiresAt,
		MaxAge:   int(time.Until(token.ExpiresAt).Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}

// ClearSessionCookie tells the browser to delete the session cookie.
func ClearSessionCookie(w http.ResponseWriter, opts CookieOptions) {
	clearCookie(w, SessionCookieName, opts)
}

// SetStateCookie stores the OAuth state for ten minutes: long enough to approve
// on GitHub, short enough to limit replay.
func SetStateCookie(w http.ResponseWriter, state string, opts CookieOptions) {
	opts = opts.normalize()
	http.SetCookie(w, &http.Cookie{
		Name:     StateCookieName,
		Value:    state,
		Path:     opts.Path,
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}

// ClearStateCookie removes the single-use OAuth state.
func ClearStateCookie(w http.ResponseWriter, opts CookieOptions) {
	clearCookie(w, StateCookieName, opts)
}

func clearCookie(w http.ResponseWriter, name string, opts CookieOptions) {
	opts = opts.normalize()
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     opts.Path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   opts.Secure,
		SameSite: opts.SameSite,
	})
}
