package auth

import (
	"context"
	"net/http"
)

// contextKey is unexported so no other package can read or shadow our values.
type contextKey string

const userIDKey contextKey = "userID"

// Authenticator turns a raw session token into the ID of the user it belongs
// to. service.AuthService implements it by validating the JWT and checking the
// revocation list.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

const unauthorizedBody = `{"error":"unauthorized","message":"Not authenticated"}`

// RequireAuth rejects requests without a valid session cookie with 401 and a
// JSON error body. On success the user ID is stored in the request context.
func RequireAuth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, err := extractUserID(r, authn)
			if err != nil {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(unauthorizedBody + "\n"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}

// UserIDFromContext returns the authenticated user's ID, or ("", false) for an
// anonymous request.
func UserIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok && id != ""
}

// WithUserID returns a context carrying userID, as RequireAuth would.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// TokenFromRequest returns the raw session token, or "" when the cookie is absent.
func TokenFromRequest(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func extractUserID(r *http.Request, authn Authenticator) (string, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		// http.ErrNoCookie: anonymous
		return "", err
	}
	return authn.Authenticate(r.Context(), cookie.Value)
}
