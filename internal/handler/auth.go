package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/rs/xid"

	"github.com/sakif/pr-manager/internal/auth"
	"github.com/sakif/pr-manager/internal/service"
)

// OAuthProvider is the part of *auth.GitHubProvider the handler uses.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*auth.GitHubUser, error)
}

// AuthHandler manages the GitHub OAuth login flow and the session endpoint.
//
// HANDLER RESPONSIBILITIES:
//   - HandleGitHubLogin    → redirect the browser to GitHub's authorization page
//   - HandleGitHubCallback → receive the code, exchange it for a user, issue JWT
//   - HandleLogout         → end the session and go back to the page
//   - HandleUser           → return the currently logged-in user's profile
//
// DEPENDENCY CHAIN:
//   - github  OAuthProvider        → performs the OAuth code exchange
//   - service *service.AuthService → upserts users, issues and revokes tokens
type AuthHandler struct {
	github  OAuthProvider
	service *service.AuthService
	cookies auth.CookieOptions
	logger  *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(
	github OAuthProvider,
	svc *service.AuthService,
	cookies auth.CookieOptions,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		github:  github,
		service: svc,
		cookies: cookies,
		logger:  logger,
	}
}

// HandleGitHubLogin redirects the user to GitHub's authorization page.
//
// HTTP: GET /login/github
//
// CSRF PROTECTION VIA STATE:
// A random state is stored in a short-lived HttpOnly cookie and sent to
// GitHub. HandleGitHubCallback only accepts a callback carrying the same value.
func (h *AuthHandler) HandleGitHubLogin(w http.ResponseWriter, r *http.Request) {
	state := xid.New().String()
	auth.SetStateCookie(w, state, h.cookies)

	http.Redirect(w, r, h.github.AuthURL(state), http.StatusTemporaryRedirect)
}

// HandleGitHubCallback completes the OAuth login flow.
//
// HTTP: GET /callback/github?code=xxx&state=yyy
//
// FLOW:
//  1. Validate the state parameter (CSRF check)
//  2. Bail out to /?auth=denied if GitHub reports an error
//  3. Exchange the code for a GitHub user profile
//  4. Upsert the user and issue a JWT in an HttpOnly cookie
//  5. Redirect to the page, whose next load finds the session
func (h *AuthHandler) HandleGitHubCallback(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	// --- Step 1: Validate CSRF state ---
	stateCookie, err := r.Cookie(auth.StateCookieName)
	if err != nil || stateCookie.Value == "" {
		h.logger.Warn("auth callback: missing state cookie")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}
	if query.Get("state") != stateCookie.Value {
		// The values stay out of the log: the cookie's state is a live secret.
		h.logger.Warn("auth callback: state mismatch")
		http.Error(w, "invalid OAuth state", http.StatusBadRequest)
		return
	}

	// Single use.
	auth.ClearStateCookie(w, h.cookies)

	// --- Step 2: User denied authorization ---
	if errParam := query.Get("error"); errParam != "" {
		h.logger.Info("auth callback: user denied authorization",
			slog.String("error", errParam),
		)
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	// --- Step 3: Exchange code for GitHub user profile ---
	code := query.Get("code")
	if code == "" {
		http.Error(w, "missing OAuth code", http.StatusBadRequest)
		return
	}

	ghUser, err := h.github.Exchange(r.Context(), code)
	if err != nil {
		h.logger.Error("auth callback: GitHub exchange failed", slog.String("error", err.Error()))
		http.Error(w, "authentication failed", http.StatusBadGateway)
		return
	}

	// --- Step 4: Upsert user and issue the session cookie ---
	result, err := h.service.LoginOrRegisterGitHub(r.Context(), ghUser)
	if err != nil {
		h.logger.Error("auth callback: login failed",
			slog.Int64("githubID", ghUser.ID),
			slog.String("error", err.Error()),
		)
		http.Error(w, "authentication failed", http.StatusInternalServerError)
		return
	}
	auth.SetSessionCookie(w, result.Token, h.cookies)

	// --- Step 5: Back to the page ---
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleLogout ends the session and sends the browser back to the page.
//
// HTTP: GET /logout
//
// The token's ID goes on the revocation list so the session is stale
// immediately, not just when the JWT expires. The cookie is cleared even
// when revocation fails; the next page load then shows the login view.
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if token := auth.TokenFromRequest(r); token != "" {
		if err := h.service.Logout(r.Context(), token); err != nil {
			h.logger.Error("logout: revoking token failed", slog.String("error", err.Error()))
		}
	}

	auth.ClearSessionCookie(w, h.cookies)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleUser returns the currently authenticated user's profile.
//
// HTTP: GET /api/user
// Auth: required (RequireAuth sets the user ID in the context)
//
// This is the session endpoint the page handler queries once per page load.
func (h *AuthHandler) HandleUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, ErrorResponse{
			Error:   "unauthorized",
			Message: "Not authenticated",
		})
		return
	}

	user, err := h.service.GetUserByID(r.Context(), userID)
	if err != nil {
		h.logger.Warn("HandleUser: lookup failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}
