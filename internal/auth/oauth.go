package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const defaultGitHubAPI = "https://api.github.com"

// GitHubUser is the portion of the GitHub /user API response we keep.
//
// GitHub API docs: https://docs.github.com/en/rest/users/users#get-the-authenticated-user
type GitHubUser struct {
	ID        int64  `json:"id"`         // stable numeric ID
	Login     string `json:"login"`      // handle, e.g. "octocat"
	Name      string `json:"name"`       // display name; null on GitHub decodes to ""
	Email     string `json:"email"`      // empty if hidden in GitHub settings
	AvatarURL string `json:"avatar_url"` // profile picture URL

	// AccessToken is the OAuth token the profile was fetched with. The
	// repository API calls GitHub with it on the user's behalf.
	AccessToken string `json:"-"`
}

// GitHubProvider wraps golang.org/x/oauth2 for the GitHub Authorization Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. /login/github redirects the browser to GitHub with our ClientID and scopes.
//  2. The user approves (or denies) on GitHub.
//  3. GitHub redirects to /callback/github with a short-lived "code".
//  4. We exchange the code for an access token, server to server.
//  5. We call the GitHub API with the token to learn who the user is.
//
// The access token never reaches the browser; only our own session JWT does.
// It is kept server-side so the repository API can act as the user.
type GitHubProvider struct {
	config  *oauth2.Config
	apiBase string
}

// ProviderOption customises a GitHubProvider.
type ProviderOption func(*GitHubProvider)

// WithEndpoint replaces GitHub's authorize/token endpoints (GitHub Enterprise, tests).
func WithEndpoint(ep oauth2.Endpoint) ProviderOption {
	return func(p *GitHubProvider) { p.config.Endpoint = ep }
}

// WithAPIBaseURL replaces https://api.github.com.
func WithAPIBaseURL(base string) ProviderOption {
	return func(p *GitHubProvider) { p.apiBase = strings.TrimRight(base, "/") }
}

// NewGitHubProvider creates a GitHubProvider with the given credentials.
//
// callbackURL must match the "Authorization callback URL" registered for the
// OAuth App exactly, e.g. "http://localhost:8080/callback/github".
//
// Scopes: "read:user" for the public profile, "user:email" for the email,
// "repo" so the repository browser can list private repositories and their
// pull requests.
func NewGitHubProvider(clientID, clientSecret, callbackURL string, opts ...ProviderOption) *GitHubProvider {
	p := &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email", "repo"},
			Endpoint:     github.Endpoint,
		},
		apiBase: defaultGitHubAPI,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AuthURL returns the GitHub authorization URL carrying state.
//
// The same state is stored in a short-lived cookie; the callback compares the
// two to reject forged callbacks (CSRF).
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades an authorization code for the GitHub profile of the user
// who approved it.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*GitHubUser, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// The returned client adds "Authorization: Bearer <token>" to every request.
	client := p.config.Client(ctx, oauthToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.apiBase+"/user", nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building GitHub /user request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var ghUser GitHubUser
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return nil, fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}

	if ghUser.ID == 0 || ghUser.Login == "" {
		return nil, fmt.Errorf("auth: GitHub returned an invalid user (id=%d, login=%q)", ghUser.ID, ghUser.Login)
	}
	ghUser.AccessToken = oauthToken.AccessToken

	return &ghUser, nil
}
