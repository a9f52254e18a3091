// Package service holds the business logic: authentication in AuthService,
// the GitHub repository browser in RepoService.
//
//	AuthHandler (HTTP) → AuthService → UserRepository, RevocationRepository (DB)
//	                                 ↘ TokenService (JWT)
//
// The services never touch HTTP: cookies and redirects stay in the handlers,
// so the same rules serve the middleware, the handlers and the purge job.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sakif/pr-manager/internal/apperror"
	"github.com/sakif/pr-manager/internal/auth"
	"github.com/sakif/pr-manager/internal/model"
	"github.com/sakif/pr-manager/internal/repository"
)

// AuthService implements auth.Authenticator.
type AuthService struct {
	users   repository.UserRepository
	revoked repository.RevocationRepository
	tokens  *auth.TokenService
	logger  *slog.Logger
	now     func() time.Time
}

var _ auth.Authenticator = (*AuthService)(nil)

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	revoked repository.RevocationRepository,
	tokens *auth.TokenService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:   users,
		revoked: revoked,
		tokens:  tokens,
		logger:  logger,
		now:     time.Now,
	}
}

// AuthResult bundles the user record and the issued token so the handler can
// set the cookie and redirect in one step.
type AuthResult struct {
	User  *model.User
	Token auth.Token
}

// LoginOrRegisterGitHub upserts the GitHub account (insert on first login,
// refresh the profile afterwards) and issues a session token for it.
func (s *AuthService) LoginOrRegisterGitHub(ctx context.Context, ghUser *auth.GitHubUser) (*AuthResult, error) {
	if ghUser == nil {
		return nil, fmt.Errorf("service/auth: GitHub user must not be nil")
	}

	user := &model.User{
		GitHubID:    ghUser.ID,
		Login:       ghUser.Login,
		Name:        ghUser.Name,
		Email:       ghUser.Email,
		AvatarURL:   ghUser.AvatarURL,
		GitHubToken: ghUser.AccessToken,
	}

	if err := s.users.Upsert(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: upserting user (githubID=%d): %w", ghUser.ID, err)
	}

	s.logger.Info("user authenticated via GitHub",
		slog.String("userID", user.ID),
		slog.String("login", user.Login),
	)

	token, err := s.tokens.Generate(user.ID)
	if err != nil {
		return nil, fmt.Errorf("service/auth: generating token for user %s: %w", user.ID, err)
	}

	return &AuthResult{User: user, Token: token}, nil
}

// GetUserByID returns the user for the given internal ID.
func (s *AuthService) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, apperror.ValidationFailed("id", "user ID must not be empty")
	}

	user, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}

	return user, nil
}

// Authenticate validates a session token and returns the user ID it carries.
// Expired, forged and logged-out tokens all yield apperror.ErrUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, token string) (string, error) {
	claims, err := s.tokens.Validate(token)
	if err != nil {
		s.logger.Debug("rejecting session token", slog.String("error", err.Error()))
		return "", fmt.Errorf("service/auth: %w", apperror.Unauthorized("Not authenticated"))
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		return "", fmt.Errorf("service/auth: checking revocation: %w", err)
	}
	if revoked {
		return "", fmt.Errorf("service/auth: %w", apperror.Unauthorized("session has ended"))
	}

	return claims.Subject, nil
}

// Logout ends the session carried by token. A token that is already invalid
// or expired has nothing left to end, so it is not an error.
func (s *AuthService) Logout(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}

	claims, err := s.tokens.Validate(token)
	if err != nil {
		if !errors.Is(err, auth.ErrTokenExpired) {
			s.logger.Debug("logout with invalid token", slog.String("error", err.Error()))
		}
		return nil
	}

	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		return fmt.Errorf("service/auth: revoking session: %w", err)
	}

	s.logger.Info("user logged out", slog.String("userID", claims.Subject))
	return nil
}

// PurgeRevoked forgets revocations for tokens that have expired on their own.
func (s *AuthService) PurgeRevoked(ctx context.Context) (int64, error) {
	n, err := s.revoked.PurgeExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("service/auth: purging revocations: %w", err)
	}
	return n, nil
}
