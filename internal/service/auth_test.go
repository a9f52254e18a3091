package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/sakif/pr-manager/internal/apperror"
	"github.com/sakif/pr-manager/internal/auth"
	"github.com/sakif/pr-manager/internal/model"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

// fakeUserRepo is an in-memory repository.UserRepository.
type fakeUserRepo struct {
	users  map[string]*model.User // keyed by internal ID
	byGHID map[int64]*model.User
	nextID int
	// set to simulate a database failure
	upsertErr  error
	getByIDErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:  make(map[string]*model.User),
		byGHID: make(map[int64]*model.User),
		nextID: 1,
	}
}

func (f *fakeUserRepo) Upsert(ctx context.Context, user *model.User) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	if existing, ok := f.byGHID[user.GitHubID]; ok {
		existing.Login = user.Login
		existing.Name = user.Name
		existing.Email = user.Email
		existing.AvatarURL = user.AvatarURL
		existing.GitHubToken = user.GitHubToken
		existing.UpdatedAt = time.Now()
		*user = *existing
		return nil
	}
	user.ID = fmt.Sprintf("user-fake-id-%d", f.nextID)
	f.nextID++
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	copied := *user
	f.users[user.ID] = &copied
	f.byGHID[user.GitHubID] = &copied
	return nil
}

func (f *fakeUserRepo) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	if f.getByIDErr != nil {
		return nil, f.getByIDErr
	}
	u, ok := f.users[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	return u, nil
}

func (f *fakeUserRepo) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	u, ok := f.byGHID[githubID]
	if !ok {
		return nil, apperror.NotFound("github user", fmt.Sprint(githubID))
	}
	return u, nil
}

// fakeRevocations is an in-memory repository.RevocationRepository.
type fakeRevocations struct {
	expiry   map[string]time.Time
	checkErr error
}

func newFakeRevocations() *fakeRevocations {
	return &fakeRevocations{expiry: make(map[string]time.Time)}
}

func (f *fakeRevocations) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	f.expiry[tokenID] = expiresAt
	return nil
}

func (f *fakeRevocations) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	if f.checkErr != nil {
		return false, f.checkErr
	}
	_, ok := f.expiry[tokenID]
	return ok, nil
}

func (f *fakeRevocations) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for id, exp := range f.expiry {
		if exp.Before(now) {
			delete(f.expiry, id)
			n++
		}
	}
	return n, nil
}

func newTestTokens(t *testing.T) *auth.TokenService {
	t.Helper()
	ts, err := auth.NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// newTestAuthService returns an AuthService wired with fake dependencies.
func newTestAuthService(t *testing.T, repo *fakeUserRepo, revoked *fakeRevocations) *AuthService {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewAuthService(repo, revoked, newTestTokens(t), logger)
}

// =========================================================================
// LoginOrRegisterGitHub TESTS
// =========================================================================

func TestLoginOrRegisterGitHub_NewUser(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo(), newFakeRevocations())

	result, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{
		ID:          42,
		Login:       "octocat",
		Name:        "The Octocat",
		AvatarURL:   "https://avatars.githubusercontent.com/u/42",
		AccessToken: "gho_octocat",
	})
	if err != nil {
		t.Fatalf("LoginOrRegisterGitHub() error = %v", err)
	}

	if result.User.ID == "" {
		t.Error("User.ID should be set after upsert")
	}
	if result.User.Name != "The Octocat" {
		t.Errorf("User.Name = %q, want %q", result.User.Name, "The Octocat")
	}
	if result.User.GitHubToken != "gho_octocat" {
		t.Errorf("User.GitHubToken = %q, want the OAuth access token", result.User.GitHubToken)
	}
	if result.Token.Value == "" || result.Token.ID == "" {
		t.Fatalf("LoginOrRegisterGitHub() returned incomplete token %+v", result.Token)
	}
}

func TestLoginOrRegisterGitHub_ExistingUserGetsUpdatedProfile(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo(), newFakeRevocations())

	first, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 99, Login: "old-login"})
	if err != nil {
		t.Fatalf("first login error: %v", err)
	}

	second, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 99, Login: "new-login", Name: "New"})
	if err != nil {
		t.Fatalf("second login error: %v", err)
	}

	if second.User.ID != first.User.ID {
		t.Errorf("User.ID changed across logins: %q → %q", first.User.ID, second.User.ID)
	}
	if second.User.Login != "new-login" {
		t.Errorf("User.Login after update = %q, want %q", second.User.Login, "new-login")
	}
}

func TestLoginOrRegisterGitHub_NilGitHubUser(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo(), newFakeRevocations())

	if _, err := svc.LoginOrRegisterGitHub(context.Background(), nil); err == nil {
		t.Fatal("LoginOrRegisterGitHub() should return error for nil GitHubUser")
	}
}

func TestLoginOrRegisterGitHub_RepositoryError(t *testing.T) {
	repo := newFakeUserRepo()
	repo.upsertErr = errors.New("database is on fire")
	svc := newTestAuthService(t, repo, newFakeRevocations())

	_, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 1, Login: "user"})
	if !errors.Is(err, repo.upsertErr) {
		t.Fatalf("error = %v, want wrapped repository error", err)
	}
}

// =========================================================================
// GetUserByID TESTS
// =========================================================================

func TestGetUserByID(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo(), newFakeRevocations())

	result, err := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 7, Login: "findme"})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	user, err := svc.GetUserByID(context.Background(), result.User.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if user.Login != "findme" {
		t.Errorf("user.Login = %q, want %q", user.Login, "findme")
	}
}

func TestGetUserByID_Errors(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo(), newFakeRevocations())

	tests := []struct {
		name string
		id   string
		want error
	}{
		{"empty id", "", apperror.ErrValidation},
		{"unknown id", "non-existent-id", apperror.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetUserByID(context.Background(), tt.id)
			if !errors.Is(err, tt.want) {
				t.Errorf("GetUserByID(%q) error = %v, want %v", tt.id, err, tt.want)
			}
		})
	}
}

// =========================================================================
// Authenticate / Logout TESTS
// =========================================================================

func TestAuthenticate_ValidToken(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo(), newFakeRevocations())
	result, _ := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 5, Login: "tok"})

	userID, err := svc.Authenticate(context.Background(), result.Token.Value)
	if err != nil {
		t.Fatalf("Authenticate() error = %v", err)
	}
	if userID != result.User.ID {
		t.Errorf("userID = %q, want %q", userID, result.User.ID)
	}
}

func TestAuthenticate_InvalidToken(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo(), newFakeRevocations())

	_, err := svc.Authenticate(context.Background(), "this.is.garbage")
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("Authenticate() error = %v, want ErrUnauthorized", err)
	}
}

func TestAuthenticate_RevocationCheckFailure(t *testing.T) {
	revoked := newFakeRevocations()
	revoked.checkErr = errors.New("disk I/O error")
	svc := newTestAuthService(t, newFakeUserRepo(), revoked)
	result, _ := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 5, Login: "tok"})

	_, err := svc.Authenticate(context.Background(), result.Token.Value)
	if !errors.Is(err, revoked.checkErr) {
		t.Fatalf("Authenticate() error = %v, want wrapped storage error", err)
	}
}

func TestLogout_EndsSession(t *testing.T) {
	revoked := newFakeRevocations()
	svc := newTestAuthService(t, newFakeUserRepo(), revoked)
	result, _ := svc.LoginOrRegisterGitHub(context.Background(), &auth.GitHubUser{ID: 5, Login: "tok"})

	if err := svc.Logout(context.Background(), result.Token.Value); err != nil {
		t.Fatalf("Logout() error = %v", err)
	}

	_, err := svc.Authenticate(context.Background(), result.Token.Value)
	if !errors.Is(err, apperror.ErrUnauthorized) {
		t.Fatalf("Authenticate() after logout error = %v, want ErrUnauthorized", err)
	}
	if !revoked.expiry[result.Token.ID].Equal(result.Token.ExpiresAt) {
		t.Errorf("revocation expiry = %v, want token expiry %v", revoked.expiry[result.Token.ID], result.Token.ExpiresAt)
	}
}

func TestLogout_WithoutUsableTokenIsNoop(t *testing.T) {
	revoked := newFakeRevocations()
	svc := newTestAuthService(t, newFakeUserRepo(), revoked)

	expired, err := newTestTokens(t).GenerateWithDuration("user-1", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateWithDuration() error = %v", err)
	}

	for _, token := range []string{"", "garbage", expired.Value} {
		if err := svc.Logout(context.Background(), token); err != nil {
			t.Errorf("Logout(%q) error = %v, want nil", token, err)
		}
	}
	if len(revoked.expiry) != 0 {
		t.Errorf("Logout() revoked %d tokens, want 0", len(revoked.expiry))
	}
}

func TestPurgeRevoked(t *testing.T) {
	revoked := newFakeRevocations()
	svc := newTestAuthService(t, newFakeUserRepo(), revoked)
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	revoked.expiry["old"] = now.Add(-time.Hour)
	revoked.expiry["fresh"] = now.Add(time.Hour)

	n, err := svc.PurgeRevoked(context.Background())
	if err != nil {
		t.Fatalf("PurgeRevoked() error = %v", err)
	}
	if n != 1 {
		t.Errorf("PurgeRevoked() = %d, want 1", n)
	}
	if _, ok := revoked.expiry["fresh"]; !ok {
		t.Error("PurgeRevoked() dropped an unexpired revocation")
	}
}
