package handler_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sakif/pr-manager/internal/auth"
	sqliteRepo "github.com/sakif/pr-manager/internal/repository/sqlite"
	"github.com/sakif/pr-manager/internal/service"
)

const testSecret = "handler-test-secret-0123456789"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestService wires an AuthService over an in-memory database.
func newTestService(t *testing.T) *service.AuthService {
	t.Helper()
	db, err := sqliteRepo.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tokens, err := auth.NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)

	return service.NewAuthService(db, db, tokens, discardLogger())
}

// fakeProvider stands in for GitHub.
type fakeProvider struct {
	user *auth.GitHubUser
	err  error
	code string // the code Exchange was called with
}

func (p *fakeProvider) AuthURL(state string) string {
	return "https://github.example.com/login/oauth/authorize?state=" + state
}

func (p *fakeProvider) Exchange(ctx context.Context, code string) (*auth.GitHubUser, error) {
	p.code = code
	if p.err != nil {
		return nil, p.err
	}
	if p.user == nil {
		return nil, errors.New("no user configured")
	}
	return p.user, nil
}

var octocat = &auth.GitHubUser{
	ID:        583231,
	Login:     "octocat",
	Name:      "The Octocat",
	AvatarURL: "https://avatars.example.com/u/583231",
}
