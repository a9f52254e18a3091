// Package repository declares the storage interfaces the service layer
// depends on. internal/repository/sqlite implements them.
package repository

import (
	"context"
	"time"

	"github.com/sakif/pr-manager/internal/model"
)

// UserRepository stores GitHub accounts that have signed in.
type UserRepository interface {
	// Upsert inserts the user on first login and refreshes the profile on
	// later logins, keyed by GitHubID. It fills in ID and timestamps.
	Upsert(ctx context.Context, user *model.User) error
	GetUserByID(ctx context.Context, id string) (*model.User, error)
	GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error)
}

// RevocationRepository remembers session tokens ended by logout until they
// would have expired anyway.
type RevocationRepository interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
	// PurgeExpired deletes revocations whose token expired before now and
	// returns how many rows went.
	PurgeExpired(ctx context.Context, now time.Time) (int64, error)
}
