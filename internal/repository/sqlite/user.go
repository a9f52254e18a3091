package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/sakif/pr-manager/internal/apperror"
	"github.com/sakif/pr-manager/internal/model"
	"github.com/sakif/pr-manager/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, github_id, login, name, email, avatar_url, github_token, created_at, updated_at`

// Upsert inserts or updates a user keyed by GitHub ID.
//
// An existing user keeps its internal ID and CreatedAt; login, name, email,
// avatar and GitHub token are refreshed because they may have changed since
// the last sign-in. On return user holds the canonical record.
//
// The insert and the update are one statement, so two logins of the same
// account racing each other both land on the same row.
func (db *DB) Upsert(ctx context.Context, user *model.User) error {
	now := time.Now().UTC()

	var id string
	err := db.conn.QueryRowContext(ctx,
		`INSERT INTO users (`+userColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(github_id) DO UPDATE SET
			login        = excluded.login,
			name         = excluded.name,
			email        = excluded.email,
			avatar_url   = excluded.avatar_url,
			github_token = excluded.github_token,
			updated_at   = excluded.updated_at
		 RETURNING id`,
		xid.New().String(),
		user.GitHubID,
		user.Login,
		user.Name,
		user.Email,
		user.AvatarURL,
		user.GitHubToken,
		now,
		now,
	).Scan(&id)
	if err != nil {
		return fmt.Errorf("sqlite: upserting user (githubID=%d): %w", user.GitHubID, err)
	}

	stored, err := db.GetUserByID(ctx, id)
	if err != nil {
		return err
	}
	*user = *stored
	return nil
}

// GetUserByID returns apperror.ErrNotFound if no user has that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

// GetByGitHubID returns apperror.ErrNotFound if the GitHub account never signed in.
func (db *DB) GetByGitHubID(ctx context.Context, githubID int64) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE github_id = ?`, githubID)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperror.NotFound("github user", fmt.Sprint(githubID))
		}
		return nil, fmt.Errorf("sqlite: getting user by github_id %d: %w", githubID, err)
	}
	return u, nil
}

func scanUser(row *sql.Row) (*model.User, error) {
	var u model.User
	err := row.Scan(
		&u.ID,
		&u.GitHubID,
		&u.Login,
		&u.Name,
		&u.Email,
		&u.AvatarURL,
		&u.GitHubToken,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}
