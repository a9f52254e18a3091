package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/sakif/pr-manager/internal/repository"
)

var _ repository.RevocationRepository = (*DB)(nil)

// Revoke records tokenID as logged out. Revoking twice keeps the later expiry.
func (db *DB) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO revoked_tokens (token_id, expires_at) VALUES (?, ?)
		 ON CONFLICT(token_id) DO UPDATE SET expires_at = MAX(expires_at, excluded.expires_at)`,
		tokenID, expiresAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("sqlite: revoking token %s: %w", tokenID, err)
	}
	return nil
}

func (db *DB) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	var n int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM revoked_tokens WHERE token_id = ?`, tokenID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("sqlite: checking token %s: %w", tokenID, err)
	}
	return n > 0, nil
}

func (db *DB) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM revoked_tokens WHERE expires_at < ?`, now.Unix())
	if err != nil {
		return 0, fmt.Errorf("sqlite: purging revoked tokens: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: counting purged tokens: %w", err)
	}
	return n, nil
}
