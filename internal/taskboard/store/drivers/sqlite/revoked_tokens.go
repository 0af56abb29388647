package sqlite

import (
	"context"
	"time"
)

type revokedTokensRepo struct {
	db DBTX
}

func (r *revokedTokensRepo) RevokeAccessToken(ctx context.Context, hash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO revoked_access_tokens (token_hash, expires_at, created_at)
		 VALUES (?, ?, ?)
		 ON CONFLICT (token_hash) DO NOTHING`,
		hash, formatTime(expiresAt), formatTime(time.Now()),
	)
	return err
}

func (r *revokedTokensRepo) IsAccessTokenRevoked(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_access_tokens WHERE token_hash = ?)`, hash,
	).Scan(&exists)
	return exists, err
}

func (r *revokedTokensRepo) DeleteExpiredRevokedTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM revoked_access_tokens WHERE expires_at < ?`, formatTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
