package postgres

import (
	"context"
	"time"
)

type revokedTokensRepo struct {
	db DBTX
}

func (r *revokedTokensRepo) RevokeAccessToken(ctx context.Context, hash string, expiresAt time.Time) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO revoked_access_tokens (token_hash, expires_at)
		 VALUES ($1, $2)
		 ON CONFLICT (token_hash) DO NOTHING`,
		hash, expiresAt.UTC(),
	)
	return err
}

func (r *revokedTokensRepo) IsAccessTokenRevoked(ctx context.Context, hash string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM revoked_access_tokens WHERE token_hash = $1)`, hash,
	).Scan(&exists)
	return exists, err
}

func (r *revokedTokensRepo) DeleteExpiredRevokedTokens(ctx context.Context, now time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM revoked_access_tokens WHERE expires_at < $1`, now.UTC())
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
