package sqlite

import (
	"context"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
)

type refreshTokensRepo struct {
	db DBTX
}

func (r *refreshTokensRepo) CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO refresh_tokens (id, user_id, token_hash, expires_at, revoked, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.TokenHash, formatTime(t.ExpiresAt), t.Revoked, formatTime(t.CreatedAt),
	)
	return mapConstraint(err)
}

func (r *refreshTokensRepo) ListActiveRefreshTokens(ctx context.Context, userID string) ([]domain.RefreshToken, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, token_hash, expires_at, revoked, created_at
		   FROM refresh_tokens
		  WHERE user_id = ? AND revoked = 0`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.RefreshToken
	for rows.Next() {
		var (
			t                domain.RefreshToken
			expires, created string
		)
		if err := rows.Scan(&t.ID, &t.UserID, &t.TokenHash, &expires, &t.Revoked, &created); err != nil {
			return nil, err
		}
		if t.ExpiresAt, err = parseTime(expires); err != nil {
			return nil, err
		}
		if t.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *refreshTokensRepo) RevokeRefreshToken(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`UPDATE refresh_tokens SET revoked = 1 WHERE id = ? AND revoked = 0`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *refreshTokensRepo) DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM refresh_tokens WHERE revoked = 1 AND expires_at < ?`, formatTime(now))
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
