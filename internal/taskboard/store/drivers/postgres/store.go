// Package postgres implements store.Store on PostgreSQL through a pgx
// connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to dsn and verifies the connection.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres: create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ping: %w", err)
	}

	return &Store{pool: pool}, nil
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx) // no-op after commit
	}()

	if err := fn(repos{db: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *Store) Users() store.Users                 { return repos{db: s.pool}.Users() }
func (s *Store) RefreshTokens() store.RefreshTokens { return repos{db: s.pool}.RefreshTokens() }
func (s *Store) RevokedTokens() store.RevokedTokens { return repos{db: s.pool}.RevokedTokens() }
func (s *Store) Tasks() store.Tasks                 { return repos{db: s.pool}.Tasks() }

type repos struct {
	db DBTX
}

func (r repos) Users() store.Users                 { return &usersRepo{db: r.db} }
func (r repos) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{db: r.db} }
func (r repos) RevokedTokens() store.RevokedTokens { return &revokedTokensRepo{db: r.db} }
func (r repos) Tasks() store.Tasks                 { return &tasksRepo{db: r.db} }

// uniqueViolation is SQLSTATE 23505.
const uniqueViolation = "23505"

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapConstraint(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", store.ErrAlreadyExists, pgErr.ConstraintName)
	}
	return err
}
