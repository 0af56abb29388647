package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
	_ "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so repositories work the
// same inside and outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	db *sql.DB
}

// DSN builds a connection string for path with WAL and a busy timeout so
// concurrent writers wait instead of failing with SQLITE_BUSY.
func DSN(path string) string {
	if path == ":memory:" {
		return "file::memory:?_pragma=foreign_keys(1)"
	}
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", path)
}

// NewStore opens the database at path. Use ":memory:" for tests.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", DSN(path))
	if err != nil {
		return nil, err
	}

	// Writers are serialised by sqlite anyway. An in-memory database only
	// exists on the connection that created it.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(context.Background(), `PRAGMA foreign_keys = ON;`); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback() // no-op after commit
	}()

	if err := fn(repos{db: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *Store) Users() store.Users                 { return repos{db: s.db}.Users() }
func (s *Store) RefreshTokens() store.RefreshTokens { return repos{db: s.db}.RefreshTokens() }
func (s *Store) RevokedTokens() store.RevokedTokens { return repos{db: s.db}.RevokedTokens() }
func (s *Store) Tasks() store.Tasks                 { return repos{db: s.db}.Tasks() }

// repos hands out repositories bound to db, which is either the pool or an
// open transaction.
type repos struct {
	db DBTX
}

func (r repos) Users() store.Users                 { return &usersRepo{db: r.db} }
func (r repos) RefreshTokens() store.RefreshTokens { return &refreshTokensRepo{db: r.db} }
func (r repos) RevokedTokens() store.RevokedTokens { return &revokedTokensRepo{db: r.db} }
func (r repos) Tasks() store.Tasks                 { return &tasksRepo{db: r.db} }

func mapNotFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	return err
}

func mapConstraint(err error) error {
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		switch coded.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return fmt.Errorf("%w: %v", store.ErrAlreadyExists, err)
		}
	}
	return err
}

// Timestamps are stored as fixed-width UTC text so that string comparison
// and ordering match time ordering.
const timeLayout = "2006-01-02T15:04:05.000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: parse time %q: %w", s, err)
	}
	return t, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.String
	return &v
}
