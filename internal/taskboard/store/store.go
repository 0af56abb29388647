package store

import (
	"context"
	"errors"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface implemented by the sqlite and
// postgres drivers. Repositories hang off it as methods so a Tx can hand out
// the same repositories bound to the transaction, and nothing can open a
// transaction inside another.
type Store interface {
	Users() Users
	RefreshTokens() RefreshTokens
	RevokedTokens() RevokedTokens
	Tasks() Tasks

	ApplyMigrations() error

	// WithTx runs fn in a read/write transaction. The transaction commits
	// when fn returns nil and rolls back otherwise.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx exposes the repositories bound to an open transaction.
type Tx interface {
	Users() Users
	RefreshTokens() RefreshTokens
	RevokedTokens() RevokedTokens
	Tasks() Tasks
}

type Users interface {
	// CreateUser inserts u. A duplicate email returns ErrAlreadyExists.
	CreateUser(ctx context.Context, u domain.User) error

	GetUserByID(ctx context.Context, id string) (domain.User, error)

	// GetUserByEmail expects an already normalised email.
	GetUserByEmail(ctx context.Context, email string) (domain.User, error)
}

// RefreshTokens is the refresh token ledger.
type RefreshTokens interface {
	CreateRefreshToken(ctx context.Context, t domain.RefreshToken) error

	// ListActiveRefreshTokens returns the user's records with revoked=false,
	// expired or not.
	ListActiveRefreshTokens(ctx context.Context, userID string) ([]domain.RefreshToken, error)

	// RevokeRefreshToken flips revoked to true if it is currently false and
	// reports whether this call made the change.
	RevokeRefreshToken(ctx context.Context, id string) (bool, error)

	// DeleteExpiredRefreshTokens removes revoked records that expired before
	// now. Unrevoked records are kept.
	DeleteExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

// RevokedTokens is the access token blacklist, keyed by fingerprint.
type RevokedTokens interface {
	// RevokeAccessToken records hash until expiresAt. Repeats are ignored.
	RevokeAccessToken(ctx context.Context, hash string, expiresAt time.Time) error

	IsAccessTokenRevoked(ctx context.Context, hash string) (bool, error)

	// DeleteExpiredRevokedTokens removes entries that expired before now.
	DeleteExpiredRevokedTokens(ctx context.Context, now time.Time) (int64, error)
}

// Tasks scopes every call by owner. A task owned by someone else behaves
// exactly like a missing one and returns ErrNotFound.
type Tasks interface {
	CreateTask(ctx context.Context, t domain.Task) error

	GetTask(ctx context.Context, userID, id string) (domain.Task, error)

	// ListTasks returns one page of the user's tasks, newest first, and the
	// total number matching the filter.
	ListTasks(ctx context.Context, userID string, f domain.TaskFilter) ([]domain.Task, int, error)

	UpdateTask(ctx context.Context, userID, id string, u domain.TaskUpdate, now time.Time) (domain.Task, error)

	// ToggleTask flips the status in a single statement.
	ToggleTask(ctx context.Context, userID, id string, now time.Time) (domain.Task, error)

	DeleteTask(ctx context.Context, userID, id string) error
}
