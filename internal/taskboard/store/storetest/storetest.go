// Package storetest holds the behaviour every store.Store driver must share.
package storetest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
	"github.com/aussiebroadwan/taskboard/pkg/idx"
	"github.com/stretchr/testify/require"
)

// Factory returns a migrated, ready store. Drivers backed by a shared
// database may return the same store each time; the suite scopes its data
// by freshly generated users.
type Factory func(t *testing.T) store.Store

// Run executes the suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	tests := []struct {
		name string
		fn   func(*testing.T, Factory)
	}{
		{"Users", testUsers},
		{"RefreshTokenLedger", testRefreshTokenLedger},
		{"RevokeRefreshTokenRace", testRevokeRefreshTokenRace},
		{"WithTxRollsBack", testWithTxRollsBack},
		{"RevokedTokens", testRevokedTokens},
		{"TasksOwnership", testTasksOwnership},
		{"TasksUpdateToggleDelete", testTasksUpdateToggleDelete},
		{"ListTasks", testListTasks},
		{"ForeignKeysEnforced", testForeignKeysEnforced},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) { tt.fn(t, newStore) })
	}
}

func uniqueEmail(local string) string {
	return local + "+" + strings.ToLower(idx.New().String()) + "@example.com"
}

func createUser(t *testing.T, s store.Store, local string) domain.User {
	t.Helper()
	now := time.Now().UTC()
	u := domain.User{
		ID:           idx.New().String(),
		Name:         "Test",
		Email:        uniqueEmail(local),
		PasswordHash: "hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(t, s.Users().CreateUser(t.Context(), u))
	return u
}

func testUsers(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := t.Context()

	u := createUser(t, s, "ada")

	got, err := s.Users().GetUserByEmail(ctx, u.Email)
	require.NoError(t, err)
	require.Equal(t, u.ID, got.ID)
	require.Equal(t, "hash", got.PasswordHash)
	require.WithinDuration(t, u.CreatedAt, got.CreatedAt, time.Millisecond)

	got, err = s.Users().GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, u.Email, got.Email)

	_, err = s.Users().GetUserByEmail(ctx, uniqueEmail("nobody"))
	require.ErrorIs(t, err, store.ErrNotFound)

	dup := u
	dup.ID = idx.New().String()
	require.ErrorIs(t, s.Users().CreateUser(ctx, dup), store.ErrAlreadyExists)
}

func testRefreshTokenLedger(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := t.Context()
	u := createUser(t, s, "ada")
	now := time.Now().UTC()

	live := domain.RefreshToken{ID: idx.New().String(), UserID: u.ID, TokenHash: "h1", ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	stale := domain.RefreshToken{ID: idx.New().String(), UserID: u.ID, TokenHash: "h2", ExpiresAt: now.Add(-time.Hour), CreatedAt: now}
	spent := domain.RefreshToken{ID: idx.New().String(), UserID: u.ID, TokenHash: "h3", ExpiresAt: now.Add(-time.Hour), CreatedAt: now}
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, live))
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, stale))
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, spent))

	active, err := s.RefreshTokens().ListActiveRefreshTokens(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, active, 3, "expired but unrevoked records are still listed")

	ok, err := s.RefreshTokens().RevokeRefreshToken(ctx, spent.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.RefreshTokens().RevokeRefreshToken(ctx, live.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = s.RefreshTokens().RevokeRefreshToken(ctx, live.ID)
	require.NoError(t, err)
	require.False(t, ok, "second revoke must report it lost")

	active, err = s.RefreshTokens().ListActiveRefreshTokens(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, stale.ID, active[0].ID)
	require.True(t, active[0].Expired(now))

	// Only the revoked and expired record goes; the revoked live one and the
	// expired unrevoked one stay.
	n, err := s.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	n, err = s.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now)
	require.NoError(t, err)
	require.Zero(t, n)

	active, err = s.RefreshTokens().ListActiveRefreshTokens(ctx, u.ID)
	require.NoError(t, err)
	require.Len(t, active, 1)
	require.Equal(t, stale.ID, active[0].ID)

	n, err = s.RefreshTokens().DeleteExpiredRefreshTokens(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Equal(t, int64(1), n, "the revoked live record goes once it expires")
}

func testRevokeRefreshTokenRace(t *testing.T, newStore Factory) {
	s := newStore(t)
	u := createUser(t, s, "ada")
	now := time.Now().UTC()

	rec := domain.RefreshToken{ID: idx.New().String(), UserID: u.ID, TokenHash: "h", ExpiresAt: now.Add(time.Hour), CreatedAt: now}
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(t.Context(), rec))

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithTx(context.Background(), func(tx store.Tx) error {
				ok, err := tx.RefreshTokens().RevokeRefreshToken(context.Background(), rec.ID)
				if err != nil {
					return err
				}
				if ok {
					wins.Add(1)
				}
				return nil
			})
		}()
	}
	wg.Wait()
	require.EqualValues(t, 1, wins.Load())
}

func testWithTxRollsBack(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := t.Context()

	email := uniqueEmail("x")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		now := time.Now()
		require.NoError(t, tx.Users().CreateUser(ctx, domain.User{
			ID: idx.New().String(), Name: "x", Email: email, PasswordHash: "h", CreatedAt: now, UpdatedAt: now,
		}))
		return fmt.Errorf("boom")
	})
	require.EqualError(t, err, "boom")

	_, err = s.Users().GetUserByEmail(ctx, email)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testRevokedTokens(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := t.Context()
	now := time.Now().UTC()

	fp, old := idx.New().String(), idx.New().String()

	revoked, err := s.RevokedTokens().IsAccessTokenRevoked(ctx, fp)
	require.NoError(t, err)
	require.False(t, revoked)

	require.NoError(t, s.RevokedTokens().RevokeAccessToken(ctx, fp, now.Add(time.Minute)))
	require.NoError(t, s.RevokedTokens().RevokeAccessToken(ctx, fp, now.Add(time.Minute)))
	require.NoError(t, s.RevokedTokens().RevokeAccessToken(ctx, old, now.Add(-time.Minute)))

	revoked, err = s.RevokedTokens().IsAccessTokenRevoked(ctx, fp)
	require.NoError(t, err)
	require.True(t, revoked)

	n, err := s.RevokedTokens().DeleteExpiredRevokedTokens(ctx, now)
	require.NoError(t, err)
	require.GreaterOrEqual(t, n, int64(1))

	revoked, err = s.RevokedTokens().IsAccessTokenRevoked(ctx, fp)
	require.NoError(t, err)
	require.True(t, revoked, "unexpired entries survive the sweep")

	revoked, err = s.RevokedTokens().IsAccessTokenRevoked(ctx, old)
	require.NoError(t, err)
	require.False(t, revoked)
}

func newTask(userID, title string, at time.Time) domain.Task {
	return domain.Task{
		ID:        idx.NewAt(at).String(),
		UserID:    userID,
		Title:     title,
		Status:    domain.TaskPending,
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func testTasksOwnership(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := t.Context()
	alice := createUser(t, s, "alice")
	bob := createUser(t, s, "bob")

	task := newTask(alice.ID, "Buy milk", time.Now().UTC())
	require.NoError(t, s.Tasks().CreateTask(ctx, task))

	_, err := s.Tasks().GetTask(ctx, bob.ID, task.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	title := "hijacked"
	_, err = s.Tasks().UpdateTask(ctx, bob.ID, task.ID, domain.TaskUpdate{Title: &title}, time.Now())
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = s.Tasks().ToggleTask(ctx, bob.ID, task.ID, time.Now())
	require.ErrorIs(t, err, store.ErrNotFound)

	require.ErrorIs(t, s.Tasks().DeleteTask(ctx, bob.ID, task.ID), store.ErrNotFound)

	got, err := s.Tasks().GetTask(ctx, alice.ID, task.ID)
	require.NoError(t, err)
	require.Equal(t, "Buy milk", got.Title)
	require.Nil(t, got.Description)
}

func testTasksUpdateToggleDelete(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := t.Context()
	u := createUser(t, s, "ada")

	task := newTask(u.ID, "Buy milk", time.Now().UTC())
	require.NoError(t, s.Tasks().CreateTask(ctx, task))

	toggled, err := s.Tasks().ToggleTask(ctx, u.ID, task.ID, time.Now())
	require.NoError(t, err)
	require.Equal(t, domain.TaskCompleted, toggled.Status)

	toggled, err = s.Tasks().ToggleTask(ctx, u.ID, task.ID, time.Now())
	require.NoError(t, err)
	require.Equal(t, domain.TaskPending, toggled.Status)

	desc := "2 litres"
	status := domain.TaskCompleted
	later := time.Now().UTC().Add(time.Minute)
	updated, err := s.Tasks().UpdateTask(ctx, u.ID, task.ID, domain.TaskUpdate{Description: &desc, Status: &status}, later)
	require.NoError(t, err)
	require.Equal(t, "Buy milk", updated.Title)
	require.Equal(t, &desc, updated.Description)
	require.Equal(t, domain.TaskCompleted, updated.Status)
	require.WithinDuration(t, later, updated.UpdatedAt, time.Millisecond)

	require.NoError(t, s.Tasks().DeleteTask(ctx, u.ID, task.ID))
	_, err = s.Tasks().GetTask(ctx, u.ID, task.ID)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testListTasks(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := t.Context()
	u := createUser(t, s, "ada")
	other := createUser(t, s, "other")

	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	titles := []string{"Buy milk", "Walk dog", "Buy bread", "File taxes", "buy stamps"}
	for i, title := range titles {
		task := newTask(u.ID, title, base.Add(time.Duration(i)*time.Minute))
		if i%2 == 1 {
			task.Status = domain.TaskCompleted
		}
		require.NoError(t, s.Tasks().CreateTask(ctx, task))
	}
	require.NoError(t, s.Tasks().CreateTask(ctx, newTask(other.ID, "Buy milk", base)))

	tests := []struct {
		name      string
		filter    domain.TaskFilter
		wantTotal int
		wantTitle []string
	}{
		{"newest first", domain.TaskFilter{Limit: 10}, 5, []string{"buy stamps", "File taxes", "Buy bread", "Walk dog", "Buy milk"}},
		{"paged", domain.TaskFilter{Limit: 2, Offset: 2}, 5, []string{"Buy bread", "Walk dog"}},
		{"status", domain.TaskFilter{Status: domain.TaskCompleted, Limit: 10}, 2, []string{"File taxes", "Walk dog"}},
		{"search is case sensitive", domain.TaskFilter{Search: "Buy", Limit: 10}, 2, []string{"Buy bread", "Buy milk"}},
		{"search and status", domain.TaskFilter{Search: "Buy", Status: domain.TaskPending, Limit: 10}, 2, []string{"Buy bread", "Buy milk"}},
		{"search wildcard is literal", domain.TaskFilter{Search: "%", Limit: 10}, 0, []string{}},
		{"past the end", domain.TaskFilter{Limit: 10, Offset: 10}, 5, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tasks, total, err := s.Tasks().ListTasks(ctx, u.ID, tt.filter)
			require.NoError(t, err)
			require.Equal(t, tt.wantTotal, total)

			got := make([]string, 0, len(tasks))
			for _, task := range tasks {
				require.Equal(t, u.ID, task.UserID)
				got = append(got, task.Title)
			}
			require.Equal(t, tt.wantTitle, got)
		})
	}
}

func testForeignKeysEnforced(t *testing.T, newStore Factory) {
	s := newStore(t)
	ctx := t.Context()
	u := createUser(t, s, "ada")
	require.NoError(t, s.Tasks().CreateTask(ctx, newTask(u.ID, "x", time.Now().UTC())))

	other := newTask(idx.New().String(), "orphan", time.Now().UTC())
	require.Error(t, s.Tasks().CreateTask(ctx, other), "foreign keys are enforced")
}
