package service_test

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

// tickingClock advances one second per call so creation order is strict.
func tickingClock(start time.Time) func() time.Time {
	n := 0
	return func() time.Time {
		n++
		return start.Add(time.Duration(n) * time.Second)
	}
}

func TestTaskLifecycle(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Ada", "ada@example.com", "secret1")
	ada := f.login(t, "ada@example.com", "secret1").User
	ctx := t.Context()

	created, err := f.tasks.Create(ctx, ada.ID, service.CreateTaskInput{Title: "  Buy milk  "})
	require.NoError(t, err)
	require.Equal(t, "Buy milk", created.Title)
	require.Equal(t, domain.TaskPending, created.Status)
	require.Nil(t, created.Description)
	require.Equal(t, ada.ID, created.UserID)

	got, err := f.tasks.Get(ctx, ada.ID, created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)

	toggled, err := f.tasks.Toggle(ctx, ada.ID, created.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TaskCompleted, toggled.Status)

	toggled, err = f.tasks.Toggle(ctx, ada.ID, created.ID)
	require.NoError(t, err)
	require.Equal(t, domain.TaskPending, toggled.Status)

	updated, err := f.tasks.Update(ctx, ada.ID, created.ID, service.UpdateTaskInput{
		Title:       ptr("Buy oat milk"),
		Description: ptr("2 litres"),
		Status:      ptr("COMPLETED"),
	})
	require.NoError(t, err)
	require.Equal(t, "Buy oat milk", updated.Title)
	require.Equal(t, "2 litres", *updated.Description)
	require.Equal(t, domain.TaskCompleted, updated.Status)

	unchanged, err := f.tasks.Update(ctx, ada.ID, created.ID, service.UpdateTaskInput{})
	require.NoError(t, err)
	require.Equal(t, updated.Title, unchanged.Title)
	require.Equal(t, updated.Status, unchanged.Status)

	require.NoError(t, f.tasks.Delete(ctx, ada.ID, created.ID))
	_, err = f.tasks.Get(ctx, ada.ID, created.ID)
	require.ErrorIs(t, err, service.ErrTaskNotFound)
	require.ErrorIs(t, f.tasks.Delete(ctx, ada.ID, created.ID), service.ErrTaskNotFound)
}

func TestTasksAreScopedToTheirOwner(t *testing.T) {
	f := newFixture(t)
	f.register(t, "Ada", "ada@example.com", "secret1")
	f.register(t, "Bob", "bob@example.com", "secret1")
	ada := f.login(t, "ada@example.com", "secret1").User
	bob := f.login(t, "bob@example.com", "secret1").User
	ctx := t.Context()

	task, err := f.tasks.Create(ctx, ada.ID, service.CreateTaskInput{Title: "Private"})
	require.NoError(t, err)

	_, err = f.tasks.Get(ctx, bob.ID, task.ID)
	require.ErrorIs(t, err, service.ErrTaskNotFound)
	_, err = f.tasks.Toggle(ctx, bob.ID, task.ID)
	require.ErrorIs(t, err, service.ErrTaskNotFound)
	_, err = f.tasks.Update(ctx, bob.ID, task.ID, service.UpdateTaskInput{Title: ptr("Mine now")})
	require.ErrorIs(t, err, service.ErrTaskNotFound)
	require.ErrorIs(t, f.tasks.Delete(ctx, bob.ID, task.ID), service.ErrTaskNotFound)

	page, err := f.tasks.List(ctx, bob.ID, service.ListTasksInput{})
	require.NoError(t, err)
	require.Zero(t, page.Total)

	got, err := f.tasks.Get(ctx, ada.ID, task.ID)
	require.NoError(t, err)
	require.Equal(t, "Private", got.Title)
	require.Equal(t, domain.TaskPending, got.Status)
}

func TestTaskValidation(t *testing.T) {
	f := newFixture(t)
	ctx := t.Context()

	_, err := f.tasks.Create(ctx, "user", service.CreateTaskInput{Title: "   "})
	var verr *service.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, []service.FieldError{{Path: "title", Message: "Title is required"}}, verr.Fields)

	_, err = f.tasks.Update(ctx, "user", "id", service.UpdateTaskInput{Status: ptr("DONE")})
	require.ErrorAs(t, err, &verr)
	require.Equal(t, []service.FieldError{{Path: "status", Message: "Status must be PENDING or COMPLETED"}}, verr.Fields)

	_, err = f.tasks.List(ctx, "user", service.ListTasksInput{Page: -1, Limit: -5})
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 2)

	_, err = f.tasks.List(ctx, "user", service.ListTasksInput{Status: "DONE"})
	require.ErrorAs(t, err, &verr)
}

func TestListTasks(t *testing.T) {
	f := newFixture(t)
	f.tasks.Now = tickingClock(time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC))
	f.register(t, "Ada", "ada@example.com", "secret1")
	ada := f.login(t, "ada@example.com", "secret1").User
	ctx := t.Context()

	for i := 1; i <= 12; i++ {
		task, err := f.tasks.Create(ctx, ada.ID, service.CreateTaskInput{Title: fmt.Sprintf("Task %02d", i)})
		require.NoError(t, err)
		if i%3 == 0 {
			_, err = f.tasks.Toggle(ctx, ada.ID, task.ID)
			require.NoError(t, err)
		}
	}

	tests := []struct {
		name       string
		in         service.ListTasksInput
		wantTitles []string
		wantPage   int
		wantLimit  int
		wantTotal  int
		wantPages  int
		wantEmpty  bool
	}{
		{
			name:      "defaults",
			in:        service.ListTasksInput{},
			wantPage:  1,
			wantLimit: 10,
			wantTotal: 12,
			wantPages: 2,
		},
		{
			name:       "second page newest first",
			in:         service.ListTasksInput{Page: 2, Limit: 5},
			wantTitles: []string{"Task 07", "Task 06", "Task 05", "Task 04", "Task 03"},
			wantPage:   2,
			wantLimit:  5,
			wantTotal:  12,
			wantPages:  3,
		},
		{
			name:      "limit is capped",
			in:        service.ListTasksInput{Limit: 1000},
			wantPage:  1,
			wantLimit: service.MaxPageSize,
			wantTotal: 12,
			wantPages: 1,
		},
		{
			name:       "status filter",
			in:         service.ListTasksInput{Status: "COMPLETED"},
			wantTitles: []string{"Task 12", "Task 09", "Task 06", "Task 03"},
			wantPage:   1,
			wantLimit:  10,
			wantTotal:  4,
			wantPages:  1,
		},
		{
			name:       "search",
			in:         service.ListTasksInput{Search: "Task 1"},
			wantTitles: []string{"Task 12", "Task 11", "Task 10"},
			wantPage:   1,
			wantLimit:  10,
			wantTotal:  3,
			wantPages:  1,
		},
		{
			name:      "past the end",
			in:        service.ListTasksInput{Page: 9},
			wantPage:  9,
			wantLimit: 10,
			wantTotal: 12,
			wantPages: 2,
			wantEmpty: true,
		},
		{
			name:      "huge page stays past the end",
			in:        service.ListTasksInput{Page: math.MaxInt64 / 10, Limit: 100},
			wantPage:  math.MaxInt64 / 10,
			wantLimit: 100,
			wantTotal: 12,
			wantPages: 1,
			wantEmpty: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := f.tasks.List(ctx, ada.ID, tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.wantPage, page.Page)
			require.Equal(t, tt.wantLimit, page.Limit)
			require.Equal(t, tt.wantTotal, page.Total)
			require.Equal(t, tt.wantPages, page.TotalPages)
			if tt.wantEmpty {
				require.Empty(t, page.Tasks)
			}

			if tt.wantTitles != nil {
				titles := make([]string, 0, len(page.Tasks))
				for _, task := range page.Tasks {
					titles = append(titles, task.Title)
				}
				require.Equal(t, tt.wantTitles, titles)
			}
		})
	}
}
