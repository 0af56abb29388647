package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
	"github.com/jackc/pgx/v5"
)

type tasksRepo struct {
	db DBTX
}

const taskColumns = `id, user_id, title, description, status, created_at, updated_at`

func scanTask(row pgx.Row) (domain.Task, error) {
	var (
		t      domain.Task
		status string
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &t.Description, &status, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return domain.Task{}, mapNotFound(err)
	}
	t.Status = domain.TaskStatus(status)
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	return t, nil
}

func (r *tasksRepo) CreateTask(ctx context.Context, t domain.Task) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.UserID, t.Title, t.Description, string(t.Status), t.CreatedAt.UTC(), t.UpdatedAt.UTC(),
	)
	return mapConstraint(err)
}

func (r *tasksRepo) GetTask(ctx context.Context, userID, id string) (domain.Task, error) {
	return scanTask(r.db.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1 AND user_id = $2`, id, userID))
}

func (r *tasksRepo) ListTasks(ctx context.Context, userID string, f domain.TaskFilter) ([]domain.Task, int, error) {
	args := []any{userID}
	where := []string{"user_id = $1"}
	if f.Status != "" {
		args = append(args, string(f.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, f.Search)
		where = append(where, fmt.Sprintf("strpos(title, $%d) > 0", len(args)))
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM tasks WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	n := len(args)
	rows, err := r.db.Query(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE `+cond+fmt.Sprintf(`
		  ORDER BY created_at DESC, id DESC
		  LIMIT $%d OFFSET $%d`, n+1, n+2),
		append(args, f.Limit, f.Offset)...,
	)
	if err != nil {
		return nil, 0, err
	}
	tasks, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Task, error) {
		return scanTask(row)
	})
	if err != nil {
		return nil, 0, err
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, total, nil
}

func (r *tasksRepo) UpdateTask(ctx context.Context, userID, id string, u domain.TaskUpdate, now time.Time) (domain.Task, error) {
	args := []any{now.UTC()}
	set := []string{"updated_at = $1"}
	if u.Title != nil {
		args = append(args, *u.Title)
		set = append(set, fmt.Sprintf("title = $%d", len(args)))
	}
	if u.Description != nil {
		args = append(args, *u.Description)
		set = append(set, fmt.Sprintf("description = $%d", len(args)))
	}
	if u.Status != nil {
		args = append(args, string(*u.Status))
		set = append(set, fmt.Sprintf("status = $%d", len(args)))
	}
	n := len(args)
	args = append(args, id, userID)

	return scanTask(r.db.QueryRow(ctx,
		`UPDATE tasks SET `+strings.Join(set, ", ")+
			fmt.Sprintf(` WHERE id = $%d AND user_id = $%d RETURNING `, n+1, n+2)+taskColumns,
		args...,
	))
}

func (r *tasksRepo) ToggleTask(ctx context.Context, userID, id string, now time.Time) (domain.Task, error) {
	return scanTask(r.db.QueryRow(ctx,
		`UPDATE tasks
		    SET status = CASE status WHEN 'COMPLETED' THEN 'PENDING' ELSE 'COMPLETED' END,
		        updated_at = $1
		  WHERE id = $2 AND user_id = $3
		  RETURNING `+taskColumns,
		now.UTC(), id, userID,
	))
}

func (r *tasksRepo) DeleteTask(ctx context.Context, userID, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
