package sqlite

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
)

type tasksRepo struct {
	db DBTX
}

const taskColumns = `id, user_id, title, description, status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (domain.Task, error) {
	var (
		t                domain.Task
		desc             sql.NullString
		status           string
		created, updated string
	)
	if err := row.Scan(&t.ID, &t.UserID, &t.Title, &desc, &status, &created, &updated); err != nil {
		return domain.Task{}, mapNotFound(err)
	}
	t.Description = stringPtr(desc)
	t.Status = domain.TaskStatus(status)

	var err error
	if t.CreatedAt, err = parseTime(created); err != nil {
		return domain.Task{}, err
	}
	if t.UpdatedAt, err = parseTime(updated); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (r *tasksRepo) CreateTask(ctx context.Context, t domain.Task) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Title, nullString(t.Description), string(t.Status),
		formatTime(t.CreatedAt), formatTime(t.UpdatedAt),
	)
	return mapConstraint(err)
}

func (r *tasksRepo) GetTask(ctx context.Context, userID, id string) (domain.Task, error) {
	return scanTask(r.db.QueryRowContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = ? AND user_id = ?`, id, userID))
}

func (r *tasksRepo) ListTasks(ctx context.Context, userID string, f domain.TaskFilter) ([]domain.Task, int, error) {
	where := []string{"user_id = ?"}
	args := []any{userID}
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Search != "" {
		where = append(where, "instr(title, ?) > 0")
		args = append(args, f.Search)
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tasks WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE `+cond+`
		  ORDER BY created_at DESC, id DESC
		  LIMIT ? OFFSET ?`,
		append(args, f.Limit, f.Offset)...,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	tasks := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, 0, err
		}
		tasks = append(tasks, t)
	}
	return tasks, total, rows.Err()
}

func (r *tasksRepo) UpdateTask(ctx context.Context, userID, id string, u domain.TaskUpdate, now time.Time) (domain.Task, error) {
	set := []string{"updated_at = ?"}
	args := []any{formatTime(now)}
	if u.Title != nil {
		set = append(set, "title = ?")
		args = append(args, *u.Title)
	}
	if u.Description != nil {
		set = append(set, "description = ?")
		args = append(args, *u.Description)
	}
	if u.Status != nil {
		set = append(set, "status = ?")
		args = append(args, string(*u.Status))
	}
	args = append(args, id, userID)

	return scanTask(r.db.QueryRowContext(ctx,
		`UPDATE tasks SET `+strings.Join(set, ", ")+`
		  WHERE id = ? AND user_id = ?
		  RETURNING `+taskColumns,
		args...,
	))
}

func (r *tasksRepo) ToggleTask(ctx context.Context, userID, id string, now time.Time) (domain.Task, error) {
	return scanTask(r.db.QueryRowContext(ctx,
		`UPDATE tasks
		    SET status = CASE status WHEN 'COMPLETED' THEN 'PENDING' ELSE 'COMPLETED' END,
		        updated_at = ?
		  WHERE id = ? AND user_id = ?
		  RETURNING `+taskColumns,
		formatTime(now), id, userID,
	))
}

func (r *tasksRepo) DeleteTask(ctx context.Context, userID, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
