package tasksdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
)

const pathTasks = "/api/tasks"

func taskPath(id string) string {
	return pathTasks + "/" + url.PathEscape(id)
}

// Me returns the authenticated user's profile.
func (s *Session) Me(ctx context.Context) (*User, error) {
	var out User
	if err := s.do(ctx, http.MethodGet, pathMe, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTasks returns one page of the user's tasks, newest first.
func (s *Session) ListTasks(ctx context.Context, params ListTasksParams) (*TaskList, error) {
	q := url.Values{}
	if params.Page > 0 {
		q.Set("page", strconv.Itoa(params.Page))
	}
	if params.Limit > 0 {
		q.Set("limit", strconv.Itoa(params.Limit))
	}
	if params.Status != "" {
		q.Set("status", string(params.Status))
	}
	if params.Search != "" {
		q.Set("search", params.Search)
	}

	path := pathTasks
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out TaskList
	if err := s.do(ctx, http.MethodGet, path, nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) CreateTask(ctx context.Context, req CreateTaskRequest) (*Task, error) {
	var out Task
	if err := s.do(ctx, http.MethodPost, pathTasks, req, &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) GetTask(ctx context.Context, id string) (*Task, error) {
	var out Task
	if err := s.do(ctx, http.MethodGet, taskPath(id), nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateTask applies the non-nil fields of req.
func (s *Session) UpdateTask(ctx context.Context, id string, req UpdateTaskRequest) (*Task, error) {
	var out Task
	if err := s.do(ctx, http.MethodPatch, taskPath(id), req, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Session) DeleteTask(ctx context.Context, id string) error {
	return s.do(ctx, http.MethodDelete, taskPath(id), nil, nil, http.StatusOK)
}

// ToggleTask flips the task between PENDING and COMPLETED.
func (s *Session) ToggleTask(ctx context.Context, id string) (*Task, error) {
	var out Task
	if err := s.do(ctx, http.MethodPatch, taskPath(id)+"/toggle", nil, &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}
