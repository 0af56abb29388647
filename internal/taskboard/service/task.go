package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store"
	"github.com/aussiebroadwan/taskboard/pkg/idx"
	"github.com/aussiebroadwan/taskboard/pkg/slogx"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 100

	// maxOffset bounds the row offset so huge page numbers cannot overflow.
	maxOffset = math.MaxInt32
)

type CreateTaskInput struct {
	Title       string  `json:"title" validate:"required,min=1,max=200"`
	Description *string `json:"description"`
}

type UpdateTaskInput struct {
	Title       *string `json:"title" validate:"omitnil,min=1,max=200"`
	Description *string `json:"description"`
	Status      *string `json:"status" validate:"omitnil,oneof=PENDING COMPLETED"`
}

// ListTasksInput selects a page of tasks. Zero Page and Limit take the
// defaults; Limit is capped at MaxPageSize.
type ListTasksInput struct {
	Page   int    `json:"page" validate:"min=0"`
	Limit  int    `json:"limit" validate:"min=0"`
	Status string `json:"status" validate:"omitempty,oneof=PENDING COMPLETED"`
	Search string `json:"search"`
}

// TaskService manages a user's tasks. Every method is scoped by the owner's
// id and treats other users' tasks as missing.
type TaskService struct {
	Store store.Store

	// Now defaults to time.Now.
	Now func() time.Time
}

func (s *TaskService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *TaskService) List(ctx context.Context, userID string, in ListTasksInput) (domain.TaskPage, error) {
	if err := check(in); err != nil {
		return domain.TaskPage{}, err
	}
	page := in.Page
	if page == 0 {
		page = 1
	}
	limit := in.Limit
	switch {
	case limit == 0:
		limit = DefaultPageSize
	case limit > MaxPageSize:
		limit = MaxPageSize
	}
	offset := maxOffset
	if page-1 <= maxOffset/limit {
		offset = (page - 1) * limit
	}

	tasks, total, err := s.Store.Tasks().ListTasks(ctx, userID, domain.TaskFilter{
		Status: domain.TaskStatus(in.Status),
		Search: in.Search,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		return domain.TaskPage{}, err
	}

	return domain.TaskPage{
		Tasks:      tasks,
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

func (s *TaskService) Create(ctx context.Context, userID string, in CreateTaskInput) (domain.Task, error) {
	in.Title = strings.TrimSpace(in.Title)
	if err := check(in); err != nil {
		return domain.Task{}, err
	}

	now := s.now()
	t := domain.Task{
		ID:          idx.NewAt(now).String(),
		Title:       in.Title,
		Description: in.Description,
		Status:      domain.TaskPending,
		UserID:      userID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.Store.Tasks().CreateTask(ctx, t); err != nil {
		return domain.Task{}, err
	}

	slogx.FromContext(ctx).Debug("task created", "task_id", t.ID)
	return t, nil
}

func (s *TaskService) Get(ctx context.Context, userID, id string) (domain.Task, error) {
	t, err := s.Store.Tasks().GetTask(ctx, userID, id)
	return t, notFound(err)
}

// Update applies a partial update. An empty update returns the task as is.
func (s *TaskService) Update(ctx context.Context, userID, id string, in UpdateTaskInput) (domain.Task, error) {
	if in.Title != nil {
		trimmed := strings.TrimSpace(*in.Title)
		in.Title = &trimmed
	}
	if err := check(in); err != nil {
		return domain.Task{}, err
	}

	u := domain.TaskUpdate{Title: in.Title, Description: in.Description}
	if in.Status != nil {
		status := domain.TaskStatus(*in.Status)
		u.Status = &status
	}
	if u.Empty() {
		return s.Get(ctx, userID, id)
	}

	t, err := s.Store.Tasks().UpdateTask(ctx, userID, id, u, s.now())
	return t, notFound(err)
}

func (s *TaskService) Delete(ctx context.Context, userID, id string) error {
	return notFound(s.Store.Tasks().DeleteTask(ctx, userID, id))
}

// Toggle flips PENDING and COMPLETED.
func (s *TaskService) Toggle(ctx context.Context, userID, id string) (domain.Task, error) {
	t, err := s.Store.Tasks().ToggleTask(ctx, userID, id, s.now())
	return t, notFound(err)
}

func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return ErrTaskNotFound
	}
	return err
}
