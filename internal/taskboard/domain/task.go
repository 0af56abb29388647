package domain

import "time"

type TaskStatus string

const (
	TaskPending   TaskStatus = "PENDING"
	TaskCompleted TaskStatus = "COMPLETED"
)

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	return s == TaskPending || s == TaskCompleted
}

// Toggled returns the opposite status.
func (s TaskStatus) Toggled() TaskStatus {
	if s == TaskCompleted {
		return TaskPending
	}
	return TaskCompleted
}

type Task struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      TaskStatus `json:"status"`
	UserID      string     `json:"userId"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TaskFilter narrows a task listing. Zero values mean "no filter".
type TaskFilter struct {
	Status TaskStatus
	Search string // substring of title
	Limit  int
	Offset int
}

// TaskUpdate is a partial update; nil fields are left untouched.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *TaskStatus
}

// Empty reports whether the update changes nothing.
func (u TaskUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Status == nil
}

// TaskPage is one page of a listing.
type TaskPage struct {
	Tasks      []Task
	Page       int
	Limit      int
	Total      int
	TotalPages int
}
