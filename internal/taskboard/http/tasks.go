package http

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/aussiebroadwan/taskboard/pkg/httpx"
	"github.com/aussiebroadwan/taskboard/pkg/tasksdk"
)

// TasksHandler serves the /api/tasks endpoints. Every route sits behind the
// Gate, so the caller's id is always in the request context.
type TasksHandler struct {
	TaskService *service.TaskService

	errs errorWriter
}

func toTask(t domain.Task) tasksdk.Task {
	return tasksdk.Task{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Status:      tasksdk.TaskStatus(t.Status),
		UserID:      t.UserID,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func callerID(r *http.Request) string {
	id, _ := httpx.UserIDFromContext(r.Context())
	return id
}

// HandleList handles GET /api/tasks
//
//	@Summary		List tasks
//	@Description	Lists the caller's tasks, newest first.
//	@Tags			Tasks
//	@Security		BearerAuth
//	@Produce		json
//	@Param			page	query		int						false	"Page number (default 1)"
//	@Param			limit	query		int						false	"Page size (default 10, max 100)"
//	@Param			status	query		string					false	"Status filter"	Enums(PENDING, COMPLETED)
//	@Param			search	query		string					false	"Case-sensitive title substring"
//	@Success		200		{object}	tasksdk.TaskList		"data, meta"
//	@Failure		400		{object}	tasksdk.ErrorResponse	"Validation error"
//	@Failure		401		{object}	tasksdk.ErrorResponse	"Unauthorized"
//	@Router			/api/tasks [get]
func (h *TasksHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	in, err := parseListQuery(r.URL.Query())
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	page, err := h.TaskService.List(r.Context(), callerID(r), in)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	data := make([]tasksdk.Task, 0, len(page.Tasks))
	for _, t := range page.Tasks {
		data = append(data, toTask(t))
	}
	httpx.WriteJSON(w, http.StatusOK, tasksdk.TaskList{
		Data: data,
		Meta: tasksdk.PageMeta{
			Page:       page.Page,
			Limit:      page.Limit,
			Total:      page.Total,
			TotalPages: page.TotalPages,
		},
	})
}

// parseListQuery reads page and limit as positive integers when present.
func parseListQuery(q url.Values) (service.ListTasksInput, error) {
	in := service.ListTasksInput{
		Status: q.Get("status"),
		Search: q.Get("search"),
	}

	var verr service.ValidationError
	positive := func(key, msg string) int {
		raw := q.Get(key)
		if raw == "" {
			return 0
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			verr.Fields = append(verr.Fields, service.FieldError{Path: key, Message: msg})
			return 0
		}
		return n
	}
	in.Page = positive("page", "Page must be a positive integer")
	in.Limit = positive("limit", "Limit must be a positive integer")

	if len(verr.Fields) > 0 {
		return in, &verr
	}
	return in, nil
}

// HandleCreate handles POST /api/tasks
//
//	@Summary		Create task
//	@Description	Creates a PENDING task owned by the caller.
//	@Tags			Tasks
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		tasksdk.CreateTaskRequest	true	"title, description"
//	@Success		201		{object}	tasksdk.Task
//	@Failure		400		{object}	tasksdk.ErrorResponse	"Validation error"
//	@Failure		401		{object}	tasksdk.ErrorResponse	"Unauthorized"
//	@Router			/api/tasks [post]
func (h *TasksHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req tasksdk.CreateTaskRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}

	task, err := h.TaskService.Create(r.Context(), callerID(r), service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, toTask(task))
}

// HandleGet handles GET /api/tasks/{id}
//
//	@Summary		Get task
//	@Tags			Tasks
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"Task ID"
//	@Success		200	{object}	tasksdk.Task
//	@Failure		401	{object}	tasksdk.ErrorResponse	"Unauthorized"
//	@Failure		404	{object}	tasksdk.ErrorResponse	"Task not found"
//	@Router			/api/tasks/{id} [get]
func (h *TasksHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	task, err := h.TaskService.Get(r.Context(), callerID(r), r.PathValue("id"))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTask(task))
}

// HandleUpdate handles PATCH /api/tasks/{id}
//
//	@Summary		Update task
//	@Description	Partial update; omitted fields are left unchanged.
//	@Tags			Tasks
//	@Security		BearerAuth
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string						true	"Task ID"
//	@Param			request	body		tasksdk.UpdateTaskRequest	true	"title, description, status"
//	@Success		200		{object}	tasksdk.Task
//	@Failure		400		{object}	tasksdk.ErrorResponse	"Validation error"
//	@Failure		401		{object}	tasksdk.ErrorResponse	"Unauthorized"
//	@Failure		404		{object}	tasksdk.ErrorResponse	"Task not found"
//	@Router			/api/tasks/{id} [patch]
func (h *TasksHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	var req tasksdk.UpdateTaskRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}

	in := service.UpdateTaskInput{Title: req.Title, Description: req.Description}
	if req.Status != nil {
		status := string(*req.Status)
		in.Status = &status
	}

	task, err := h.TaskService.Update(r.Context(), callerID(r), r.PathValue("id"), in)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTask(task))
}

// HandleDelete handles DELETE /api/tasks/{id}
//
//	@Summary		Delete task
//	@Tags			Tasks
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string					true	"Task ID"
//	@Success		200	{object}	tasksdk.MessageResponse	"Task deleted successfully"
//	@Failure		401	{object}	tasksdk.ErrorResponse	"Unauthorized"
//	@Failure		404	{object}	tasksdk.ErrorResponse	"Task not found"
//	@Router			/api/tasks/{id} [delete]
func (h *TasksHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.TaskService.Delete(r.Context(), callerID(r), r.PathValue("id")); err != nil {
		h.errs.write(w, r, err)
		return
	}
	httpx.WriteMessage(w, http.StatusOK, "Task deleted successfully")
}

// HandleToggle handles PATCH /api/tasks/{id}/toggle
//
//	@Summary		Toggle task
//	@Description	Flips the status between PENDING and COMPLETED.
//	@Tags			Tasks
//	@Security		BearerAuth
//	@Produce		json
//	@Param			id	path		string	true	"Task ID"
//	@Success		200	{object}	tasksdk.Task
//	@Failure		401	{object}	tasksdk.ErrorResponse	"Unauthorized"
//	@Failure		404	{object}	tasksdk.ErrorResponse	"Task not found"
//	@Router			/api/tasks/{id}/toggle [patch]
func (h *TasksHandler) HandleToggle(w http.ResponseWriter, r *http.Request) {
	task, err := h.TaskService.Toggle(r.Context(), callerID(r), r.PathValue("id"))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toTask(task))
}
