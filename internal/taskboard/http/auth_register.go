package http

import (
	"net/http"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/aussiebroadwan/taskboard/pkg/httpx"
	"github.com/aussiebroadwan/taskboard/pkg/tasksdk"
)

// HandleRegister handles POST /api/auth/register
//
//	@Summary		Register
//	@Description	Creates an account. The email is trimmed and lower-cased before it is stored.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		tasksdk.RegisterRequest		true	"name, email, password"
//	@Success		201		{object}	tasksdk.RegisterResponse	"message, user"
//	@Failure		400		{object}	tasksdk.ErrorResponse		"Validation error or Email already registered"
//	@Failure		429		{object}	tasksdk.ErrorResponse		"Too many requests"
//	@Failure		500		{object}	tasksdk.ErrorResponse		"Internal server error"
//	@Router			/api/auth/register [post]
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req tasksdk.RegisterRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}

	user, err := h.SessionService.Register(r.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusCreated, tasksdk.RegisterResponse{
		Message: "User registered successfully",
		User:    toUser(user),
	})
}
