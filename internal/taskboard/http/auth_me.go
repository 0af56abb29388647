package http

import (
	"net/http"

	"github.com/aussiebroadwan/taskboard/pkg/httpx"
)

// HandleMe handles GET /api/auth/me
//
//	@Summary		Current user
//	@Description	Returns the profile of the authenticated user.
//	@Tags			Auth
//	@Security		BearerAuth
//	@Produce		json
//	@Success		200	{object}	tasksdk.User			"id, name, email, createdAt"
//	@Failure		401	{object}	tasksdk.ErrorResponse	"Unauthorized"
//	@Failure		404	{object}	tasksdk.ErrorResponse	"User not found"
//	@Router			/api/auth/me [get]
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, _ := httpx.UserIDFromContext(r.Context())

	user, err := h.SessionService.Me(r.Context(), userID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUser(user))
}
