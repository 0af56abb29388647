package http

import (
	"net/http"

	"github.com/aussiebroadwan/taskboard/pkg/httpx"
	"github.com/aussiebroadwan/taskboard/pkg/slogx"
	"github.com/aussiebroadwan/taskboard/pkg/tasksdk"
)

// HandleLogout handles POST /api/auth/logout
//
//	@Summary		Logout
//	@Description	Revokes the refresh token (body or cookie) and blacklists the access token (Bearer header or cookie).
//	@Description	Always succeeds, even for missing or invalid tokens, and always clears the cookies.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		tasksdk.LogoutRequest		false	"refreshToken (optional when the cookie is set)"
//	@Success		200		{object}	tasksdk.MessageResponse	"Logged out successfully"
//	@Failure		429		{object}	tasksdk.ErrorResponse		"Too many requests"
//	@Router			/api/auth/logout [post]
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req tasksdk.LogoutRequest
	if err := decodeBody(w, r, &req); err != nil {
		slogx.FromContext(ctx).Debug("logout body ignored", "err", err)
	}
	refresh := req.RefreshToken
	if refresh == "" {
		refresh = httpx.CookieValue(r, httpx.RefreshTokenCookie)
	}

	h.SessionService.Logout(ctx, refresh, httpx.BearerToken(r))

	h.Cookies.ClearTokenCookies(w)
	httpx.WriteMessage(w, http.StatusOK, "Logged out successfully")
}
