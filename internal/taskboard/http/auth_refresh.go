package http

import (
	"net/http"

	"github.com/aussiebroadwan/taskboard/pkg/httpx"
	"github.com/aussiebroadwan/taskboard/pkg/tasksdk"
)

// HandleRefresh handles POST /api/auth/refresh
//
//	@Summary		Refresh tokens
//	@Description	Rotates a refresh token. The token is read from the body, falling back to the refreshToken cookie.
//	@Description	Each refresh token works once; presenting it again fails with 401.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		tasksdk.RefreshRequest	false	"refreshToken (optional when the cookie is set)"
//	@Success		200		{object}	tasksdk.TokenResponse	"accessToken, refreshToken"
//	@Failure		401		{object}	tasksdk.ErrorResponse	"Invalid refresh token or Refresh token expired"
//	@Failure		429		{object}	tasksdk.ErrorResponse	"Too many requests"
//	@Header			200		{string}	Set-Cookie				"accessToken and refreshToken"
//	@Router			/api/auth/refresh [post]
func (h *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	var req tasksdk.RefreshRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}
	token := req.RefreshToken
	if token == "" {
		token = httpx.CookieValue(r, httpx.RefreshTokenCookie)
	}

	pair, err := h.SessionService.Refresh(r.Context(), token)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	h.Cookies.SetTokenCookies(w,
		pair.AccessToken, h.AccessTTL,
		pair.RefreshToken, h.RefreshTTL,
	)
	httpx.WriteJSON(w, http.StatusOK, tasksdk.TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}
