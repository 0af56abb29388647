package http

import (
	"net/http"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/aussiebroadwan/taskboard/pkg/httpx"
	"github.com/aussiebroadwan/taskboard/pkg/tasksdk"
)

// HandleLogin handles POST /api/auth/login
//
//	@Summary		Login
//	@Description	Exchanges credentials for an access and refresh token. Both are also set as HttpOnly cookies.
//	@Description	An unknown email and a wrong password produce the same response.
//	@Tags			Auth
//	@Accept			json
//	@Produce		json
//	@Param			request	body		tasksdk.LoginRequest	true	"email, password"
//	@Success		200		{object}	tasksdk.LoginResponse	"accessToken, refreshToken, user"
//	@Failure		400		{object}	tasksdk.ErrorResponse	"Validation error"
//	@Failure		401		{object}	tasksdk.ErrorResponse	"Invalid credentials"
//	@Failure		429		{object}	tasksdk.ErrorResponse	"Too many requests"
//	@Header			200		{string}	Set-Cookie				"accessToken and refreshToken"
//	@Router			/api/auth/login [post]
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req tasksdk.LoginRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.errs.write(w, r, err)
		return
	}

	res, err := h.SessionService.Login(r.Context(), service.LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.errs.write(w, r, err)
		return
	}

	h.Cookies.SetTokenCookies(w,
		res.Tokens.AccessToken, h.AccessTTL,
		res.Tokens.RefreshToken, h.RefreshTTL,
	)

	httpx.WriteJSON(w, http.StatusOK, tasksdk.LoginResponse{
		AccessToken:  res.Tokens.AccessToken,
		RefreshToken: res.Tokens.RefreshToken,
		User:         tasksdk.User{ID: res.User.ID, Name: res.User.Name, Email: res.User.Email},
	})
}
