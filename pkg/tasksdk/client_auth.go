package tasksdk

import (
	"context"
	"net/http"
)

const (
	pathRegister = "/api/auth/register"
	pathLogin    = "/api/auth/login"
	pathRefresh  = "/api/auth/refresh"
	pathLogout   = "/api/auth/logout"
	pathMe       = "/api/auth/me"
)

// Register creates an account. It does not log in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*RegisterResponse, error) {
	var out RegisterResponse
	if err := c.call(ctx, http.MethodPost, pathRegister, req, "", &out, http.StatusCreated); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoginTokens exchanges credentials for a token pair without opening a
// Session.
func (c *Client) LoginTokens(ctx context.Context, email, password string) (*LoginResponse, error) {
	var out LoginResponse
	req := LoginRequest{Email: email, Password: password}
	if err := c.call(ctx, http.MethodPost, pathLogin, req, "", &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Refresh rotates refreshToken. The old token stops working.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	var out TokenResponse
	req := RefreshRequest{RefreshToken: refreshToken}
	if err := c.call(ctx, http.MethodPost, pathRefresh, req, "", &out, http.StatusOK); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout revokes refreshToken and blacklists accessToken. Either may be
// empty.
func (c *Client) Logout(ctx context.Context, refreshToken, accessToken string) error {
	req := LogoutRequest{RefreshToken: refreshToken}
	return c.call(ctx, http.MethodPost, pathLogout, req, accessToken, nil, http.StatusOK)
}

func (c *Client) call(ctx context.Context, method, path string, in any, token string, out any, expected int) error {
	body, err := encodeBody(in)
	if err != nil {
		return err
	}
	resp, err := c.doRequest(ctx, method, path, body, token)
	if err != nil {
		return err
	}
	return decodeJSON(resp, out, expected)
}
