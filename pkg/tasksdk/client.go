package tasksdk

import (
	"context"
	"net/http"
	"strings"
	"time"
)

// Client talks to the taskboard API. It performs unauthenticated calls and
// opens Sessions for everything else.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewClient returns a client for the server at baseURL (scheme and host,
// without the /api prefix).
func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Login authenticates and returns a ready Session. Options apply before the
// tokens are stored, so a TokenStore sees the first pair.
func (c *Client) Login(ctx context.Context, email, password string, opts ...SessionOption) (*Session, error) {
	s := c.NewSession(opts...)
	if err := s.Login(ctx, email, password); err != nil {
		return nil, err
	}
	return s, nil
}

// ResumeSession rebuilds a Session from the tokens in store, for example
// after a process restart. It returns ErrNoSession if store is empty.
func (c *Client) ResumeSession(store TokenStore, opts ...SessionOption) (*Session, error) {
	tokens, err := store.Load()
	if err != nil {
		return nil, err
	}
	if tokens.AccessToken == "" || tokens.RefreshToken == "" {
		return nil, ErrNoSession
	}

	s := c.NewSession(append(opts, WithTokenStore(store))...)
	s.tokens = tokens
	return s, nil
}

// NewSession returns a session holding no tokens. Call Login before use.
func (c *Client) NewSession(opts ...SessionOption) *Session {
	s := &Session{client: c, store: NewMemoryStore()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
