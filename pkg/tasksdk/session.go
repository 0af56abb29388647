package tasksdk

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// refreshTimeout bounds a refresh round-trip. Refreshes run detached from
// the caller that started them, since other callers may be waiting on it.
const refreshTimeout = 15 * time.Second

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithTokenStore shadows the session's tokens into store.
func WithTokenStore(store TokenStore) SessionOption {
	return func(s *Session) { s.store = store }
}

// WithOnSessionExpired registers fn to run once when a refresh fails, the
// point at which a UI would send the user back to its login screen.
func WithOnSessionExpired(fn func()) SessionOption {
	return func(s *Session) { s.onExpired = fn }
}

// Session makes authenticated calls. It attaches the access token to every
// request and, when the server answers 401, refreshes the pair and replays
// the request once. Concurrent 401s share a single refresh.
//
// A Session is safe for concurrent use.
type Session struct {
	client    *Client
	store     TokenStore
	onExpired func()

	mu      sync.Mutex
	tokens  Tokens
	user    User
	expired bool

	refresh refresher
}

// refresher coalesces concurrent refreshes into one round-trip.
type refresher struct {
	group singleflight.Group
}

// Login authenticates the session, replacing any tokens it held and
// clearing an expired state.
func (s *Session) Login(ctx context.Context, email, password string) error {
	resp, err := s.client.LoginTokens(ctx, email, password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.expired = false
	s.user = resp.User
	s.mu.Unlock()

	return s.setTokens(Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})
}

// Logout ends the session on the server and forgets the tokens. The server
// never refuses a logout, so only transport failures are returned; local
// state is cleared either way.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	tokens := s.tokens
	s.tokens = Tokens{}
	s.user = User{}
	s.mu.Unlock()

	storeErr := s.store.Clear()
	if tokens == (Tokens{}) {
		return storeErr
	}
	return errors.Join(s.client.Logout(ctx, tokens.RefreshToken, tokens.AccessToken), storeErr)
}

// Tokens returns the current pair.
func (s *Session) Tokens() Tokens {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens
}

// User returns the profile received at login. It is empty for resumed
// sessions; call Me instead.
func (s *Session) User() User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) setTokens(t Tokens) error {
	s.mu.Lock()
	s.tokens = t
	s.mu.Unlock()
	return s.store.Save(t)
}

// current returns the access token to send, or why there is none.
func (s *Session) current() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.expired:
		return "", ErrSessionExpired
	case s.tokens.AccessToken == "":
		return "", ErrNoSession
	}
	return s.tokens.AccessToken, nil
}

// do sends an authenticated request, refreshing and replaying once on 401.
func (s *Session) do(ctx context.Context, method, path string, in, out any, expected int) error {
	body, err := encodeBody(in)
	if err != nil {
		return err
	}

	sent, err := s.current()
	if err != nil {
		return err
	}

	resp, err := s.client.doRequest(ctx, method, path, body, sent)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusUnauthorized || !refreshable(path) {
		return decodeJSON(resp, out, expected)
	}
	drain(resp)

	if err := s.refreshAfter(ctx, sent); err != nil {
		return err
	}

	token, err := s.current()
	if err != nil {
		return err
	}
	resp, err = s.client.doRequest(ctx, method, path, body, token)
	if err != nil {
		return err
	}
	return decodeJSON(resp, out, expected)
}

// refreshable reports whether a 401 from path should trigger a refresh.
// Credential endpoints answer 401 for bad input, not stale tokens.
func refreshable(path string) bool {
	switch path {
	case pathLogin, pathRegister, pathRefresh:
		return false
	}
	return true
}

// refreshAfter makes sure the session holds a pair newer than sent. If
// another caller already replaced sent, it returns immediately; otherwise it
// joins or starts the shared refresh and waits for it.
func (s *Session) refreshAfter(ctx context.Context, sent string) error {
	s.mu.Lock()
	switch {
	case s.expired:
		s.mu.Unlock()
		return ErrSessionExpired
	case s.tokens.AccessToken != sent:
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	ch := s.refresh.group.DoChan("refresh", func() (any, error) {
		return nil, s.rotate(sent)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// rotate exchanges the refresh token. On failure the session is expired:
// tokens are cleared everywhere and the expiry hook runs.
func (s *Session) rotate(sent string) error {
	s.mu.Lock()
	if s.tokens.AccessToken != sent {
		// A refresh finished between the caller's check and this flight.
		s.mu.Unlock()
		return nil
	}
	refreshToken := s.tokens.RefreshToken
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
	defer cancel()

	resp, err := s.client.Refresh(ctx, refreshToken)
	if err != nil {
		s.expire()
		return fmt.Errorf("%w: %w", ErrSessionExpired, err)
	}

	return s.setTokens(Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken})
}

func (s *Session) expire() {
	s.mu.Lock()
	s.tokens = Tokens{}
	s.user = User{}
	s.expired = true
	hook := s.onExpired
	s.mu.Unlock()

	_ = s.store.Clear()
	if hook != nil {
		hook()
	}
}

// drain lets the connection be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
