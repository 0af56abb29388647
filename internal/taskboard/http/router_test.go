package http_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	taskhttp "github.com/aussiebroadwan/taskboard/internal/taskboard/http"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/store/drivers/sqlite"
	"github.com/aussiebroadwan/taskboard/pkg/cryptox"
	"github.com/aussiebroadwan/taskboard/pkg/httpx"
	"github.com/aussiebroadwan/taskboard/pkg/jwtx"
	"github.com/aussiebroadwan/taskboard/pkg/slogx"
	"github.com/aussiebroadwan/taskboard/pkg/tasksdk"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "taskboard-http-test")
	if err != nil {
		panic(err)
	}
	cryptox.SetPepperPath(filepath.Join(dir, "pepper"))
	cryptox.TokenHashCost = bcrypt.MinCost

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// generous keeps rate limiting out of the way of functional tests.
var generous = httpx.RateLimits{
	Strict:   httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
	Moderate: httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
	Lenient:  httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
	Public:   httpx.RateLimitConfig{RequestsPerWindow: 1000, Window: time.Minute, Burst: 1000},
}

type harness struct {
	t      *testing.T
	router *taskhttp.Router
	store  *sqlite.Store
}

func newHarness(t *testing.T, limits httpx.RateLimits) *harness {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	codec, err := jwtx.NewCodec(jwtx.Config{
		AccessSecret:  []byte("access-secret-access-secret-0123456789"),
		RefreshSecret: []byte("refresh-secret-refresh-secret-0123456789"),
	})
	require.NoError(t, err)

	r := taskhttp.NewRouter(codec, st, slogx.Discard(), taskhttp.Options{
		BuildVersion: "test",
		AccessTTL:    codec.TTL(jwtx.Access),
		RefreshTTL:   codec.TTL(jwtx.Refresh),
		RateLimits:   limits,
	})
	r.SessionService = &service.SessionService{Store: st, Tokens: codec}
	r.TaskService = &service.TaskService{Store: st}
	r.ApplyRoutes()

	return &harness{t: t, router: r, store: st}
}

type option func(*http.Request)

func bearer(token string) option {
	return func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }
}

func cookie(name, value string) option {
	return func(r *http.Request) { r.AddCookie(&http.Cookie{Name: name, Value: value}) }
}

func (h *harness) do(method, path string, body any, opts ...option) *httptest.ResponseRecorder {
	h.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, o := range opts {
		o(req)
	}

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func (h *harness) register(name, email, password string) {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/auth/register", tasksdk.RegisterRequest{Name: name, Email: email, Password: password})
	require.Equal(h.t, http.StatusCreated, rec.Code, rec.Body.String())
}

func (h *harness) login(email, password string) tasksdk.LoginResponse {
	h.t.Helper()
	rec := h.do(http.MethodPost, "/api/auth/login", tasksdk.LoginRequest{Email: email, Password: password})
	require.Equal(h.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[tasksdk.LoginResponse](h.t, rec)
}

func TestAdaScenario(t *testing.T) {
	h := newHarness(t, generous)

	rec := h.do(http.MethodPost, "/api/auth/register", tasksdk.RegisterRequest{
		Name: "Ada", Email: "ada@example.com", Password: "secret1",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	reg := decode[tasksdk.RegisterResponse](t, rec)
	require.Equal(t, "User registered successfully", reg.Message)
	require.Equal(t, "ada@example.com", reg.User.Email)
	require.NotContains(t, rec.Body.String(), "password")

	rec = h.do(http.MethodPost, "/api/auth/login", tasksdk.LoginRequest{Email: "ada@example.com", Password: "secret1"})
	require.Equal(t, http.StatusOK, rec.Code)
	login := decode[tasksdk.LoginResponse](t, rec)
	require.NotEmpty(t, login.AccessToken)
	require.Equal(t, reg.User.ID, login.User.ID)

	cookies := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c
	}
	require.Equal(t, login.AccessToken, cookies[httpx.AccessTokenCookie].Value)
	require.Equal(t, login.RefreshToken, cookies[httpx.RefreshTokenCookie].Value)
	require.Equal(t, int(jwtx.DefaultAccessTokenTTL.Seconds()), cookies[httpx.AccessTokenCookie].MaxAge)
	require.True(t, cookies[httpx.RefreshTokenCookie].HttpOnly)

	rec = h.do(http.MethodPost, "/api/auth/refresh", tasksdk.RefreshRequest{RefreshToken: login.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	rotated := decode[tasksdk.TokenResponse](t, rec)
	require.NotEqual(t, login.RefreshToken, rotated.RefreshToken)

	rec = h.do(http.MethodPost, "/api/auth/refresh", tasksdk.RefreshRequest{RefreshToken: login.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"message":"Invalid refresh token","errors":[]}`, rec.Body.String())
}

func TestLoginFailuresAreByteIdentical(t *testing.T) {
	h := newHarness(t, generous)
	h.register("Ada", "ada@example.com", "secret1")

	unknown := h.do(http.MethodPost, "/api/auth/login", tasksdk.LoginRequest{Email: "nobody@example.com", Password: "secret1"})
	wrong := h.do(http.MethodPost, "/api/auth/login", tasksdk.LoginRequest{Email: "ada@example.com", Password: "wrong-password"})

	require.Equal(t, http.StatusUnauthorized, unknown.Code)
	require.Equal(t, http.StatusUnauthorized, wrong.Code)
	require.Equal(t, unknown.Body.Bytes(), wrong.Body.Bytes())
	require.JSONEq(t, `{"message":"Invalid credentials","errors":[]}`, wrong.Body.String())
}

func TestRevocationTakesEffect(t *testing.T) {
	h := newHarness(t, generous)
	h.register("Ada", "ada@example.com", "secret1")
	a := h.login("ada@example.com", "secret1")
	b := h.login("ada@example.com", "secret1")

	require.Equal(t, http.StatusOK, h.do(http.MethodGet, "/api/auth/me", nil, bearer(a.AccessToken)).Code)

	rec := h.do(http.MethodPost, "/api/auth/logout", tasksdk.LogoutRequest{RefreshToken: a.RefreshToken}, bearer(a.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"message":"Logged out successfully"}`, rec.Body.String())
	for _, c := range rec.Result().Cookies() {
		require.Empty(t, c.Value)
		require.Negative(t, c.MaxAge)
	}

	rec = h.do(http.MethodGet, "/api/auth/me", nil, bearer(a.AccessToken))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"message":"`+httpx.MsgTokenRevoked+`","errors":[]}`, rec.Body.String())

	rec = h.do(http.MethodPost, "/api/auth/refresh", tasksdk.RefreshRequest{RefreshToken: a.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = h.do(http.MethodGet, "/api/auth/me", nil, bearer(b.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	me := decode[tasksdk.User](t, rec)
	require.Equal(t, "Ada", me.Name)
	require.False(t, me.CreatedAt.IsZero())
}

func TestLogoutNeverFails(t *testing.T) {
	h := newHarness(t, generous)

	for _, opts := range [][]option{
		nil,
		{bearer("garbage")},
		{cookie(httpx.RefreshTokenCookie, "garbage")},
	} {
		rec := h.do(http.MethodPost, "/api/auth/logout", nil, opts...)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/logout", bytes.NewBufferString("{not json"))
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestCookieSession(t *testing.T) {
	h := newHarness(t, generous)
	h.register("Ada", "ada@example.com", "secret1")
	login := h.login("ada@example.com", "secret1")

	rec := h.do(http.MethodGet, "/api/auth/me", nil, cookie(httpx.AccessTokenCookie, login.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = h.do(http.MethodPost, "/api/auth/refresh", nil, cookie(httpx.RefreshTokenCookie, login.RefreshToken))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, rec.Result().Cookies(), 2)

	rec = h.do(http.MethodPost, "/api/auth/refresh", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestGateRejectsMissingToken(t *testing.T) {
	h := newHarness(t, generous)

	rec := h.do(http.MethodGet, "/api/tasks", nil)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"message":"`+httpx.MsgNoToken+`","errors":[]}`, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/tasks", nil, bearer("garbage"))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.JSONEq(t, `{"message":"`+httpx.MsgInvalidToken+`","errors":[]}`, rec.Body.String())
}

func TestBuyMilk(t *testing.T) {
	h := newHarness(t, generous)
	h.register("Ada", "ada@example.com", "secret1")
	auth := bearer(h.login("ada@example.com", "secret1").AccessToken)

	rec := h.do(http.MethodPost, "/api/tasks", tasksdk.CreateTaskRequest{Title: "Buy milk"}, auth)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	task := decode[tasksdk.Task](t, rec)
	require.Equal(t, tasksdk.StatusPending, task.Status)
	require.Nil(t, task.Description)

	path := "/api/tasks/" + task.ID
	rec = h.do(http.MethodPatch, path+"/toggle", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, tasksdk.StatusCompleted, decode[tasksdk.Task](t, rec).Status)

	rec = h.do(http.MethodPatch, path+"/toggle", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, tasksdk.StatusPending, decode[tasksdk.Task](t, rec).Status)

	desc := "semi-skimmed"
	rec = h.do(http.MethodPatch, path, tasksdk.UpdateTaskRequest{Description: &desc}, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	updated := decode[tasksdk.Task](t, rec)
	require.Equal(t, "Buy milk", updated.Title)
	require.Equal(t, desc, *updated.Description)

	rec = h.do(http.MethodGet, "/api/tasks?status=PENDING&search=milk", nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[tasksdk.TaskList](t, rec)
	require.Len(t, list.Data, 1)
	require.Equal(t, tasksdk.PageMeta{Page: 1, Limit: 10, Total: 1, TotalPages: 1}, list.Meta)

	rec = h.do(http.MethodDelete, path, nil, auth)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"message":"Task deleted successfully"}`, rec.Body.String())

	rec = h.do(http.MethodGet, "/api/tasks", nil, auth)
	require.JSONEq(t, `{"data":[],"meta":{"page":1,"limit":10,"total":0,"totalPages":0}}`, rec.Body.String())
}

func TestOwnershipIsolation(t *testing.T) {
	h := newHarness(t, generous)
	h.register("Ada", "ada@example.com", "secret1")
	h.register("Bob", "bob@example.com", "secret1")
	ada := bearer(h.login("ada@example.com", "secret1").AccessToken)
	bob := bearer(h.login("bob@example.com", "secret1").AccessToken)

	rec := h.do(http.MethodPost, "/api/tasks", tasksdk.CreateTaskRequest{Title: "Ada's"}, ada)
	require.Equal(t, http.StatusCreated, rec.Code)
	path := "/api/tasks/" + decode[tasksdk.Task](t, rec).ID

	missing := h.do(http.MethodGet, "/api/tasks/does-not-exist", nil, bob)
	require.Equal(t, http.StatusNotFound, missing.Code)

	title := "Bob's now"
	for _, rec := range []*httptest.ResponseRecorder{
		h.do(http.MethodGet, path, nil, bob),
		h.do(http.MethodPatch, path, tasksdk.UpdateTaskRequest{Title: &title}, bob),
		h.do(http.MethodPatch, path+"/toggle", nil, bob),
		h.do(http.MethodDelete, path, nil, bob),
	} {
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, missing.Body.Bytes(), rec.Body.Bytes())
	}

	rec = h.do(http.MethodGet, path, nil, ada)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Ada's", decode[tasksdk.Task](t, rec).Title)
	require.Equal(t, tasksdk.StatusPending, decode[tasksdk.Task](t, rec).Status)
}

func TestValidationErrors(t *testing.T) {
	h := newHarness(t, generous)
	h.register("Ada", "ada@example.com", "secret1")
	auth := bearer(h.login("ada@example.com", "secret1").AccessToken)

	tests := []struct {
		name string
		rec  *httptest.ResponseRecorder
		want string
	}{
		{
			name: "short password",
			rec:  h.do(http.MethodPost, "/api/auth/register", tasksdk.RegisterRequest{Name: "Bob", Email: "bob@example.com", Password: "123"}),
			want: `{"message":"Validation error","errors":[{"path":"password","message":"Password must be at least 6 characters"}]}`,
		},
		{
			name: "duplicate email",
			rec:  h.do(http.MethodPost, "/api/auth/register", tasksdk.RegisterRequest{Name: "Ada", Email: "ADA@example.com", Password: "secret1"}),
			want: `{"message":"Email already registered","errors":[]}`,
		},
		{
			name: "empty title",
			rec:  h.do(http.MethodPost, "/api/tasks", tasksdk.CreateTaskRequest{}, auth),
			want: `{"message":"Validation error","errors":[{"path":"title","message":"Title is required"}]}`,
		},
		{
			name: "bad paging",
			rec:  h.do(http.MethodGet, "/api/tasks?page=abc&limit=0", nil, auth),
			want: `{"message":"Validation error","errors":[{"path":"page","message":"Page must be a positive integer"},{"path":"limit","message":"Limit must be a positive integer"}]}`,
		},
		{
			name: "bad status filter",
			rec:  h.do(http.MethodGet, "/api/tasks?status=DONE", nil, auth),
			want: `{"message":"Validation error","errors":[{"path":"status","message":"Status must be PENDING or COMPLETED"}]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, http.StatusBadRequest, tt.rec.Code)
			require.JSONEq(t, tt.want, tt.rec.Body.String())
		})
	}
}

func TestMalformedBody(t *testing.T) {
	h := newHarness(t, generous)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(`{"email":`))
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.JSONEq(t, `{"message":"Invalid JSON in request body","errors":[]}`, rec.Body.String())
}

func TestOversizedLoginBody(t *testing.T) {
	h := newHarness(t, generous)

	body := `{"email":"ada@example.com","password":"` + strings.Repeat("x", 100<<10) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code, rec.Body.String())
}

func TestLoginIsRateLimited(t *testing.T) {
	h := newHarness(t, httpx.DefaultRateLimits())

	body := tasksdk.LoginRequest{Email: "ada@example.com", Password: "wrong-password"}
	for range httpx.DefaultRateLimits().Strict.Burst {
		require.Equal(t, http.StatusUnauthorized, h.do(http.MethodPost, "/api/auth/login", body).Code)
	}

	rec := h.do(http.MethodPost, "/api/auth/login", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Another account from the same address has its own budget.
	other := tasksdk.LoginRequest{Email: "bob@example.com", Password: "wrong-password"}
	require.Equal(t, http.StatusUnauthorized, h.do(http.MethodPost, "/api/auth/login", other).Code)
}

func TestHealth(t *testing.T) {
	h := newHarness(t, generous)

	rec := h.do(http.MethodGet, "/livez", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	live := decode[tasksdk.HealthResponse](t, rec)
	require.Equal(t, "ok", live.Status)
	require.Equal(t, "test", live.Version)
	require.Nil(t, live.Checks)

	rec = h.do(http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decode[tasksdk.HealthResponse](t, rec).Checks.Database)

	require.NoError(t, h.store.Close())
	rec = h.do(http.MethodGet, "/readyz", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "degraded", decode[tasksdk.HealthResponse](t, rec).Status)
}

func TestUnknownRoute(t *testing.T) {
	h := newHarness(t, generous)

	rec := h.do(http.MethodGet, "/api/nope", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"message":"Route not found","errors":[]}`, rec.Body.String())
}

func TestCORSPreflight(t *testing.T) {
	h := newHarness(t, generous)

	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type")
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	require.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/livez", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec = httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	require.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestResponsesAreNotCached(t *testing.T) {
	h := newHarness(t, generous)
	h.register("Ada", "ada@example.com", "secret1")

	rec := h.do(http.MethodPost, "/api/auth/login", tasksdk.LoginRequest{Email: "ada@example.com", Password: "secret1"})
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.NotEmpty(t, rec.Header().Get(slogx.RequestIDHeader))
}
