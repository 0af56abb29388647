package httpx_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aussiebroadwan/taskboard/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestCookiePolicy(t *testing.T) {
	t.Run("set", func(t *testing.T) {
		rec := httptest.NewRecorder()
		httpx.CookiePolicy{Secure: true}.SetTokenCookies(rec, "acc", 15*time.Minute, "ref", 7*24*time.Hour)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 2)

		byName := map[string]*http.Cookie{}
		for _, c := range cookies {
			byName[c.Name] = c
			require.True(t, c.HttpOnly)
			require.True(t, c.Secure)
			require.Equal(t, http.SameSiteStrictMode, c.SameSite)
			require.Equal(t, "/", c.Path)
		}
		require.Equal(t, "acc", byName[httpx.AccessTokenCookie].Value)
		require.Equal(t, 900, byName[httpx.AccessTokenCookie].MaxAge)
		require.Equal(t, "ref", byName[httpx.RefreshTokenCookie].Value)
		require.Equal(t, 604800, byName[httpx.RefreshTokenCookie].MaxAge)
	})

	t.Run("clear", func(t *testing.T) {
		rec := httptest.NewRecorder()
		httpx.CookiePolicy{}.ClearTokenCookies(rec)

		for _, c := range rec.Result().Cookies() {
			require.Empty(t, c.Value)
			require.Negative(t, c.MaxAge)
			require.False(t, c.Secure)
		}
	})
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) httpx.Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := httpx.Chain(okHandler, mw("outer"), mw("inner"))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, []string{"outer", "inner"}, order)
}

func TestSecurityHeaders(t *testing.T) {
	h := httpx.SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
