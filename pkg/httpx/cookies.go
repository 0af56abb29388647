package httpx

import (
	"net/http"
	"time"
)

const (
	AccessTokenCookie  = "accessToken"
	RefreshTokenCookie = "refreshToken"
)

// CookiePolicy controls the attributes of the session cookies.
type CookiePolicy struct {
	// Secure is set in production so cookies only travel over HTTPS.
	Secure bool
}

// SetTokenCookies writes both session cookies. Each cookie lives as long as
// the token it carries.
func (p CookiePolicy) SetTokenCookies(w http.ResponseWriter, access string, accessTTL time.Duration, refresh string, refreshTTL time.Duration) {
	http.SetCookie(w, p.cookie(AccessTokenCookie, access, int(accessTTL.Seconds())))
	http.SetCookie(w, p.cookie(RefreshTokenCookie, refresh, int(refreshTTL.Seconds())))
}

// ClearTokenCookies expires both session cookies.
func (p CookiePolicy) ClearTokenCookies(w http.ResponseWriter) {
	http.SetCookie(w, p.cookie(AccessTokenCookie, "", -1))
	http.SetCookie(w, p.cookie(RefreshTokenCookie, "", -1))
}

func (p CookiePolicy) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   p.Secure,
		SameSite: http.SameSiteStrictMode,
	}
}

// CookieValue returns the named cookie's value or "".
func CookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}
