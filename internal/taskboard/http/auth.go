package http

import (
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/domain"
	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/aussiebroadwan/taskboard/pkg/httpx"
	"github.com/aussiebroadwan/taskboard/pkg/tasksdk"
)

// AuthHandler serves the /api/auth endpoints.
type AuthHandler struct {
	SessionService *service.SessionService
	Cookies        httpx.CookiePolicy

	// Cookie lifetimes, matching the token lifetimes.
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	errs errorWriter
}

func toUser(u domain.User) tasksdk.User {
	return tasksdk.User{ID: u.ID, Name: u.Name, Email: u.Email, CreatedAt: u.CreatedAt}
}
