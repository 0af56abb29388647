package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/taskboard/internal/taskboard/service"
	"github.com/aussiebroadwan/taskboard/pkg/httpx"
	"github.com/aussiebroadwan/taskboard/pkg/slogx"
	"github.com/rs/cors"

	_ "github.com/aussiebroadwan/taskboard/api/docs" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Options tunes the router. Zero values fall back to sensible defaults.
type Options struct {
	BuildVersion string

	// CORSOrigin is the single browser origin allowed to call the API with
	// credentials.
	CORSOrigin string

	// Production marks cookies Secure and hides internal error text.
	Production bool

	AccessTTL  time.Duration
	RefreshTTL time.Duration

	RateLimits httpx.RateLimits
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	opts      Options
	verifier  httpx.TokenVerifier
	db        Pinger
	startTime time.Time
	logger    *slog.Logger

	SessionService *service.SessionService
	TaskService    *service.TaskService
}

func NewRouter(verifier httpx.TokenVerifier, db Pinger, logger *slog.Logger, opts Options) *Router {
	if opts.CORSOrigin == "" {
		opts.CORSOrigin = "http://localhost:3000"
	}
	if opts.RateLimits == (httpx.RateLimits{}) {
		opts.RateLimits = httpx.DefaultRateLimits()
	}

	r := &Router{
		Mux:       http.NewServeMux(),
		opts:      opts,
		verifier:  verifier,
		db:        db,
		startTime: time.Now(),
		logger:    logger,
	}

	c := cors.New(cors.Options{
		AllowedOrigins:   []string{opts.CORSOrigin},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders:   []string{"Authorization", "Content-Type", slogx.RequestIDHeader},
		ExposedHeaders:   []string{slogx.RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           600,
	})

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		c.Handler,
		httpx.SecurityHeaders,
	}

	return r
}

// ApplyRoutes registers every route. The services must be set first.
func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerTasks()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
	r.Mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		httpx.WriteError(w, http.StatusNotFound, "Route not found")
	})
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title						Taskboard API
//	@version					0.1.0
//	@description				Personal task lists with session authentication.
//	@description
//	@description				Access tokens are short-lived HS256 JWTs; refresh tokens are single use and rotate on every refresh.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/taskboard
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:5000
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}". The accessToken cookie is accepted too.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) errs() errorWriter {
	return errorWriter{Production: r.opts.Production}
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		SessionService: r.SessionService,
		Cookies:        httpx.CookiePolicy{Secure: r.opts.Production},
		AccessTTL:      r.opts.AccessTTL,
		RefreshTTL:     r.opts.RefreshTTL,
		errs:           r.errs(),
	}
	limits := r.opts.RateLimits

	// Credential endpoints: strict. Login is keyed by IP and email so one
	// address cannot be brute forced from many accounts' budgets.
	r.Mux.Handle("POST /api/auth/register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(limits.Strict),
		),
	)
	r.Mux.Handle("POST /api/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(limits.Strict, "email"),
		),
	)

	r.Mux.Handle("POST /api/auth/refresh",
		httpx.Chain(http.HandlerFunc(h.HandleRefresh),
			httpx.RateLimitByIP(limits.Moderate),
		),
	)
	r.Mux.Handle("POST /api/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			httpx.RateLimitByIP(limits.Moderate),
		),
	)

	r.Mux.Handle("GET /api/auth/me", r.secured(h.HandleMe))
}

func (r *Router) registerTasks() {
	h := &TasksHandler{
		TaskService: r.TaskService,
		errs:        r.errs(),
	}

	r.Mux.Handle("GET /api/tasks", r.secured(h.HandleList))
	r.Mux.Handle("POST /api/tasks", r.secured(h.HandleCreate))
	r.Mux.Handle("GET /api/tasks/{id}", r.secured(h.HandleGet))
	r.Mux.Handle("PATCH /api/tasks/{id}", r.secured(h.HandleUpdate))
	r.Mux.Handle("DELETE /api/tasks/{id}", r.secured(h.HandleDelete))
	r.Mux.Handle("PATCH /api/tasks/{id}/toggle", r.secured(h.HandleToggle))
}

func (r *Router) registerSystem() {
	public := r.opts.RateLimits.Public
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.opts.BuildVersion),
			httpx.RateLimitByIP(public),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.opts.BuildVersion, r.db),
			httpx.RateLimitByIP(public),
		),
	)
}

// secured puts fn behind the Gate with a lenient per-user limit.
func (r *Router) secured(fn http.HandlerFunc) http.Handler {
	return httpx.Chain(fn,
		httpx.Gate(r.verifier, r.SessionService),
		httpx.RateLimitByUser(r.opts.RateLimits.Lenient),
	)
}
