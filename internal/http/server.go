// Package http serves the XP dashboard, its JSON API and the login flow.
package http

import (
	"context"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"xpdash/internal/auth"
	"xpdash/internal/core"
	"xpdash/internal/log"
	"xpdash/internal/metrics"
	"xpdash/internal/middleware/ratelimit"
	"xpdash/internal/middleware/security"
	"xpdash/internal/middleware/trace"
	"xpdash/internal/source"
	appweb "xpdash/web"
)

// ProfileLoader is satisfied by *services.ProfileService.
type ProfileLoader interface {
	Load(ctx context.Context, exec source.Executor) (*core.Profile, error)
}

// Deps are the collaborators the server needs. All fields are required
// except Logger and LoginLimiter.
type Deps struct {
	Provider      source.Provider
	Authenticator source.Authenticator
	Profiles      ProfileLoader
	Sessions      *auth.Store
	LoginLimiter  *ratelimit.Limiter
	Logger        *log.Logger
	Backend       string
}

type Server struct {
	http.Server
	templates *template.Template
	deps      Deps
	logger    *log.Logger
	started   time.Time

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run http.Server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		deps:    deps,
		logger:  logger,
		started: time.Now(),
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates", log.FieldError, err)
	}
	s.templates = t

	mux := http.NewServeMux()

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err)
	}

	login := http.Handler(http.HandlerFunc(s.handleLoginSubmit))
	if deps.LoginLimiter != nil {
		login = deps.LoginLimiter.Middleware(extractClientIP, s.handleRateLimited)(login)
	}

	mux.Handle("GET /{$}", security.NoStore(http.HandlerFunc(s.handleDashboard)))
	mux.HandleFunc("GET /login", s.handleLoginForm)
	mux.Handle("POST /login", login)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.Handle("GET /api/profile", security.NoStore(http.HandlerFunc(s.handleAPIProfile)))
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(logger, extractClientIP)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           tracer.Middleware(headers.Middleware(mux)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown gracefully shuts down the server and its background routines.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.deps.LoginLimiter != nil {
			s.deps.LoginLimiter.Stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"uptime":    time.Since(s.started).Round(time.Second).String(),
	})
}

// handleReady reports whether the server can render pages and reach a backend.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := "ready"
	httpStatus := http.StatusOK
	checks := map[string]string{}

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if s.deps.Provider == nil || s.deps.Authenticator == nil {
		checks["backend"] = "not_configured"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["backend"] = s.deps.Backend
	}

	writeJSON(w, r, httpStatus, map[string]any{
		"status":   status,
		"checks":   checks,
		"sessions": s.deps.Sessions.Len(),
	})
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Login rate limit exceeded",
		log.FieldClientIP, extractClientIP(r))
	s.renderLogin(w, r, http.StatusTooManyRequests, loginView{Error: "Too many attempts. Try again shortly."})
}

// loadProfile resolves the session and runs the pipeline. On any failure
// other than the client cancelling, the session is dropped so a stale or
// rejected token is never reused.
func (s *Server) loadProfile(w http.ResponseWriter, r *http.Request) (*core.Profile, error) {
	sess, err := s.deps.Sessions.FromRequest(r)
	if err != nil {
		return nil, err
	}
	ctx := r.Context()
	logger := log.FromContext(ctx).With(log.FieldLogin, sess.Login)

	profile, err := s.deps.Profiles.Load(ctx, s.deps.Provider.WithToken(sess.Token))
	if err != nil {
		// The client went away; the token itself is still good.
		if errors.Is(err, context.Canceled) {
			logger.DebugContext(ctx, "Profile load cancelled by client")
			return nil, err
		}
		s.deps.Sessions.Discard(sess.ID)
		s.deps.Sessions.ClearCookie(w)
		logger.WarnContext(ctx, "Session discarded after failed load",
			log.NewFields().WithOperation(log.OpLoad).WithError(err).ToSlice()...)
		return nil, err
	}
	return profile, nil
}

// Login page error codes. Only these fixed messages are ever shown.
const (
	errCodeExpired = "expired"
	errCodeFailed  = "failed"
)

var loginErrorMessages = map[string]string{
	errCodeExpired: "Your session has expired. Please sign in again.",
	errCodeFailed:  "Could not load your data. Please sign in again.",
}

// loadErrorCode maps a load failure to a login page error code. A missing
// session has no code.
func loadErrorCode(err error) string {
	switch {
	case errors.Is(err, auth.ErrNoSession):
		return ""
	case errors.Is(err, auth.ErrSessionExpired), errors.Is(err, source.ErrUnauthorized):
		return errCodeExpired
	default:
		return errCodeFailed
	}
}
