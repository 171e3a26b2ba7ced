package http

import (
	"bytes"
	"errors"
	"net/http"

	"xpdash/internal/auth"
	"xpdash/internal/log"
	"xpdash/internal/source"
)

type loginView struct {
	Identifier string
	Error      string
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if _, err := s.deps.Sessions.FromRequest(r); err == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.renderLogin(w, r, http.StatusOK, loginView{Error: loginErrorMessages[r.URL.Query().Get("error")]})
}

func (s *Server) handleLoginSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	r.Body = http.MaxBytesReader(w, r.Body, 1<<16)
	if err := r.ParseForm(); err != nil {
		logger.WarnContext(ctx, "Parse form error", log.FieldError, err)
		s.renderLogin(w, r, http.StatusBadRequest, loginView{Error: "Invalid request."})
		return
	}

	identifier := sanitizeInput(r.PostForm.Get("identifier"))
	password := r.PostForm.Get("password")
	view := loginView{Identifier: identifier}
	if identifier == "" || password == "" || len(identifier) > maxIdentifierLen {
		view.Error = "Enter your username or email and password."
		s.renderLogin(w, r, http.StatusUnprocessableEntity, view)
		return
	}

	token, err := s.deps.Authenticator.SignIn(ctx, identifier, password)
	if err != nil {
		fields := log.NewFields().WithOperation(log.OpLogin).WithError(err).WithClientIP(extractClientIP(r))
		if errors.Is(err, source.ErrInvalidCredentials) {
			logger.InfoContext(ctx, "Login rejected", fields.ToSlice()...)
			view.Error = "Invalid credentials."
			s.renderLogin(w, r, http.StatusUnauthorized, view)
			return
		}
		logger.ErrorContext(ctx, "Signin failed", fields.ToSlice()...)
		view.Error = "Sign-in is unavailable right now."
		s.renderLogin(w, r, http.StatusBadGateway, view)
		return
	}

	sess, err := s.deps.Sessions.Create(identifier, token)
	if err != nil {
		logger.WarnContext(ctx, "Session not created", log.FieldError, err)
		view.Error = "Sign-in returned an expired token."
		s.renderLogin(w, r, http.StatusBadGateway, view)
		return
	}
	s.deps.Sessions.SetCookie(w, sess)
	logger.InfoContext(ctx, "User signed in",
		log.FieldOperation, log.OpLogin, log.FieldLogin, identifier)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess, err := s.deps.Sessions.FromRequest(r); err == nil {
		s.deps.Sessions.Discard(sess.ID)
		log.FromContext(r.Context()).InfoContext(r.Context(), "User signed out",
			log.FieldOperation, log.OpLogout, log.FieldLogin, sess.Login)
	} else if c, cerr := r.Cookie(auth.CookieName); cerr == nil {
		s.deps.Sessions.Discard(c.Value)
	}
	s.deps.Sessions.ClearCookie(w)
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, status int, view loginView) {
	s.render(w, r, status, "login.html", view)
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	logger := log.FromContext(r.Context())
	if s.templates == nil {
		logger.ErrorContext(r.Context(), "Templates not loaded", log.FieldPath, r.URL.Path)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		logger.ErrorContext(r.Context(), "Template execution failed",
			log.FieldOperation, log.OpRender, "template", name, log.FieldError, err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
