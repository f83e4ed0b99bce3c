package handlers

import (
	"context"
	"database/sql"
	"errors"
	"html/template"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"github.com/sirupsen/logrus"

	"github.com/shindakun/loginform/internal/auth"
	"github.com/shindakun/loginform/internal/loginform"
	"github.com/shindakun/loginform/internal/metrics"
	"github.com/shindakun/loginform/internal/models"
	"github.com/shindakun/loginform/internal/storage"
)

const recentAttempts = 10

type remoteIPKey struct{}

// Handlers holds dependencies for HTTP handlers
type Handlers struct {
	db             *sql.DB
	sessionManager *auth.SessionManager
	authenticator  auth.Authenticator
	forms          *FormRegistry
	metrics        metrics.Recorder
	logger         logrus.FieldLogger
	templates      map[string]*template.Template
	version        string
}

// Options configures New
type Options struct {
	FormCacheSize int
	Version       string
}

// New creates a new Handlers instance
func New(db *sql.DB, sessionManager *auth.SessionManager, authenticator auth.Authenticator, recorder metrics.Recorder, logger logrus.FieldLogger, opts Options) (*Handlers, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	h := &Handlers{
		db:             db,
		sessionManager: sessionManager,
		authenticator:  authenticator,
		metrics:        recorder,
		logger:         logger,
		templates:      templates,
		version:        opts.Version,
	}

	forms, err := NewFormRegistry(opts.FormCacheSize, loginform.LoginFunc(h.login), logger)
	if err != nil {
		return nil, err
	}
	h.forms = forms

	return h, nil
}

// login is the operation every login form delegates to. It instruments the
// configured authenticator and records the attempt, keeping the rejection
// reason that the form never shows.
func (h *Handlers) login(ctx context.Context, username, password string) error {
	start := time.Now()
	h.metrics.LoginStarted()
	defer h.metrics.LoginFinished()

	err := h.authenticator.Login(ctx, username, password)
	h.metrics.RecordLogin(h.authenticator.Name(), err == nil, time.Since(start))

	attempt := &models.LoginAttempt{
		Username: username,
		Provider: h.authenticator.Name(),
		Success:  err == nil,
	}
	if err != nil {
		attempt.Reason = err.Error()
	}
	if ip, ok := ctx.Value(remoteIPKey{}).(string); ok {
		attempt.RemoteIP = ip
	}
	if recErr := storage.RecordLoginAttempt(h.db, attempt); recErr != nil {
		h.logger.WithError(recErr).Warn("Failed to record login attempt")
	}

	return err
}

// Landing renders the landing page, sending signed-in users home
func (h *Handlers) Landing(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionManager.GetSession(r)
	if err == nil && session != nil && session.IsActive() {
		http.Redirect(w, r, session.HomePath(), http.StatusSeeOther)
		return
	}

	if err := h.renderTemplate(w, "landing", TemplateData{Title: "Welcome"}); err != nil {
		h.logger.WithError(err).Error("Error rendering landing template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// LoginForm renders the visitor's login form. The error region keeps the
// outcome of the last settled submission.
func (h *Handlers) LoginForm(w http.ResponseWriter, r *http.Request) {
	vf, err := h.visitorForm(w, r)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load login form")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	vf.form.SetNext(safeNext(r.URL.Query().Get("next")))
	// A navigation nobody waited for is stale by now
	vf.nav.Take()

	h.renderLogin(w, r, vf, http.StatusOK)
}

// LoginSubmit binds the posted fields to the visitor's form, submits it and
// waits for the login to settle
func (h *Handlers) LoginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.logger.WithError(err).Debug("Failed to parse login form")
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}

	vf, err := h.visitorForm(w, r)
	if err != nil {
		h.logger.WithError(err).Error("Failed to load login form")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	next := r.PostForm.Get("next")
	if next == "" {
		next = r.URL.Query().Get("next")
	}
	vf.form.SetNext(safeNext(next))
	vf.form.SetUsername(r.PostForm.Get(loginform.UsernameFieldID))
	vf.form.SetPassword(r.PostForm.Get(loginform.PasswordFieldID))

	// The login must outlive a client that gives up waiting
	ctx := context.WithValue(context.WithoutCancel(r.Context()), remoteIPKey{}, clientIP(r))
	sub, err := vf.form.HandleSubmit(ctx, formPost{})
	vf.form.SetPassword("")
	if errors.Is(err, loginform.ErrSubmissionInFlight) {
		h.metrics.RecordSubmissionRefused()
		h.renderLogin(w, r, vf, http.StatusConflict)
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to submit login form")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	outcome, err := sub.Wait(r.Context())
	if err != nil {
		h.logger.WithField("username", sub.Username()).Debug("Client left before login settled")
		return
	}

	if !outcome.OK() {
		h.renderLogin(w, r, vf, http.StatusUnauthorized)
		return
	}

	target, ok := vf.nav.Take()
	if !ok {
		target = outcome.Target
	}

	if _, err := h.sessionManager.SaveSession(w, r, sub.Username()); err != nil {
		h.logger.WithError(err).Error("Failed to save session")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"username": sub.Username(),
		"target":   target,
	}).Info("User logged in")

	seeOther(w, target)
}

// Logout clears the session
func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionManager.ClearSession(w, r); err != nil {
		// Log error but continue with logout
		h.logger.WithError(err).Warn("Error clearing session")
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Home renders a signed-in user's page at /{username}/
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	session, ok := auth.GetSessionFromContext(r.Context())
	if !ok || session == nil {
		http.Redirect(w, r, "/auth/login", http.StatusSeeOther)
		return
	}

	if chi.URLParam(r, "username") != session.Username {
		seeOther(w, session.HomePath())
		return
	}

	attempts, err := storage.ListLoginAttempts(h.db, session.Username, recentAttempts)
	if err != nil {
		h.logger.WithError(err).Warn("Error listing login attempts")
		attempts = nil
	}

	data := TemplateData{
		Title:    session.Username,
		Session:  session,
		Attempts: attempts,
	}
	if err := h.renderTemplate(w, "home", data); err != nil {
		h.logger.WithError(err).Error("Error rendering home template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// Healthz reports liveness and database reachability
func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	if err := h.db.PingContext(r.Context()); err != nil {
		http.Error(w, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
}

// NotFound renders the 404 error page
func (h *Handlers) NotFound(w http.ResponseWriter, r *http.Request) {
	session, _ := h.sessionManager.GetSession(r)

	w.WriteHeader(http.StatusNotFound)
	if err := h.renderTemplate(w, "404", TemplateData{Title: "Not found", Session: session}); err != nil {
		h.logger.WithError(err).Error("Error rendering 404 template")
	}
}

func (h *Handlers) visitorForm(w http.ResponseWriter, r *http.Request) (*visitorForm, error) {
	visitorID, err := h.sessionManager.VisitorID(w, r)
	if err != nil {
		return nil, err
	}
	return h.forms.Get(visitorID)
}

func (h *Handlers) renderLogin(w http.ResponseWriter, r *http.Request, vf *visitorForm, status int) {
	view := vf.form.View()
	view.Action = "/auth/login"
	view.CSRFField = csrf.TemplateField(r)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.renderTemplate(w, "login", TemplateData{Title: "Log in", Form: view}); err != nil {
		h.logger.WithError(err).Error("Error rendering login template")
	}
}

// formPost is the submit event of an HTTP form post. The handler answers
// the post itself, so there is no browser default left to suppress.
type formPost struct{}

func (formPost) PreventDefault() {}

// safeNext keeps next only when it is a path on this site
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return ""
	}
	return next
}

// seeOther redirects to path verbatim; http.Redirect would clean it
func seeOther(w http.ResponseWriter, path string) {
	w.Header().Set("Location", path)
	w.WriteHeader(http.StatusSeeOther)
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
