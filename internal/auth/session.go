package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/sessions"

	"github.com/shindakun/loginform/internal/models"
	"github.com/shindakun/loginform/internal/storage"
)

const (
	sessionName       = "loginform-session"
	sessionKeyID      = "session_id"
	sessionKeyVisitor = "visitor_id"
)

// ErrNoSession is returned when the request carries no signed-in session
var ErrNoSession = errors.New("no session found in cookie")

type contextKey struct{}

// SessionManager handles session operations
type SessionManager struct {
	store  *sessions.CookieStore
	db     *sql.DB
	maxAge time.Duration
}

// InitSessions creates a session manager backed by an HTTP-only cookie and the sessions table
func InitSessions(secret string, maxAge int, secure bool, sameSite http.SameSite, db *sql.DB) *SessionManager {
	store := sessions.NewCookieStore([]byte(secret))

	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true, // Prevent JavaScript access
		Secure:   secure,
		SameSite: sameSite,
	}

	return &SessionManager{
		store:  store,
		db:     db,
		maxAge: time.Duration(maxAge) * time.Second,
	}
}

// SaveSession signs username in: it stores a new session row and points the cookie at it
func (sm *SessionManager) SaveSession(w http.ResponseWriter, r *http.Request, username string) (*models.Session, error) {
	now := time.Now()
	session := &models.Session{
		ID:        uuid.New().String(),
		Username:  username,
		ExpiresAt: now.Add(sm.maxAge),
		CreatedAt: now,
	}

	if err := storage.SaveSession(sm.db, session); err != nil {
		return nil, err
	}

	cookieSession, err := sm.store.Get(r, sessionName)
	if err != nil {
		// A cookie signed with an old secret decodes to an empty session
		cookieSession, _ = sm.store.New(r, sessionName)
	}

	// Replace whatever session the cookie pointed at before
	if oldID, ok := cookieSession.Values[sessionKeyID].(string); ok && oldID != "" {
		if err := storage.DeleteSession(sm.db, oldID); err != nil {
			return nil, err
		}
	}
	cookieSession.Values[sessionKeyID] = session.ID

	if err := cookieSession.Save(r, w); err != nil {
		return nil, fmt.Errorf("failed to save cookie session: %w", err)
	}

	return session, nil
}

// GetSession retrieves session data from cookie and database
func (sm *SessionManager) GetSession(r *http.Request) (*models.Session, error) {
	cookieSession, err := sm.store.Get(r, sessionName)
	if err != nil {
		return nil, fmt.Errorf("failed to get cookie session: %w", err)
	}

	id, ok := cookieSession.Values[sessionKeyID].(string)
	if !ok || id == "" {
		return nil, ErrNoSession
	}

	session, err := storage.GetSession(sm.db, id)
	if err != nil {
		return nil, err
	}

	if session.IsExpired() {
		// Clean up expired session
		if err := storage.DeleteSession(sm.db, id); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("session has expired")
	}

	return session, nil
}

// ClearSession removes the session from cookie and database (logout)
func (sm *SessionManager) ClearSession(w http.ResponseWriter, r *http.Request) error {
	cookieSession, err := sm.store.Get(r, sessionName)
	if err != nil {
		// If we can't get the session, it might already be cleared
		return nil
	}

	if id, ok := cookieSession.Values[sessionKeyID].(string); ok && id != "" {
		if err := storage.DeleteSession(sm.db, id); err != nil {
			return err
		}
	}

	cookieSession.Options.MaxAge = -1
	if err := cookieSession.Save(r, w); err != nil {
		return fmt.Errorf("failed to clear cookie session: %w", err)
	}

	return nil
}

// VisitorID returns a stable anonymous id for the browser, setting the
// cookie when the visitor is new. It must be called before the response
// header is written.
func (sm *SessionManager) VisitorID(w http.ResponseWriter, r *http.Request) (string, error) {
	cookieSession, err := sm.store.Get(r, sessionName)
	if err != nil {
		cookieSession, _ = sm.store.New(r, sessionName)
	}

	if id, ok := cookieSession.Values[sessionKeyVisitor].(string); ok && id != "" {
		return id, nil
	}

	id := uuid.New().String()
	cookieSession.Values[sessionKeyVisitor] = id
	if err := cookieSession.Save(r, w); err != nil {
		return "", fmt.Errorf("failed to save visitor id: %w", err)
	}
	return id, nil
}

// GetSessionFromContext retrieves session from request context
func GetSessionFromContext(ctx context.Context) (*models.Session, bool) {
	session, ok := ctx.Value(contextKey{}).(*models.Session)
	return session, ok
}

// SetSessionInContext stores session in request context
func SetSessionInContext(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, contextKey{}, session)
}
