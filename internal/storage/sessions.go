package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shindakun/loginform/internal/models"
)

var ErrSessionNotFound = errors.New("session not found")

// SaveSession inserts or replaces a session row
func SaveSession(db *sql.DB, session *models.Session) error {
	if err := session.Validate(); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	query := `
		INSERT INTO sessions (id, username, expires_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			username = excluded.username,
			expires_at = excluded.expires_at
	`
	if _, err := db.Exec(query, session.ID, session.Username, session.ExpiresAt, session.CreatedAt); err != nil {
		return fmt.Errorf("failed to save session to database: %w", err)
	}
	return nil
}

// GetSession retrieves a session by id
func GetSession(db *sql.DB, id string) (*models.Session, error) {
	var session models.Session
	err := db.QueryRow(
		"SELECT id, username, expires_at, created_at FROM sessions WHERE id = ?",
		id,
	).Scan(&session.ID, &session.Username, &session.ExpiresAt, &session.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve session from database: %w", err)
	}
	return &session, nil
}

// DeleteSession removes a session by id. Deleting a missing session is not an error.
func DeleteSession(db *sql.DB, id string) error {
	if _, err := db.Exec("DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session from database: %w", err)
	}
	return nil
}

// PurgeExpiredSessions deletes sessions that expired before now and
// returns how many were removed
func PurgeExpiredSessions(db *sql.DB, now time.Time) (int64, error) {
	result, err := db.Exec("DELETE FROM sessions WHERE expires_at <= ?", now)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rows, nil
}
