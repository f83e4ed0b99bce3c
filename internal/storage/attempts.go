package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/shindakun/loginform/internal/models"
)

// RecordLoginAttempt stores the outcome of a settled login
func RecordLoginAttempt(db *sql.DB, attempt *models.LoginAttempt) error {
	if attempt.CreatedAt.IsZero() {
		attempt.CreatedAt = time.Now()
	}

	result, err := db.Exec(`
		INSERT INTO login_attempts (username, provider, success, reason, remote_ip, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		attempt.Username, attempt.Provider, attempt.Success, attempt.Reason, attempt.RemoteIP, attempt.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record login attempt: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get login attempt id: %w", err)
	}
	attempt.ID = id
	return nil
}

// ListLoginAttempts returns the most recent attempts for username, newest first
func ListLoginAttempts(db *sql.DB, username string, limit int) ([]models.LoginAttempt, error) {
	rows, err := db.Query(`
		SELECT id, username, provider, success, COALESCE(reason, ''), COALESCE(remote_ip, ''), created_at
		FROM login_attempts
		WHERE username = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ?`,
		username, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list login attempts: %w", err)
	}
	defer rows.Close()

	var attempts []models.LoginAttempt
	for rows.Next() {
		var a models.LoginAttempt
		if err := rows.Scan(&a.ID, &a.Username, &a.Provider, &a.Success, &a.Reason, &a.RemoteIP, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan login attempt: %w", err)
		}
		attempts = append(attempts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate login attempts: %w", err)
	}
	return attempts, nil
}
