package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/shindakun/loginform/internal/models"
	"github.com/shindakun/loginform/internal/storage"
)

// LocalAuthenticator checks credentials against the users table
type LocalAuthenticator struct {
	db *sql.DB
}

// NewLocalAuthenticator creates a local database authenticator
func NewLocalAuthenticator(db *sql.DB) *LocalAuthenticator {
	return &LocalAuthenticator{db: db}
}

// Name returns provider name for logging
func (a *LocalAuthenticator) Name() string {
	return "local"
}

// Login verifies the bcrypt hash stored for username
func (a *LocalAuthenticator) Login(ctx context.Context, username, password string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	user, err := storage.GetUser(a.db, username)
	if errors.Is(err, storage.ErrUserNotFound) {
		return fmt.Errorf("%w: unknown user", ErrInvalidCredentials)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return fmt.Errorf("%w: password mismatch", ErrInvalidCredentials)
	}
	return nil
}

// HashPassword returns a bcrypt hash suitable for models.User.PasswordHash
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CreateUser hashes password and stores a new local account
func CreateUser(db *sql.DB, username, password string) error {
	hash, err := HashPassword(password)
	if err != nil {
		return err
	}
	return storage.CreateUser(db, &models.User{Username: username, PasswordHash: hash})
}
