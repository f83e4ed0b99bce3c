package models

import (
	"fmt"
	"time"
)

// User is a locally registered account
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"` // bcrypt, never serialized
	CreatedAt    time.Time `json:"created_at"`
}

// Validate checks if the user fields are valid
func (u *User) Validate() error {
	if u.Username == "" {
		return fmt.Errorf("username is required")
	}
	if u.PasswordHash == "" {
		return fmt.Errorf("password hash is required")
	}
	return nil
}
