package models

import "time"

// LoginAttempt records the outcome of one settled login submission.
// Reason keeps the rejection cause that users never get to see.
type LoginAttempt struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	Provider  string    `json:"provider"`
	Success   bool      `json:"success"`
	Reason    string    `json:"reason,omitempty"`
	RemoteIP  string    `json:"remote_ip"`
	CreatedAt time.Time `json:"created_at"`
}
