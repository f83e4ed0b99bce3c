package loginform

import "errors"

// FailureMessage is the only text ever shown in the error region.
const FailureMessage = "Unable to log in with provided credentials."

var (
	// ErrAuthenticationFailed is matched by every rejected login.
	ErrAuthenticationFailed = errors.New("authentication failed")

	// ErrSubmissionInFlight is returned when a submit arrives while the
	// previous one has not settled yet.
	ErrSubmissionInFlight = errors.New("login submission already in flight")

	ErrMissingLogin   = errors.New("login operation is required")
	ErrMissingHistory = errors.New("history navigator is required")
)

// AuthError wraps the reason a login was rejected. The reason is kept for
// logging only; users always see FailureMessage.
type AuthError struct {
	Reason error
}

func (e *AuthError) Error() string {
	if e.Reason == nil {
		return ErrAuthenticationFailed.Error()
	}
	return ErrAuthenticationFailed.Error() + ": " + e.Reason.Error()
}

// Unwrap lets errors.Is match both ErrAuthenticationFailed and the reason.
func (e *AuthError) Unwrap() []error {
	if e.Reason == nil {
		return []error{ErrAuthenticationFailed}
	}
	return []error{ErrAuthenticationFailed, e.Reason}
}
