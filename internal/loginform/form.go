// Package loginform implements the credential-entry form: it binds a
// username and password, hands them to an injected login operation and
// either navigates or shows a fixed error message once the login settles.
package loginform

import (
	"context"
	"io"
	"sync"

	"github.com/sirupsen/logrus"
)

// Authenticator is the login operation the form delegates to.
// A nil error means the login resolved; any error means it was rejected.
type Authenticator interface {
	Login(ctx context.Context, username, password string) error
}

// LoginFunc adapts a plain function to Authenticator
type LoginFunc func(ctx context.Context, username, password string) error

// Login calls f(ctx, username, password)
func (f LoginFunc) Login(ctx context.Context, username, password string) error {
	return f(ctx, username, password)
}

// Navigator moves the user to a new location after a successful login
type Navigator interface {
	Push(path string)
}

// NavigatorFunc adapts a plain function to Navigator
type NavigatorFunc func(path string)

// Push calls f(path)
func (f NavigatorFunc) Push(path string) {
	f(path)
}

// SubmitEvent is the submit event delivered to HandleSubmit
type SubmitEvent interface {
	PreventDefault()
}

// Credentials is the username/password pair captured at submission time
type Credentials struct {
	Username string
	Password string
}

// Props are supplied by the embedding application
type Props struct {
	// Next is the post-login destination. Empty means absent.
	Next    string
	Login   Authenticator
	History Navigator
}

// Option configures a Form
type Option func(*Form)

// WithLogger sets the logger used for rejected logins and guard hits
func WithLogger(logger logrus.FieldLogger) Option {
	return func(f *Form) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithObserver registers a callback invoked after every settled submission
func WithObserver(fn func(Outcome)) Option {
	return func(f *Form) {
		f.observer = fn
	}
}

// Form is the login form component. It is safe for concurrent use.
type Form struct {
	login    Authenticator
	history  Navigator
	logger   logrus.FieldLogger
	observer func(Outcome)

	mu       sync.Mutex
	next     string
	username string
	password string
	errText  string
	inFlight *Submission
}

// New creates a form bound to the given collaborators
func New(props Props, opts ...Option) (*Form, error) {
	if props.Login == nil {
		return nil, ErrMissingLogin
	}
	if props.History == nil {
		return nil, ErrMissingHistory
	}

	discard := logrus.New()
	discard.SetOutput(io.Discard)

	f := &Form{
		login:   props.Login,
		history: props.History,
		next:    props.Next,
		logger:  discard,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Target returns where a successful login for username navigates to
func Target(next, username string) string {
	if next != "" {
		return next
	}
	return "/" + username + "/"
}

// SetUsername binds the username field value
func (f *Form) SetUsername(v string) {
	f.mu.Lock()
	f.username = v
	f.mu.Unlock()
}

// SetPassword binds the password field value
func (f *Form) SetPassword(v string) {
	f.mu.Lock()
	f.password = v
	f.mu.Unlock()
}

// SetNext updates the redirect target. Submissions already in flight keep
// the target that was set when they started.
func (f *Form) SetNext(next string) {
	f.mu.Lock()
	f.next = next
	f.mu.Unlock()
}

// Next returns the current redirect target
func (f *Form) Next() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.next
}

// Credentials returns the currently bound field values
func (f *Form) Credentials() Credentials {
	f.mu.Lock()
	defer f.mu.Unlock()
	return Credentials{Username: f.username, Password: f.password}
}

// ErrorMessage returns the error region's text
func (f *Form) ErrorMessage() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errText
}

// Submitting reports whether a login is in flight
func (f *Form) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inFlight != nil
}

// HandleSubmit suppresses the event's default action, snapshots the bound
// credentials and starts the login call. It returns without waiting for
// the login to settle.
func (f *Form) HandleSubmit(ctx context.Context, ev SubmitEvent) (*Submission, error) {
	if ev != nil {
		ev.PreventDefault()
	}

	f.mu.Lock()
	if f.inFlight != nil {
		username := f.inFlight.username
		f.mu.Unlock()
		f.logger.WithField("username", username).Debug("Ignoring submit while login is in flight")
		return nil, ErrSubmissionInFlight
	}

	creds := Credentials{Username: f.username, Password: f.password}
	next := f.next
	sub := newSubmission(creds.Username)
	f.inFlight = sub
	f.errText = ""
	f.mu.Unlock()

	go f.run(ctx, sub, creds, next)

	return sub, nil
}

func (f *Form) run(ctx context.Context, sub *Submission, creds Credentials, next string) {
	var outcome Outcome
	if err := f.login.Login(ctx, creds.Username, creds.Password); err != nil {
		outcome.Err = &AuthError{Reason: err}
	} else {
		outcome.Target = Target(next, creds.Username)
	}

	f.mu.Lock()
	if !outcome.OK() {
		f.errText = FailureMessage
	}
	f.inFlight = nil
	f.mu.Unlock()

	if outcome.OK() {
		f.history.Push(outcome.Target)
	} else {
		f.logger.WithFields(logrus.Fields{
			"username": creds.Username,
			"reason":   outcome.Err,
		}).Warn("Login rejected")
	}

	if f.observer != nil {
		f.observer(outcome)
	}
	sub.settle(outcome)
}
