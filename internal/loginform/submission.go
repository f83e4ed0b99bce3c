package loginform

import "context"

// Outcome is the settled result of one submission. Exactly one of Target
// and Err is set.
type Outcome struct {
	Target string
	Err    error
}

// OK reports whether the login resolved.
func (o Outcome) OK() bool {
	return o.Err == nil
}

// Submission tracks a single asynchronous login attempt
type Submission struct {
	username string
	done     chan struct{}
	outcome  Outcome
}

func newSubmission(username string) *Submission {
	return &Submission{
		username: username,
		done:     make(chan struct{}),
	}
}

// Username returns the username captured when the submission started
func (s *Submission) Username() string {
	return s.username
}

// Done is closed once the login call has settled and its continuation ran
func (s *Submission) Done() <-chan struct{} {
	return s.done
}

// Outcome returns the result. It is only meaningful after Done is closed.
func (s *Submission) Outcome() Outcome {
	select {
	case <-s.done:
		return s.outcome
	default:
		return Outcome{}
	}
}

// Wait blocks until the submission settles or ctx is done. Giving up on
// the wait does not cancel the login call.
func (s *Submission) Wait(ctx context.Context) (Outcome, error) {
	select {
	case <-s.done:
		return s.outcome, nil
	case <-ctx.Done():
		return Outcome{}, ctx.Err()
	}
}

func (s *Submission) settle(o Outcome) {
	s.outcome = o
	close(s.done)
}
