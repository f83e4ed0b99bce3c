package handlers

import (
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sirupsen/logrus"

	"github.com/shindakun/loginform/internal/loginform"
)

// redirectNavigator records the path a form navigated to so the POST
// handler can answer with a redirect
type redirectNavigator struct {
	mu      sync.Mutex
	pending string
	set     bool
}

func (n *redirectNavigator) Push(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.pending = path
	n.set = true
}

// Take returns and clears the pending navigation
func (n *redirectNavigator) Take() (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	path, ok := n.pending, n.set
	n.pending, n.set = "", false
	return path, ok
}

// visitorForm is one browser's login form and its navigator
type visitorForm struct {
	form *loginform.Form
	nav  *redirectNavigator
}

// FormRegistry keeps a bounded set of live login forms keyed by visitor id.
// Evicting a form with a login in flight is harmless: the login settles on
// the evicted form and nobody reads it.
type FormRegistry struct {
	mu     sync.Mutex
	cache  *lru.Cache[string, *visitorForm]
	login  loginform.Authenticator
	logger logrus.FieldLogger
}

// NewFormRegistry creates a registry holding at most size forms, all
// delegating to login
func NewFormRegistry(size int, login loginform.Authenticator, logger logrus.FieldLogger) (*FormRegistry, error) {
	cache, err := lru.New[string, *visitorForm](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create form cache: %w", err)
	}
	return &FormRegistry{cache: cache, login: login, logger: logger}, nil
}

// Get returns the visitor's form, creating it on first use
func (fr *FormRegistry) Get(visitorID string) (*visitorForm, error) {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	if vf, ok := fr.cache.Get(visitorID); ok {
		return vf, nil
	}

	nav := &redirectNavigator{}
	form, err := loginform.New(
		loginform.Props{Login: fr.login, History: nav},
		loginform.WithLogger(fr.logger.WithField("visitor", visitorID)),
	)
	if err != nil {
		return nil, err
	}

	vf := &visitorForm{form: form, nav: nav}
	fr.cache.Add(visitorID, vf)
	return vf, nil
}

// Len returns the number of live forms
func (fr *FormRegistry) Len() int {
	return fr.cache.Len()
}
