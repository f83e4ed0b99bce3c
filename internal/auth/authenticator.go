package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/shindakun/loginform/internal/config"
)

var (
	// ErrInvalidCredentials means the provider looked at the credentials and refused them
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrUpstream means the provider could not be reached or answered unexpectedly
	ErrUpstream = errors.New("auth provider unavailable")
)

// Authenticator is a login operation the login form can delegate to
type Authenticator interface {
	Login(ctx context.Context, username, password string) error
	Name() string
}

// New builds the Authenticator selected by cfg.Auth.Provider
func New(cfg *config.Config, db *sql.DB, logger logrus.FieldLogger) (Authenticator, error) {
	switch cfg.Auth.Provider {
	case config.ProviderLocal:
		return NewLocalAuthenticator(db), nil
	case config.ProviderHTTPAPI:
		return NewHTTPAPIAuthenticator(cfg.Auth.HTTPAPI, logger), nil
	case config.ProviderATProto:
		return NewATProtoAuthenticator(cfg.Auth.ATProto), nil
	default:
		return nil, fmt.Errorf("unsupported auth provider %q", cfg.Auth.Provider)
	}
}
