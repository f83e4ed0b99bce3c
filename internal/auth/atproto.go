package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/xrpc"

	"github.com/shindakun/loginform/internal/config"
)

// ATProtoAuthenticator logs in against an AT Protocol PDS with a handle
// (or email) and an app password
type ATProtoAuthenticator struct {
	client *xrpc.Client
}

// NewATProtoAuthenticator creates an authenticator for the configured PDS host
func NewATProtoAuthenticator(cfg config.ATProtoConfig) *ATProtoAuthenticator {
	return &ATProtoAuthenticator{
		client: &xrpc.Client{
			Host:   cfg.Host,
			Client: &http.Client{Timeout: cfg.Timeout},
		},
	}
}

// Name returns provider name for logging
func (a *ATProtoAuthenticator) Name() string {
	return "atproto"
}

// Login calls com.atproto.server.createSession. The returned tokens are
// discarded: the app keeps its own cookie session.
func (a *ATProtoAuthenticator) Login(ctx context.Context, username, password string) error {
	out, err := comatproto.ServerCreateSession(ctx, a.client, &comatproto.ServerCreateSession_Input{
		Identifier: username,
		Password:   password,
	})
	if err != nil {
		var xerr *xrpc.Error
		if errors.As(err, &xerr) && (xerr.StatusCode == http.StatusUnauthorized || xerr.StatusCode == http.StatusBadRequest) {
			return fmt.Errorf("%w: %v", ErrInvalidCredentials, err)
		}
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	if out.Active != nil && !*out.Active {
		return fmt.Errorf("%w: account is not active", ErrInvalidCredentials)
	}
	return nil
}
