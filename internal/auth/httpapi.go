package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sirupsen/logrus"

	"github.com/shindakun/loginform/internal/config"
)

// HTTPAPIAuthenticator delegates credential checks to a remote login API
type HTTPAPIAuthenticator struct {
	url    string
	client *retryablehttp.Client
}

// NewHTTPAPIAuthenticator creates an authenticator for the configured login API.
// Connection errors and 5xx answers are retried up to cfg.RetryMax times.
func NewHTTPAPIAuthenticator(cfg config.HTTPAPIConfig, logger logrus.FieldLogger) *HTTPAPIAuthenticator {
	client := retryablehttp.NewClient()
	client.RetryMax = cfg.RetryMax
	client.RetryWaitMin = 100 * time.Millisecond
	client.RetryWaitMax = 2 * time.Second
	client.HTTPClient.Timeout = cfg.Timeout
	client.Logger = nil
	if logger != nil {
		client.Logger = logger
	}

	return &HTTPAPIAuthenticator{
		url:    cfg.URL,
		client: client,
	}
}

// Name returns provider name for logging
func (a *HTTPAPIAuthenticator) Name() string {
	return "http_api"
}

type apiLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type apiLoginResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}

// Login posts the credentials as JSON. A 2xx answer with ok=true resolves;
// 400, 401, 403 or ok=false are invalid credentials; anything else is an
// upstream failure.
func (a *HTTPAPIAuthenticator) Login(ctx context.Context, username, password string) error {
	body, err := json.Marshal(apiLoginRequest{Username: username, Password: password})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	// Limit body to avoid overwhelming memory with a misbehaving upstream
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return fmt.Errorf("%w: failed to read response", ErrUpstream)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: HTTP %d", ErrInvalidCredentials, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: HTTP %d", ErrUpstream, resp.StatusCode)
	}

	var out apiLoginResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("%w: invalid response body: %v", ErrUpstream, err)
	}
	if !out.OK {
		if out.Message != "" {
			return fmt.Errorf("%w: %s", ErrInvalidCredentials, out.Message)
		}
		return ErrInvalidCredentials
	}
	return nil
}
