package config

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestParseAppliesDefaults(t *testing.T) {
	cfg, err := Parse([]byte("session:\n  secret: " + testSecret + "\n"))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Auth.Provider != ProviderLocal {
		t.Errorf("Expected local provider, got %q", cfg.Auth.Provider)
	}
	if cfg.RateLimit.WindowDuration != time.Minute {
		t.Errorf("Expected 1m window, got %s", cfg.RateLimit.WindowDuration)
	}
	if !cfg.Server.Security.CSRFEnabled {
		t.Error("Expected CSRF to be enabled by default")
	}
}

func TestParseExpandsEnvironment(t *testing.T) {
	t.Setenv("TEST_SESSION_SECRET", testSecret)
	t.Setenv("TEST_LOGIN_API", "http://login.internal/api/login")

	cfg, err := Parse([]byte(`
session:
  secret: ${TEST_SESSION_SECRET}
auth:
  provider: http_api
  http_api:
    url: ${TEST_LOGIN_API}
    retry_max: 3
`))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if cfg.Session.Secret != testSecret {
		t.Errorf("Expected secret to be expanded, got %q", cfg.Session.Secret)
	}
	if cfg.Auth.HTTPAPI.URL != "http://login.internal/api/login" {
		t.Errorf("Unexpected http_api url %q", cfg.Auth.HTTPAPI.URL)
	}
	if cfg.Auth.HTTPAPI.RetryMax != 3 {
		t.Errorf("Expected retry_max 3, got %d", cfg.Auth.HTTPAPI.RetryMax)
	}
	if cfg.Auth.HTTPAPI.Timeout != 8*time.Second {
		t.Errorf("Expected default timeout to survive partial override, got %s", cfg.Auth.HTTPAPI.Timeout)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"missing secret", func(c *Config) { c.Session.Secret = "" }, "session.secret is required"},
		{"unexpanded secret", func(c *Config) { c.Session.Secret = "${SESSION_SECRET}" }, "session.secret is required"},
		{"short secret", func(c *Config) { c.Session.Secret = "short" }, "at least 32 characters"},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"unknown provider", func(c *Config) { c.Auth.Provider = "ldap" }, "not supported"},
		{"http_api without url", func(c *Config) { c.Auth.Provider = ProviderHTTPAPI }, "auth.http_api.url"},
		{"atproto without host", func(c *Config) {
			c.Auth.Provider = ProviderATProto
			c.Auth.ATProto.Host = ""
		}, "auth.atproto.host"},
		{"zero form cache", func(c *Config) { c.Login.FormCacheSize = 0 }, "form_cache_size"},
		{"zero rate", func(c *Config) { c.RateLimit.RequestsPerWindow = 0 }, "requests_per_window"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
		{"bad cookie_secure", func(c *Config) { c.Session.CookieSecure = "maybe" }, "cookie_secure"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Session.Secret = testSecret
			tt.mutate(cfg)

			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "server:\n  port: 9090\nsession:\n  secret: " + testSecret + "\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.GetAddr() != "localhost:9090" {
		t.Errorf("Unexpected addr %q", cfg.GetAddr())
	}
}

func TestCookieHelpers(t *testing.T) {
	cfg := Default()
	cfg.Session.Secret = testSecret

	if cfg.CookieSecure() {
		t.Error("Expected auto cookie_secure to be false over http")
	}

	cfg.Server.BaseURL = "https://login.example.com"
	if !cfg.IsHTTPS() || !cfg.CookieSecure() {
		t.Error("Expected auto cookie_secure to follow https base url")
	}

	cfg.Session.CookieSecure = "false"
	if cfg.CookieSecure() {
		t.Error("Expected explicit false to win")
	}

	cfg.Session.CookieSameSite = "Strict"
	if cfg.SameSite() != http.SameSiteStrictMode {
		t.Errorf("Expected strict mode, got %v", cfg.SameSite())
	}
	cfg.Session.CookieSameSite = ""
	if cfg.SameSite() != http.SameSiteLaxMode {
		t.Errorf("Expected lax default, got %v", cfg.SameSite())
	}
}
