package config

import (
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Auth providers understood by auth.New
const (
	ProviderLocal   = "local"
	ProviderHTTPAPI = "http_api"
	ProviderATProto = "atproto"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Auth      AuthConfig      `yaml:"auth"`
	Session   SessionConfig   `yaml:"session"`
	Login     LoginConfig     `yaml:"login"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Port            int            `yaml:"port"`
	Host            string         `yaml:"host"`
	BaseURL         string         `yaml:"base_url"` // Optional: public URL, used to decide HSTS and secure cookies
	ReadTimeout     time.Duration  `yaml:"read_timeout"`
	WriteTimeout    time.Duration  `yaml:"write_timeout"`
	IdleTimeout     time.Duration  `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration  `yaml:"shutdown_timeout"`
	MetricsEnabled  bool           `yaml:"metrics_enabled"`
	Security        SecurityConfig `yaml:"security"`
}

// SecurityConfig contains security-related settings
type SecurityConfig struct {
	CSRFEnabled     bool                  `yaml:"csrf_enabled"`
	CSRFFieldName   string                `yaml:"csrf_field_name"`
	MaxRequestBytes int64                 `yaml:"max_request_bytes"`
	Headers         SecurityHeadersConfig `yaml:"headers"`
}

// SecurityHeadersConfig contains HTTP security header settings
type SecurityHeadersConfig struct {
	XFrameOptions           string `yaml:"x_frame_options"`
	XContentTypeOptions     string `yaml:"x_content_type_options"`
	ReferrerPolicy          string `yaml:"referrer_policy"`
	ContentSecurityPolicy   string `yaml:"content_security_policy"`
	StrictTransportSecurity string `yaml:"strict_transport_security"`
}

// StorageConfig contains database settings
type StorageConfig struct {
	DBPath string `yaml:"db_path"`
}

// AuthConfig selects and configures the login operation
type AuthConfig struct {
	Provider string        `yaml:"provider"` // "local", "http_api", "atproto"
	HTTPAPI  HTTPAPIConfig `yaml:"http_api"`
	ATProto  ATProtoConfig `yaml:"atproto"`
}

// HTTPAPIConfig configures the remote login API
type HTTPAPIConfig struct {
	URL      string        `yaml:"url"`
	Timeout  time.Duration `yaml:"timeout"`
	RetryMax int           `yaml:"retry_max"`
}

// ATProtoConfig configures password login against a PDS
type ATProtoConfig struct {
	Host    string        `yaml:"host"` // e.g. https://bsky.social
	Timeout time.Duration `yaml:"timeout"`
}

// SessionConfig contains cookie session settings
type SessionConfig struct {
	Secret         string `yaml:"secret"`
	MaxAge         int    `yaml:"max_age"`
	CookieSecure   string `yaml:"cookie_secure"`   // "auto", "true", "false"
	CookieSameSite string `yaml:"cookie_samesite"` // "strict", "lax", "none"
}

// LoginConfig contains login form settings
type LoginConfig struct {
	FormCacheSize int `yaml:"form_cache_size"`
}

// RateLimitConfig limits login submissions per client IP
type RateLimitConfig struct {
	RequestsPerWindow int           `yaml:"requests_per_window"`
	WindowDuration    time.Duration `yaml:"window_duration"`
	Burst             int           `yaml:"burst"`
}

// LogConfig contains logger settings
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "text" or "json"
}

// Load reads configuration from the specified file path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML configuration, expands environment variables and
// validates the result
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	// Override with environment variables if set
	if baseURL := os.Getenv("BASE_URL"); baseURL != "" {
		cfg.Server.BaseURL = baseURL
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with every optional field filled in
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "localhost",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			MetricsEnabled:  true,
			Security: SecurityConfig{
				CSRFEnabled:     true,
				CSRFFieldName:   "csrf_token",
				MaxRequestBytes: 1 << 20,
				Headers: SecurityHeadersConfig{
					XFrameOptions:           "DENY",
					XContentTypeOptions:     "nosniff",
					ReferrerPolicy:          "strict-origin-when-cross-origin",
					ContentSecurityPolicy:   "default-src 'self'",
					StrictTransportSecurity: "max-age=31536000; includeSubDomains",
				},
			},
		},
		Storage: StorageConfig{
			DBPath: "./data/loginform.db",
		},
		Auth: AuthConfig{
			Provider: ProviderLocal,
			HTTPAPI: HTTPAPIConfig{
				Timeout:  8 * time.Second,
				RetryMax: 2,
			},
			ATProto: ATProtoConfig{
				Host:    "https://bsky.social",
				Timeout: 10 * time.Second,
			},
		},
		Session: SessionConfig{
			MaxAge:         7 * 24 * 60 * 60,
			CookieSecure:   "auto",
			CookieSameSite: "lax",
		},
		Login: LoginConfig{
			FormCacheSize: 4096,
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: 10,
			WindowDuration:    time.Minute,
			Burst:             5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that all required configuration fields are set
func (c *Config) Validate() error {
	// Session validation
	if c.Session.Secret == "" || strings.Contains(c.Session.Secret, "${") {
		return fmt.Errorf("session.secret is required (set SESSION_SECRET environment variable)")
	}
	if len(c.Session.Secret) < 32 {
		return fmt.Errorf("session.secret must be at least 32 characters")
	}
	switch strings.ToLower(c.Session.CookieSecure) {
	case "auto", "true", "false":
	default:
		return fmt.Errorf("session.cookie_secure must be one of auto, true, false")
	}

	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Storage.DBPath == "" {
		return fmt.Errorf("storage.db_path is required")
	}

	// Auth validation
	switch c.Auth.Provider {
	case ProviderLocal:
	case ProviderHTTPAPI:
		if c.Auth.HTTPAPI.URL == "" {
			return fmt.Errorf("auth.http_api.url is required for the http_api provider")
		}
		if c.Auth.HTTPAPI.RetryMax < 0 {
			return fmt.Errorf("auth.http_api.retry_max must not be negative")
		}
	case ProviderATProto:
		if c.Auth.ATProto.Host == "" {
			return fmt.Errorf("auth.atproto.host is required for the atproto provider")
		}
	default:
		return fmt.Errorf("auth.provider %q is not supported", c.Auth.Provider)
	}

	if c.Login.FormCacheSize < 1 {
		return fmt.Errorf("login.form_cache_size must be at least 1")
	}

	// Rate limit validation
	if c.RateLimit.RequestsPerWindow < 1 {
		return fmt.Errorf("rate_limit.requests_per_window must be at least 1")
	}
	if c.RateLimit.WindowDuration <= 0 {
		return fmt.Errorf("rate_limit.window_duration must be positive")
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json")
	}

	return nil
}

// GetAddr returns the full server address (host:port)
func (c *Config) GetAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetBaseURL returns base_url if set, otherwise constructs it from host:port
func (c *Config) GetBaseURL() string {
	if c.Server.BaseURL != "" {
		return c.Server.BaseURL
	}
	return fmt.Sprintf("http://%s", c.GetAddr())
}

// IsHTTPS returns true if the base URL uses HTTPS
func (c *Config) IsHTTPS() bool {
	return strings.HasPrefix(strings.ToLower(c.GetBaseURL()), "https://")
}

// CookieSecure resolves session.cookie_secure, where "auto" follows IsHTTPS
func (c *Config) CookieSecure() bool {
	switch strings.ToLower(c.Session.CookieSecure) {
	case "true":
		return true
	case "false":
		return false
	default:
		return c.IsHTTPS()
	}
}

// SameSite maps session.cookie_samesite to an http.SameSite mode
func (c *Config) SameSite() http.SameSite {
	switch strings.ToLower(strings.TrimSpace(c.Session.CookieSameSite)) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
