package middleware

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/csrf"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"

	"github.com/shindakun/loginform/internal/auth"
	"github.com/shindakun/loginform/internal/config"
	"github.com/shindakun/loginform/internal/storage"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

// TestCSRFTokenGeneration verifies that CSRF middleware generates distinct tokens
func TestCSRFTokenGeneration(t *testing.T) {
	secret := []byte("test-secret-key-32-bytes-long!!!")
	var tokens []string

	handler := CSRFProtection(secret, false, "csrf_token")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokens = append(tokens, csrf.Token(r))
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/auth/login", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("Expected status 200, got %d", w.Code)
		}
	}

	if len(tokens) != 2 || tokens[0] == "" || tokens[1] == "" {
		t.Fatalf("Expected two tokens, got %v", tokens)
	}
	if tokens[0] == tokens[1] {
		t.Error("Expected different tokens for different sessions")
	}
}

func TestCSRFRejectsPostWithoutToken(t *testing.T) {
	secret := []byte("test-secret-key-32-bytes-long!!!")
	handler := CSRFProtection(secret, false, "")(okHandler())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/auth/login", strings.NewReader("username=a&password=b"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusForbidden {
		t.Errorf("Expected status 403, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "CSRF") {
		t.Errorf("Expected CSRF in error message, got: %s", w.Body.String())
	}
}

func TestSecurityHeaders(t *testing.T) {
	cfg := config.Default()

	t.Run("http omits HSTS", func(t *testing.T) {
		w := httptest.NewRecorder()
		SecurityHeaders(cfg)(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
			t.Errorf("Expected X-Frame-Options DENY, got %q", got)
		}
		if got := w.Header().Get("Cache-Control"); got != "no-store" {
			t.Errorf("Expected Cache-Control no-store, got %q", got)
		}
		if got := w.Header().Get("Strict-Transport-Security"); got != "" {
			t.Errorf("Expected no HSTS over http, got %q", got)
		}
	})

	t.Run("https sends HSTS", func(t *testing.T) {
		httpsCfg := config.Default()
		httpsCfg.Server.BaseURL = "https://login.example.com"

		w := httptest.NewRecorder()
		SecurityHeaders(httpsCfg)(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		if got := w.Header().Get("Strict-Transport-Security"); got == "" {
			t.Error("Expected HSTS header over https")
		}
	})
}

func TestMaxBytesMiddleware(t *testing.T) {
	readAll := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			http.Error(w, "too large", http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	handler := MaxBytesMiddleware(16)(readAll)

	t.Run("under limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader("username=a")))
		if w.Code != http.StatusOK {
			t.Errorf("Expected 200, got %d", w.Code)
		}
	})

	t.Run("declared length over limit", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(strings.Repeat("x", 64))))
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("Expected 413, got %d", w.Code)
		}
	})

	t.Run("streamed body over limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", io.NopCloser(bytes.NewReader(bytes.Repeat([]byte("x"), 64))))
		req.ContentLength = -1
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		if w.Code != http.StatusRequestEntityTooLarge {
			t.Errorf("Expected 413, got %d", w.Code)
		}
	})
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour, 2)
	handler := rl.Middleware(okHandler())

	post := func(remote string) int {
		req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
		req.RemoteAddr = remote
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w.Code
	}

	if post("10.0.0.1:1000") != http.StatusOK || post("10.0.0.1:1001") != http.StatusOK {
		t.Fatal("Expected burst of 2 to be allowed")
	}
	if code := post("10.0.0.1:1002"); code != http.StatusTooManyRequests {
		t.Errorf("Expected 429 after burst, got %d", code)
	}
	if code := post("10.0.0.2:1000"); code != http.StatusOK {
		t.Errorf("Expected other IP to be unaffected, got %d", code)
	}

	// GETs are never limited
	req := httptest.NewRequest(http.MethodGet, "/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:1003"
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Errorf("Expected GET to pass, got %d", w.Code)
	}
}

func TestRequireAuth(t *testing.T) {
	db, err := storage.InitDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	sm := auth.InitSessions("0123456789abcdef0123456789abcdef", 3600, false, http.SameSiteLaxMode, db)

	var seen string
	handler := RequireAuth(sm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, ok := auth.GetSessionFromContext(r.Context())
		if ok {
			seen = session.Username
		}
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("anonymous is redirected with next", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/alice/", nil))

		if w.Code != http.StatusSeeOther {
			t.Fatalf("Expected 303, got %d", w.Code)
		}
		if got := w.Header().Get("Location"); got != "/auth/login?next=%2Falice%2F" {
			t.Errorf("Unexpected Location %q", got)
		}
	})

	t.Run("signed in passes through", func(t *testing.T) {
		login := httptest.NewRecorder()
		if _, err := sm.SaveSession(login, httptest.NewRequest(http.MethodPost, "/auth/login", nil), "alice"); err != nil {
			t.Fatalf("SaveSession() failed: %v", err)
		}

		req := httptest.NewRequest(http.MethodGet, "/alice/", nil)
		for _, c := range login.Result().Cookies() {
			req.AddCookie(c)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected 200, got %d", w.Code)
		}
		if seen != "alice" {
			t.Errorf("Expected session in context, got %q", seen)
		}
	})
}

func TestRecoverer(t *testing.T) {
	logger, hook := test.NewNullLogger()
	handler := Recoverer(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
	if entry := hook.LastEntry(); entry == nil || entry.Level != logrus.ErrorLevel {
		t.Error("Expected panic to be logged at error level")
	}
}

func TestLoggingMiddleware(t *testing.T) {
	logger, hook := test.NewNullLogger()
	handler := LoggingMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/auth/login", nil))

	entry := hook.LastEntry()
	if entry == nil {
		t.Fatal("Expected a log entry")
	}
	if entry.Data["status"] != http.StatusTeapot {
		t.Errorf("Expected status field 418, got %v", entry.Data["status"])
	}
	if entry.Data["bytes"] != len("short and stout") {
		t.Errorf("Unexpected bytes field %v", entry.Data["bytes"])
	}
	if entry.Data["user"] != "-" {
		t.Errorf("Expected anonymous user, got %v", entry.Data["user"])
	}
}
