package main

import (
	"bufio"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/shindakun/loginform/internal/auth"
	"github.com/shindakun/loginform/internal/config"
	"github.com/shindakun/loginform/internal/metrics"
	"github.com/shindakun/loginform/internal/storage"
	"github.com/shindakun/loginform/internal/version"
	"github.com/shindakun/loginform/internal/web/handlers"
	webmiddleware "github.com/shindakun/loginform/internal/web/middleware"
)

const sessionPurgeInterval = time.Hour

const usage = `usage: loginform [serve]
       loginform adduser <username>    (password from LOGINFORM_PASSWORD or stdin)
       loginform version`

var log = logrus.New()

func main() {
	// Load .env before reading CONFIG_PATH and expanding the config
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.WithError(err).Warn("Error loading .env file")
	}

	cmd := "serve"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "version", "-version", "--version":
		fmt.Println(version.GetFullVersion())
		return
	case "serve", "adduser":
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "./config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to load configuration")
	}
	setupLogger(cfg.Log)

	// Initialize database
	db, err := storage.InitDB(cfg.Storage.DBPath)
	if err != nil {
		log.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()
	log.WithField("path", cfg.Storage.DBPath).Info("Database initialized")

	if cmd == "adduser" {
		if err := addUser(db, os.Args[2:]); err != nil {
			log.WithError(err).Fatal("Failed to add user")
		}
		return
	}

	if err := serve(cfg, db); err != nil {
		log.WithError(err).Fatal("Server failed")
	}
}

func setupLogger(cfg config.LogConfig) {
	if cfg.Format == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	log.SetOutput(os.Stdout)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		log.WithError(err).Warn("Unknown log level, using info")
		level = logrus.InfoLevel
	}
	log.SetLevel(level)
}

func serve(cfg *config.Config, db *sql.DB) error {
	log.WithField("version", version.GetVersion()).Info("Starting login server")

	// Initialize session manager
	sessionManager := auth.InitSessions(
		cfg.Session.Secret,
		cfg.Session.MaxAge,
		cfg.CookieSecure(),
		cfg.SameSite(),
		db,
	)

	authenticator, err := auth.New(cfg, db, log)
	if err != nil {
		return err
	}
	log.WithField("provider", authenticator.Name()).Info("Authenticator initialized")

	recorder := metrics.Init(cfg.Server.MetricsEnabled)

	h, err := handlers.New(db, sessionManager, authenticator, recorder, log, handlers.Options{
		FormCacheSize: cfg.Login.FormCacheSize,
		Version:       version.GetVersion(),
	})
	if err != nil {
		return err
	}

	limiter := webmiddleware.NewRateLimiter(
		cfg.RateLimit.RequestsPerWindow,
		cfg.RateLimit.WindowDuration,
		cfg.RateLimit.Burst,
	)

	// HTTP server configuration
	srv := &http.Server{
		Addr:         cfg.GetAddr(),
		Handler:      h.Routes(cfg, limiter),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go purgeSessions(ctx, db)

	// Start server in goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.WithField("url", cfg.GetBaseURL()).Info("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	log.Info("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server exited successfully")
	return nil
}

// purgeSessions deletes expired session rows until ctx is done
func purgeSessions(ctx context.Context, db *sql.DB) {
	ticker := time.NewTicker(sessionPurgeInterval)
	defer ticker.Stop()

	for {
		n, err := storage.PurgeExpiredSessions(db, time.Now())
		if err != nil {
			log.WithError(err).Warn("Failed to purge expired sessions")
		} else if n > 0 {
			log.WithField("count", n).Info("Purged expired sessions")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func addUser(db *sql.DB, args []string) error {
	if len(args) != 1 || strings.TrimSpace(args[0]) == "" {
		return errors.New(usage)
	}
	username := args[0]

	password := os.Getenv("LOGINFORM_PASSWORD")
	if password == "" {
		fmt.Fprint(os.Stderr, "Password: ")
		scanner := bufio.NewScanner(os.Stdin)
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
			return errors.New("no password given")
		}
		password = strings.TrimRight(scanner.Text(), "\r")
	}
	if password == "" {
		return errors.New("password must not be empty")
	}

	if err := auth.CreateUser(db, username, password); err != nil {
		return err
	}

	log.WithField("username", username).Info("User created")
	return nil
}
