package cmd

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"github.com/jmcleod/phantom/api"
	"github.com/jmcleod/phantom/auth"
	"github.com/jmcleod/phantom/blog"
	"github.com/jmcleod/phantom/internal/util"
	bboltstorage "github.com/jmcleod/phantom/storage/bbolt"
	pgstorage "github.com/jmcleod/phantom/storage/postgres"
)

var (
	port          int
	dataDir       string
	databaseDSN   string
	sessionStore  string
	sessionSecret string
	sessionDSN    string
	production    bool
	bcryptCost    int
	themeDir      string
	tlsCert       string
	tlsKey        string
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the blog server",
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		if err := os.MkdirAll(dataDir, 0o700); err != nil {
			return fmt.Errorf("failed to create data directory: %w", err)
		}

		store, err := openBlogStore(logger)
		if err != nil {
			return err
		}
		defer store.Close()

		sessions, closeSessions, err := openSessionStore(cmd.Context(), logger)
		if err != nil {
			return err
		}
		defer closeSessions()

		cfg := auth.DefaultConfig()
		cfg.SecureCookies = production
		cfg.BcryptCost = bcryptCost
		svc := auth.NewService(store, sessions, cfg, auth.WithLogger(logger))

		if themeDir == "" {
			themeDir = filepath.Join(dataDir, "themes")
		}
		a := api.New(svc, store, blog.NewThemeStore(themeDir), api.WithLogger(logger))

		r := chi.NewRouter()
		r.Use(middleware.RequestID)
		r.Use(middleware.RealIP)
		r.Use(middleware.Logger)
		r.Use(middleware.Recoverer)
		r.Use(api.SecurityHeaders(production))

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			if err := store.Ping(); err != nil {
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
			w.Write([]byte("OK"))
		})

		r.Mount("/api", a.Router())

		var tlsConfig *tls.Config
		if tlsCert != "" || tlsKey != "" {
			cert, err := tls.LoadX509KeyPair(tlsCert, tlsKey)
			if err != nil {
				return fmt.Errorf("failed to load TLS key pair: %w", err)
			}
			tlsConfig = &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
			}
		}

		server := &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           r,
			TLSConfig:         tlsConfig,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
			ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
		}

		// Graceful shutdown on SIGINT/SIGTERM.
		done := make(chan error, 1)
		go func() {
			var err error
			if tlsConfig != nil {
				err = server.ListenAndServeTLS("", "")
			} else {
				err = server.ListenAndServe()
			}
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				done <- fmt.Errorf("server failed: %w", err)
				return
			}
			done <- nil
		}()

		printBanner()
		logger.Info("server started",
			slog.Int("port", port),
			slog.String("data_dir", dataDir),
			slog.String("session_store", sessionStore),
			slog.Bool("tls", tlsConfig != nil),
			slog.Bool("production", production))

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-quit:
			logger.Info("shutting down", slog.String("signal", sig.String()))
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(ctx); err != nil {
				return fmt.Errorf("server shutdown failed: %w", err)
			}
			return nil
		case err := <-done:
			return err
		}
	},
}

// openSessionStore builds the session store selected by --session-store.
// The returned func releases it and its backing repository.
func openSessionStore(ctx context.Context, logger *slog.Logger) (auth.SessionStore, func(), error) {
	if sessionStore == "memory" {
		s := auth.NewMemorySessionStore()
		return s, s.Close, nil
	}

	if sessionSecret == "" {
		sessionSecret = os.Getenv("PHANTOM_SESSION_SECRET")
	}
	wrappingKey, err := util.DeriveKeyFromSecret(sessionSecret, "session-wrapping-key")
	if err != nil {
		return nil, nil, fmt.Errorf("--session-secret is required for the %s session store: %w", sessionStore, err)
	}
	defer util.WipeBytes(wrappingKey)

	switch sessionStore {
	case "bbolt":
		repo, err := bboltstorage.NewRepositoryFromFile(filepath.Join(dataDir, "sessions.db"), nil)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open session storage: %w", err)
		}
		s, err := auth.NewPersistentSessionStore(repo, wrappingKey, logger)
		if err != nil {
			repo.Close()
			return nil, nil, err
		}
		return s, func() { s.Close(); repo.Close() }, nil
	case "postgres":
		dsn := sessionDSN
		if dsn == "" {
			dsn = databaseDSN
		}
		repo, err := pgstorage.NewRepositoryFromDSN(ctx, dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open session storage: %w", err)
		}
		s, err := auth.NewPersistentSessionStore(repo, wrappingKey, logger)
		if err != nil {
			repo.Close()
			return nil, nil, err
		}
		return s, func() { s.Close(); repo.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown session store %q (want memory, bbolt or postgres)", sessionStore)
	}
}

func init() {
	rootCmd.AddCommand(serverCmd)
	serverCmd.Flags().IntVarP(&port, "port", "p", 3000, "Port to listen on")
	serverCmd.Flags().StringVar(&dataDir, "data-dir", "./data", "Directory for persistent data")
	serverCmd.Flags().StringVar(&sessionStore, "session-store", "memory", "Session store: memory, bbolt or postgres")
	serverCmd.Flags().StringVar(&sessionSecret, "session-secret", "", "Secret for sealing persistent sessions (or PHANTOM_SESSION_SECRET)")
	serverCmd.Flags().StringVar(&sessionDSN, "session-dsn", "", "PostgreSQL DSN for the postgres session store (defaults to --database)")
	serverCmd.Flags().BoolVar(&production, "production", false, "Secure cookies and HSTS")
	serverCmd.Flags().IntVar(&bcryptCost, "bcrypt-cost", auth.DefaultBcryptCost, "bcrypt work factor for new password hashes")
	serverCmd.Flags().StringVar(&themeDir, "theme-dir", "", "Directory for the custom theme (defaults to <data-dir>/themes)")
	serverCmd.Flags().StringVar(&tlsCert, "tls-cert", "", "Path to TLS certificate file")
	serverCmd.Flags().StringVar(&tlsKey, "tls-key", "", "Path to TLS key file")
}
