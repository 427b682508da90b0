package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmcleod/phantom/blog"
)

// Version is set at build time with -ldflags "-X".
var Version = "dev"

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "phantom",
	Short: "Phantom is a self-hosted blog server",
	Long: `A self-hosted blog with session authentication, optional TOTP two-factor
login, markdown import/export and a JSON API.`,
	SilenceUsage: true,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&databaseDSN, "database", "sqlite://./data/phantom.db", "Database DSN (sqlite://path or postgres://...)")
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// openBlogStore opens --database, creating the parent directory of a
// SQLite file when needed.
func openBlogStore(logger *slog.Logger) (*blog.Store, error) {
	if path, ok := strings.CutPrefix(databaseDSN, "sqlite://"); ok {
		if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	store, err := blog.Open(databaseDSN, blog.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return store, nil
}
