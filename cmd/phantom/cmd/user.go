package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmcleod/phantom/auth"
	"github.com/jmcleod/phantom/blog"
)

var userPassword string

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage author accounts",
}

var userCreateCmd = &cobra.Command{
	Use:   "create <username>",
	Short: "Create an author account",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, svc, err := openAccounts()
		if err != nil {
			return err
		}
		defer store.Close()

		password, err := readPassword(cmd.InOrStdin())
		if err != nil {
			return err
		}
		if err := svc.ValidatePassword(password); err != nil {
			return err
		}
		hash, err := svc.HashPassword(password)
		if err != nil {
			return err
		}
		u, err := store.CreateUser(cmd.Context(), args[0], hash)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", u.Username, u.ID)
		return nil
	},
}

var userPasswdCmd = &cobra.Command{
	Use:   "passwd <username>",
	Short: "Reset an author's password",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, svc, err := openAccounts()
		if err != nil {
			return err
		}
		defer store.Close()

		cred, err := store.FindByUsername(cmd.Context(), args[0])
		if err != nil {
			if errors.Is(err, auth.ErrCredentialNotFound) {
				return fmt.Errorf("no user named %q", args[0])
			}
			return err
		}
		password, err := readPassword(cmd.InOrStdin())
		if err != nil {
			return err
		}
		if err := svc.ValidatePassword(password); err != nil {
			return err
		}
		hash, err := svc.HashPassword(password)
		if err != nil {
			return err
		}
		if err := store.UpdatePasswordHash(cmd.Context(), cred.UserID, hash); err != nil {
			return fmt.Errorf("failed to update password: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Password updated for %s\n", cred.Username)
		return nil
	},
}

// openAccounts opens the blog database and an auth service for hashing.
// No sessions are created from the CLI.
func openAccounts() (*blog.Store, *auth.Service, error) {
	logger := newLogger()
	store, err := openBlogStore(logger)
	if err != nil {
		return nil, nil, err
	}
	sessions := auth.NewMemorySessionStore()
	sessions.Close()
	cfg := auth.DefaultConfig()
	cfg.BcryptCost = bcryptCost
	return store, auth.NewService(store, sessions, cfg, auth.WithLogger(logger)), nil
}

// readPassword returns --password, PHANTOM_PASSWORD, or the first line of in.
func readPassword(in io.Reader) (string, error) {
	if userPassword != "" {
		return userPassword, nil
	}
	if p := os.Getenv("PHANTOM_PASSWORD"); p != "" {
		return p, nil
	}
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("reading password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password is required (--password, PHANTOM_PASSWORD or stdin)")
	}
	return line, nil
}

func init() {
	rootCmd.AddCommand(userCmd)
	userCmd.AddCommand(userCreateCmd, userPasswdCmd)
	userCmd.PersistentFlags().StringVar(&userPassword, "password", "", "Password (read from stdin when omitted)")
	userCmd.PersistentFlags().IntVar(&bcryptCost, "bcrypt-cost", auth.DefaultBcryptCost, "bcrypt work factor")
}
