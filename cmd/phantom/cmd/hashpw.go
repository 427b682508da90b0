package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcleod/phantom/auth"
)

var hashPasswordCmd = &cobra.Command{
	Use:   "hash-password",
	Short: "Print a bcrypt digest for a password read from stdin",
	Long: `Reads a password from --password, PHANTOM_PASSWORD or the first line of
stdin and prints its bcrypt digest, for seeding accounts by hand.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		password, err := readPassword(cmd.InOrStdin())
		if err != nil {
			return err
		}
		cost, _ := cmd.Flags().GetInt("cost")
		hash, err := auth.NewPasswordHasher(cost).Hash(password)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), hash)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(hashPasswordCmd)
	hashPasswordCmd.Flags().StringVar(&userPassword, "password", "", "Password (read from stdin when omitted)")
	hashPasswordCmd.Flags().Int("cost", auth.DefaultBcryptCost, "bcrypt work factor")
}
