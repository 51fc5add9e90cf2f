package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/palisadehq/palisade/cmd/apikeys"
	"github.com/palisadehq/palisade/cmd/teams"
	"github.com/palisadehq/palisade/cmd/users"
	"github.com/palisadehq/palisade/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "palisade",
	Short: "Palisade credential-validation and access-decision service",
	Long: `Palisade authenticates API keys, bearer tokens, OIDC tokens and
directory credentials for a multi-tenant deployment, and decides whether
the resulting principal may invoke an operation.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		return nil
	},
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().String("db-url", "", "Database connection URL (env: DATABASE_URL)")
	rootCmd.PersistentFlags().String("server-addr", "", "Server bind address (env: SERVER_ADDR)")
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging (env: DEBUG)")

	// Add subcommands
	rootCmd.AddCommand(users.UsersCmd)
	rootCmd.AddCommand(apikeys.ApiKeysCmd)
	rootCmd.AddCommand(teams.TeamsCmd)
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
