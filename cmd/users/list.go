package users

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/palisadehq/palisade/cmd/cmdutil"
	"github.com/palisadehq/palisade/internal/config"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List user accounts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		bundle, err := cmdutil.NewServiceBundle(cfg)
		if err != nil {
			return err
		}
		defer bundle.Close()

		accounts, err := bundle.Service.ListUsers(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list users: %w", err)
		}

		if len(accounts) == 0 {
			fmt.Println("No users found")
			return nil
		}

		fmt.Printf("%-36s  %-20s  %-9s  %-9s  %s\n", "ID", "USERNAME", "PROVIDER", "SUSPENDED", "TEAMS")
		for i := range accounts {
			user := &accounts[i]
			names := make([]string, len(user.Teams))
			for j, team := range user.Teams {
				names[j] = team.Name
			}
			fmt.Printf("%-36s  %-20s  %-9s  %-9t  %s\n",
				user.ID, user.Username, user.Provider, user.Suspended, strings.Join(names, ","))
		}
		return nil
	},
}
