// Package users provides account-administration commands.
package users

import "github.com/spf13/cobra"

// UsersCmd is the parent command for account administration.
var UsersCmd = &cobra.Command{
	Use:   "users",
	Short: "Manage user accounts",
	Long:  `Create, list and administer managed, directory and OIDC accounts.`,
}

func init() {
	UsersCmd.AddCommand(createCmd)
	UsersCmd.AddCommand(listCmd)
	UsersCmd.AddCommand(suspendCmd)
}
