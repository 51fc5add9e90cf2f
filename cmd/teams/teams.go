// Package teams provides team and permission administration commands.
package teams

import "github.com/spf13/cobra"

// TeamsCmd is the parent command for team administration.
var TeamsCmd = &cobra.Command{
	Use:   "teams",
	Short: "Manage teams and permissions",
	Long:  `Create teams, map identity-provider groups and grant permissions.`,
}

func init() {
	TeamsCmd.AddCommand(createCmd)
	TeamsCmd.AddCommand(listCmd)
	TeamsCmd.AddCommand(mapGroupCmd)
	TeamsCmd.AddCommand(grantCmd)
	TeamsCmd.AddCommand(createPermissionCmd)
}
