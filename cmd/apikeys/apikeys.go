// Package apikeys provides API-key administration commands.
package apikeys

import "github.com/spf13/cobra"

// ApiKeysCmd is the parent command for API key administration.
var ApiKeysCmd = &cobra.Command{
	Use:   "apikeys",
	Short: "Manage API keys",
	Long:  `Create, list and rotate the API keys machine clients authenticate with.`,
}

func init() {
	ApiKeysCmd.AddCommand(createCmd)
	ApiKeysCmd.AddCommand(listCmd)
	ApiKeysCmd.AddCommand(rotateCmd)
}
