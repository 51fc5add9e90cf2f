package apikeys

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
	Short: "List API keys",
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

		keys, err := bundle.Service.ListApiKeys(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list api keys: %w", err)
		}

		if len(keys) == 0 {
			fmt.Println("No API keys found")
			return nil
		}

		fmt.Printf("%-12s  %-6s  %-20s  %s\n", "PUBLIC ID", "LEGACY", "COMMENT", "TEAMS")
		for i := range keys {
			key := &keys[i]
			publicID := "-"
			if key.PublicID != nil {
				publicID = *key.PublicID
			}
			names := make([]string, len(key.Teams))
			for j, team := range key.Teams {
				names[j] = team.Name
			}
			fmt.Printf("%-12s  %-6t  %-20s  %s\n", publicID, key.Legacy, key.Comment, strings.Join(names, ","))
		}
		return nil
	},
}
