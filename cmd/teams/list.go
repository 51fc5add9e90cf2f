package teams

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
	Short: "List teams and their permissions",
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

		list, err := bundle.Service.ListTeams(context.Background())
		if err != nil {
			return fmt.Errorf("failed to list teams: %w", err)
		}

		if len(list) == 0 {
			fmt.Println("No teams found")
			return nil
		}

		fmt.Printf("%-24s  %s\n", "NAME", "PERMISSIONS")
		for i := range list {
			team := &list[i]
			names := make([]string, len(team.Permissions))
			for j, perm := range team.Permissions {
				names[j] = perm.Name
			}
			fmt.Printf("%-24s  %s\n", team.Name, strings.Join(names, ","))
		}
		return nil
	},
}
