package teams

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/palisadehq/palisade/cmd/cmdutil"
	"github.com/palisadehq/palisade/internal/config"
)

var createCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a team",
	Args:  cobra.ExactArgs(1),
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

		team, err := bundle.Service.CreateTeam(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to create team: %w", err)
		}

		fmt.Printf("Team %q created (id %s)\n", team.Name, team.ID)
		return nil
	},
}
