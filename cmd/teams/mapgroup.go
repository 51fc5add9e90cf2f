package teams

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/palisadehq/palisade/cmd/cmdutil"
	"github.com/palisadehq/palisade/internal/config"
)

var mapGroupCmd = &cobra.Command{
	Use:   "map-group <group> <team>",
	Short: "Map an identity-provider group onto a team",
	Long: `Maps an external group name to a local team. OIDC sign-ins whose token
carries the group are synchronized into the team on every login.`,
	Args: cobra.ExactArgs(2),
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

		if err := bundle.Service.MapGroup(context.Background(), args[0], args[1]); err != nil {
			return fmt.Errorf("failed to map group: %w", err)
		}

		fmt.Printf("Group %q mapped to team %q\n", args[0], args[1])
		return nil
	},
}
