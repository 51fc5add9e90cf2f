package teams

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/palisadehq/palisade/cmd/cmdutil"
	"github.com/palisadehq/palisade/internal/config"
	"github.com/palisadehq/palisade/internal/db/models"
)

var (
	grantTeamFlag     string
	grantUserFlag     string
	grantProviderFlag string
)

var grantCmd = &cobra.Command{
	Use:   "grant <permission>",
	Short: "Grant a permission to a team or user",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (grantTeamFlag == "") == (grantUserFlag == "") {
			return fmt.Errorf("exactly one of --team or --user is required")
		}

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		bundle, err := cmdutil.NewServiceBundle(cfg)
		if err != nil {
			return err
		}
		defer bundle.Close()

		ctx := context.Background()
		if grantTeamFlag != "" {
			if err := bundle.Service.GrantTeamPermission(ctx, grantTeamFlag, args[0]); err != nil {
				return fmt.Errorf("failed to grant permission: %w", err)
			}
			fmt.Printf("Permission %q granted to team %q\n", args[0], grantTeamFlag)
			return nil
		}

		provider := models.IdentityProvider(strings.ToUpper(grantProviderFlag))
		if err := bundle.Service.GrantUserPermission(ctx, grantUserFlag, provider, args[0]); err != nil {
			return fmt.Errorf("failed to grant permission: %w", err)
		}
		fmt.Printf("Permission %q granted to user %q\n", args[0], grantUserFlag)
		return nil
	},
}

func init() {
	grantCmd.Flags().StringVar(&grantTeamFlag, "team", "", "Team to receive the permission")
	grantCmd.Flags().StringVar(&grantUserFlag, "user", "", "Username to receive the permission")
	grantCmd.Flags().StringVar(&grantProviderFlag, "provider", "LOCAL", "Identity provider of the user: LOCAL, DIRECTORY or OIDC")
}
