package teams

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/palisadehq/palisade/cmd/cmdutil"
	"github.com/palisadehq/palisade/internal/config"
)

var permDescriptionFlag string

var createPermissionCmd = &cobra.Command{
	Use:   "create-permission <name>",
	Short: "Register a named permission",
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

		perm, err := bundle.Service.CreatePermission(context.Background(), args[0], permDescriptionFlag)
		if err != nil {
			return fmt.Errorf("failed to create permission: %w", err)
		}

		fmt.Printf("Permission %q created (id %s)\n", perm.Name, perm.ID)
		return nil
	},
}

func init() {
	createPermissionCmd.Flags().StringVar(&permDescriptionFlag, "description", "", "Human-readable description")
}
