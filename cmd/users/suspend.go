package users

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
	suspendProviderFlag string
	reinstateFlag       bool
)

var suspendCmd = &cobra.Command{
	Use:   "suspend <username>",
	Short: "Suspend or reinstate an account",
	Long: `Suspends an account so every authentication path rejects it, including
previously issued tokens. Use --reinstate to lift a suspension.`,
	Args: cobra.ExactArgs(1),
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

		provider := models.IdentityProvider(strings.ToUpper(suspendProviderFlag))
		username := args[0]
		suspended := !reinstateFlag

		if err := bundle.Service.SetUserSuspended(context.Background(), username, provider, suspended); err != nil {
			return err
		}

		if suspended {
			fmt.Printf("Suspended %s account %q\n", provider, username)
		} else {
			fmt.Printf("Reinstated %s account %q\n", provider, username)
		}
		return nil
	},
}

func init() {
	suspendCmd.Flags().StringVar(&suspendProviderFlag, "provider", "LOCAL", "Identity provider: LOCAL, DIRECTORY or OIDC")
	suspendCmd.Flags().BoolVar(&reinstateFlag, "reinstate", false, "Lift the suspension instead of applying it")
}
