package apikeys

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/palisadehq/palisade/cmd/cmdutil"
	"github.com/palisadehq/palisade/internal/config"
)

var rotateCmd = &cobra.Command{
	Use:   "rotate <public-id>",
	Short: "Rotate an API key",
	Long: `Replaces the key material for an existing key. The previous key string
stops authenticating immediately; team ownership and comment are untouched.`,
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

		key, rawKey, err := bundle.Service.RotateApiKey(context.Background(), args[0])
		if err != nil {
			return fmt.Errorf("failed to rotate api key: %w", err)
		}

		fmt.Println("API key rotated successfully!")
		fmt.Println("----------------------------------------")
		fmt.Printf("New public ID: %s\n", *key.PublicID)
		fmt.Println("----------------------------------------")
		fmt.Printf("Key (shown once, store it now):\n\n  %s\n\n", rawKey)

		return nil
	},
}
