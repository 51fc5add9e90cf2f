package apikeys

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/palisadehq/palisade/cmd/cmdutil"
	"github.com/palisadehq/palisade/internal/config"
)

var (
	commentFlag string
	teamsFlag   []string
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create an API key",
	Long: `Mints a new API key owned by the named teams. The full key string is
printed exactly once; only its digest is stored and it cannot be recovered.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(teamsFlag) == 0 {
			return fmt.Errorf("at least one --team is required")
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

		key, rawKey, err := bundle.Service.CreateApiKey(context.Background(), commentFlag, teamsFlag)
		if err != nil {
			return fmt.Errorf("failed to create api key: %w", err)
		}

		names := make([]string, len(key.Teams))
		for i, team := range key.Teams {
			names[i] = team.Name
		}

		fmt.Println("API key created successfully!")
		fmt.Println("----------------------------------------")
		fmt.Printf("Public ID: %s\n", *key.PublicID)
		fmt.Printf("Teams:     %s\n", strings.Join(names, ", "))
		if key.Comment != "" {
			fmt.Printf("Comment:   %s\n", key.Comment)
		}
		fmt.Println("----------------------------------------")
		fmt.Printf("Key (shown once, store it now):\n\n  %s\n\n", rawKey)

		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&commentFlag, "comment", "", "Human-readable label for the key")
	createCmd.Flags().StringSliceVar(&teamsFlag, "team", nil, "Owning team (repeatable, at least one required)")
}
