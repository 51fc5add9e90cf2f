package users

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/palisadehq/palisade/cmd/cmdutil"
	"github.com/palisadehq/palisade/internal/config"
	"github.com/palisadehq/palisade/internal/db/models"
)

var (
	usernameFlag string
	passwordFlag string
	providerFlag string
	teamsFlag    []string
	stdinFlag    bool
)

var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a user account",
	Long: `Creates an account. LOCAL accounts require a password; DIRECTORY and
OIDC accounts must not carry one because their credentials are verified by
the directory server or identity provider.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if usernameFlag == "" {
			return fmt.Errorf("--username flag is required")
		}

		provider := models.IdentityProvider(strings.ToUpper(providerFlag))

		password := passwordFlag
		if stdinFlag {
			scanner := bufio.NewScanner(os.Stdin)
			fmt.Print("Enter password: ")
			if scanner.Scan() {
				password = scanner.Text()
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("failed to read password: %w", err)
			}
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

		user, err := bundle.Service.CreateUser(context.Background(), usernameFlag, password, provider, teamsFlag)
		if err != nil {
			return fmt.Errorf("failed to create user: %w", err)
		}

		fmt.Println("User created successfully!")
		fmt.Println("----------------------------------------")
		fmt.Printf("User ID:  %s\n", user.ID)
		fmt.Printf("Username: %s\n", user.Username)
		fmt.Printf("Provider: %s\n", user.Provider)
		if len(user.Teams) > 0 {
			names := make([]string, len(user.Teams))
			for i, team := range user.Teams {
				names[i] = team.Name
			}
			fmt.Printf("Teams:    %s\n", strings.Join(names, ", "))
		}
		fmt.Println("----------------------------------------")

		return nil
	},
}

func init() {
	createCmd.Flags().StringVar(&usernameFlag, "username", "", "Login name (required)")
	createCmd.Flags().StringVar(&passwordFlag, "password", "", "Initial password (LOCAL accounts)")
	createCmd.Flags().StringVar(&providerFlag, "provider", "LOCAL", "Identity provider: LOCAL, DIRECTORY or OIDC")
	createCmd.Flags().StringSliceVar(&teamsFlag, "team", nil, "Team to join at creation (repeatable)")
	createCmd.Flags().BoolVar(&stdinFlag, "stdin", false, "Read the password from stdin")
}
