package server

import (
	"context"

	"github.com/palisadehq/palisade/internal/db/models"
	"github.com/palisadehq/palisade/internal/services/iam"
)

// iamService defines the exact IAM methods used by server handlers. This
// interface provides compile-time proof that iam.Service satisfies all
// requirements without the handlers reaching into repositories or IAM
// implementation details.
type iamService interface {
	// Login and identity
	LoginWithPassword(ctx context.Context, username, password string) (*iam.LoginResult, error)
	LoginWithOIDC(ctx context.Context, creds iam.OIDCCredentials) (*iam.LoginResult, error)
	ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error
	Capabilities() iam.Capabilities

	// User management
	CreateUser(ctx context.Context, username, password string, provider models.IdentityProvider, teamNames []string) (*models.User, error)
	SetUserSuspended(ctx context.Context, username string, provider models.IdentityProvider, suspended bool) error
	RequirePasswordChange(ctx context.Context, username string) error
	ListUsers(ctx context.Context) ([]models.User, error)

	// API key management
	CreateApiKey(ctx context.Context, comment string, teamNames []string) (*models.ApiKey, string, error)
	RotateApiKey(ctx context.Context, publicID string) (*models.ApiKey, string, error)
	ListApiKeys(ctx context.Context) ([]models.ApiKey, error)

	// Team and permission management
	CreateTeam(ctx context.Context, name string) (*models.Team, error)
	MapGroup(ctx context.Context, groupName, teamName string) error
	ListTeams(ctx context.Context) ([]models.Team, error)
	CreatePermission(ctx context.Context, name, description string) (*models.Permission, error)
	GrantTeamPermission(ctx context.Context, teamName, permissionName string) error
	GrantUserPermission(ctx context.Context, username string, provider models.IdentityProvider, permissionName string) error
	ListPermissions(ctx context.Context) ([]models.Permission, error)
}

// Compile-time assertion: iam.Service must implement iamService. A build
// failure here means a handler depends on a method the service dropped.
var _ iamService = (iam.Service)(nil)
