package repository

import (
	"context"
	"errors"

	"github.com/palisadehq/palisade/internal/db/models"
)

// ErrNotFound marks lookups that matched nothing. Callers distinguish it
// from infrastructure failures with errors.Is: an unknown username is an
// authentication outcome, a broken connection is not.
var ErrNotFound = errors.New("not found")

// UserRepository exposes persistence operations for user accounts. The
// Get*ByUsername lookups are provider-scoped and preload team memberships,
// team permissions and direct permission grants.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	GetManagedByUsername(ctx context.Context, username string) (*models.User, error)
	GetDirectoryByUsername(ctx context.Context, username string) (*models.User, error)
	GetOidcByUsername(ctx context.Context, username string) (*models.User, error)
	SetPasswordHash(ctx context.Context, id string, passwordHash string) error
	List(ctx context.Context) ([]models.User, error)

	// Membership edges
	ReplaceTeams(ctx context.Context, userID string, teamIDs []string) error
	AddToTeams(ctx context.Context, userID string, teamIDs []string) error
	GrantPermission(ctx context.Context, userID, permissionID string) error
}

// ApiKeyRepository exposes persistence operations for API keys. Lookups
// preload the owning teams and their permissions.
type ApiKeyRepository interface {
	Create(ctx context.Context, key *models.ApiKey, teamIDs []string) error
	GetByPublicID(ctx context.Context, publicID string) (*models.ApiKey, error)
	GetLegacyByDigest(ctx context.Context, digest string) (*models.ApiKey, error)
	// Rotate atomically replaces the key material for an existing record;
	// the previous public id and digest stop matching in the same write.
	Rotate(ctx context.Context, id, newPublicID, newSecretHash string) error
	UpdateLastUsed(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.ApiKey, error)
}

// TeamRepository exposes persistence operations for teams and the OIDC
// group mapping table.
type TeamRepository interface {
	Create(ctx context.Context, team *models.Team) error
	GetByName(ctx context.Context, name string) (*models.Team, error)
	GetByNames(ctx context.Context, names []string) ([]models.Team, error)
	// GetByMappedGroups resolves external IdP group names to teams through
	// the group mapping table.
	GetByMappedGroups(ctx context.Context, groupNames []string) ([]models.Team, error)
	MapGroup(ctx context.Context, groupName, teamID string) error
	AddPermission(ctx context.Context, teamID, permissionID string) error
	List(ctx context.Context) ([]models.Team, error)
}

// PermissionRepository exposes persistence operations for named
// capabilities.
type PermissionRepository interface {
	Create(ctx context.Context, permission *models.Permission) error
	GetByName(ctx context.Context, name string) (*models.Permission, error)
	List(ctx context.Context) ([]models.Permission, error)
}
