package iam

import (
	"context"
	"time"

	"github.com/palisadehq/palisade/internal/db/models"
)

// Service provides all identity and access management operations.
//
// This service centralizes:
//   - Authentication (request path - performance critical)
//   - Interactive login and token issuance (control plane)
//   - Authorization (request path - pure function over the principal)
//   - User/API key management (admin operations)
//   - Team/permission management (admin operations)
type Service interface {
	// =========================================================================
	// Authentication (Request Path - Performance Critical)
	// =========================================================================

	// AuthenticateRequest tries all registered authenticators in order.
	// Returns the first successful Principal, or nil if none succeed.
	//
	// Authenticators are tried in priority order:
	//   1. APIKeyAuthenticator (checks X-Api-Key header)
	//   2. BearerAuthenticator (checks Authorization: Bearer token)
	//
	// Returns:
	//   - (principal, nil): Authentication successful
	//   - (nil, nil): No valid credentials found (unauthenticated request)
	//   - (nil, error): Authentication failed (invalid credentials)
	AuthenticateRequest(ctx context.Context, req AuthRequest) (*Principal, error)

	// =========================================================================
	// Interactive Login (Control Plane)
	// =========================================================================

	// LoginWithPassword authenticates a username/password pair and issues a
	// bearer token on success.
	//
	// Managed accounts are consulted first. When the deployment has a
	// directory configured, a managed rejection for bad credentials falls
	// through to the directory; rejections for account state (suspended,
	// password change required) never do.
	//
	// Failures carry an auth.CauseType so transports can map them without
	// string matching.
	LoginWithPassword(ctx context.Context, username, password string) (*LoginResult, error)

	// LoginWithOIDC authenticates federated tokens minted by the configured
	// identity provider and issues a bearer token on success.
	//
	// Returns:
	//   - (result, nil): Login successful
	//   - (nil, nil): OIDC disabled, no tokens presented, or provider
	//     discovery unavailable (caller should treat as "not applicable")
	//   - (nil, error): Login failed
	LoginWithOIDC(ctx context.Context, creds OIDCCredentials) (*LoginResult, error)

	// =========================================================================
	// Authorization (Request Path - Read-Only)
	// =========================================================================

	// Authorize checks if the principal holds ANY of the required permissions.
	//
	// Uses principal.Permissions (pre-resolved at authentication time), so
	// this is a pure in-memory check. No database reads occur.
	//
	// An empty required set denies: routes must name what they demand.
	Authorize(principal *Principal, required ...string) bool

	// Capabilities reports which login paths this deployment accepts.
	// Managed logins are always available; directory and OIDC depend on
	// configuration.
	Capabilities() Capabilities

	// =========================================================================
	// User Management (Admin Operations)
	// =========================================================================

	// CreateUser creates a new account for the given identity provider.
	//
	// Parameters:
	//   - username: Login name, unique per provider (required)
	//   - password: Initial password. Required for LOCAL accounts, must be
	//     empty for DIRECTORY and OIDC accounts (their credentials live
	//     elsewhere)
	//   - provider: Identity provider that vouches for the account
	//   - teamNames: Teams to join at creation. Unknown names fail the call
	//     and report which names were invalid
	CreateUser(ctx context.Context, username, password string, provider models.IdentityProvider, teamNames []string) (*models.User, error)

	// ChangePassword rotates a managed account's password after verifying
	// the current one.
	//
	// Works even when the account is flagged for a forced password change
	// (that is the point of the flag) and clears the flag on success.
	// Suspended accounts are rejected.
	ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error

	// SetUserSuspended suspends or reinstates an account. Suspended accounts
	// fail authentication on every path, including previously issued tokens.
	//
	// Usernames are unique per provider, not globally, so the provider is
	// part of the address. Suspending the wrong account is not a mistake
	// this API should make possible.
	SetUserSuspended(ctx context.Context, username string, provider models.IdentityProvider, suspended bool) error

	// RequirePasswordChange flags a managed account so its next password
	// login is rejected until the password is rotated.
	RequirePasswordChange(ctx context.Context, username string) error

	// ListUsers returns all accounts with their team memberships preloaded.
	ListUsers(ctx context.Context) ([]models.User, error)

	// =========================================================================
	// API Key Management (Admin Operations)
	// =========================================================================

	// CreateApiKey mints a new API key owned by the named teams.
	//
	// At least one team is required: a key without teams would hold no
	// permissions and could never pass authorization.
	//
	// Returns:
	//   - key: Created record (stores only the secret digest)
	//   - rawKey: The full key string. Shown once; it cannot be recovered
	CreateApiKey(ctx context.Context, comment string, teamNames []string) (*models.ApiKey, string, error)

	// RotateApiKey replaces the key material for an existing key. The old
	// string stops authenticating the moment the new one is stored; team
	// ownership and comment are untouched.
	RotateApiKey(ctx context.Context, publicID string) (*models.ApiKey, string, error)

	// ListApiKeys returns all keys with their owning teams preloaded.
	ListApiKeys(ctx context.Context) ([]models.ApiKey, error)

	// =========================================================================
	// Team & Permission Management (Admin Operations)
	// =========================================================================

	// CreateTeam creates a named team. Names are unique.
	CreateTeam(ctx context.Context, name string) (*models.Team, error)

	// MapGroup maps an external IdP group name onto a team so OIDC team
	// sync can resolve it. One group may map to many teams.
	MapGroup(ctx context.Context, groupName, teamName string) error

	// ListTeams returns all teams with their permissions preloaded.
	ListTeams(ctx context.Context) ([]models.Team, error)

	// CreatePermission registers a named capability.
	CreatePermission(ctx context.Context, name, description string) (*models.Permission, error)

	// GrantTeamPermission grants a permission to every member of a team,
	// current and future.
	GrantTeamPermission(ctx context.Context, teamName, permissionName string) error

	// GrantUserPermission grants a permission directly to one account,
	// independent of team membership. The provider disambiguates accounts
	// sharing a username.
	GrantUserPermission(ctx context.Context, username string, provider models.IdentityProvider, permissionName string) error

	// ListPermissions returns all registered permissions.
	ListPermissions(ctx context.Context) ([]models.Permission, error)
}

// LoginResult is the outcome of a successful interactive login.
type LoginResult struct {
	// Principal is the authenticated identity with permissions resolved.
	Principal *Principal

	// Token is a signed bearer token for subsequent requests.
	Token string

	// ExpiresAt is when the token stops validating.
	ExpiresAt time.Time
}

// Capabilities reports which credential types a deployment accepts.
// Serialized on the health endpoint so clients can pick a login flow
// without probing.
type Capabilities struct {
	// Managed is always true: local accounts need no external dependency.
	Managed bool `json:"managed"`

	// Directory is true when an LDAP directory is configured.
	Directory bool `json:"directory"`

	// OIDC is true when a federated identity provider is configured.
	OIDC bool `json:"oidc"`
}
