package iam

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/palisadehq/palisade/internal/auth"
	"github.com/palisadehq/palisade/internal/cache"
	"github.com/palisadehq/palisade/internal/config"
	"github.com/palisadehq/palisade/internal/db/models"
	"github.com/palisadehq/palisade/internal/directory"
	"github.com/palisadehq/palisade/internal/oidc"
	"github.com/palisadehq/palisade/internal/repository"
	"github.com/palisadehq/palisade/internal/telemetry"
)

// iamService implements the Service interface.
//
// This is the concrete implementation used throughout the codebase. It
// coordinates between repositories, the credential helpers (passwords,
// API key codec, token service) and the authenticator implementations.
type iamService struct {
	cfg *config.Config

	// Repositories
	users       repository.UserRepository
	teams       repository.TeamRepository
	keys        repository.ApiKeyRepository
	permissions repository.PermissionRepository

	// Credential plumbing
	passwords *auth.PasswordService
	codec     *auth.APIKeyCodec
	tokens    *TokenService

	// Login authenticators (control plane)
	passwordAuth *PasswordAuthenticator
	oidcAuth     *OIDCAuthenticator

	// Request-path authenticators, in priority order
	authenticators []Authenticator

	// metrics is nil when instrument construction failed; the record
	// helpers tolerate that
	metrics *telemetry.AuthMetrics
}

// Dependencies contains all runtime dependencies for service construction.
//
// This struct is used for dependency injection, making it easy to:
//   - Test with mocks
//   - Swap implementations
//   - Add new dependencies without breaking existing code
type Dependencies struct {
	Users       repository.UserRepository
	Teams       repository.TeamRepository
	ApiKeys     repository.ApiKeyRepository
	Permissions repository.PermissionRepository

	// Cache backs OIDC discovery and signing key lookups so the identity
	// provider is not consulted on every login.
	Cache cache.Service

	// HTTPClient performs all identity provider calls. Proxy and timeout
	// settings are the caller's concern.
	HTTPClient *http.Client

	// SigningKey signs and validates bearer tokens.
	SigningKey []byte
}

// New creates the IAM service with all dependencies.
//
// The directory authenticator is only constructed when LDAP is actually
// configured; the password path then never consults it. The OIDC stack is
// always constructed because its authenticator short-circuits to "not
// applicable" on its own when the provider is disabled or unreachable.
func New(cfg *config.Config, deps Dependencies) (Service, error) {
	if len(deps.SigningKey) == 0 {
		return nil, fmt.Errorf("bearer token signing key is required")
	}

	passwords, err := auth.NewPasswordService(cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("initialize password service: %w", err)
	}

	var codecOpts []auth.CodecOption
	if cfg.RequireKeyPrefix {
		codecOpts = append(codecOpts, auth.WithRequiredPrefix())
	}
	codec := auth.NewAPIKeyCodec(cfg.APIKeyPrefix, codecOpts...)

	tokens := NewTokenService(cfg.AppName, deps.SigningKey)

	managed := NewManagedAuthenticator(deps.Users, passwords)
	var dirAuth *DirectoryAuthenticator
	if cfg.LDAP.Configured() {
		dirAuth = NewDirectoryAuthenticator(directory.New(cfg.LDAP), deps.Users)
	}

	discovery := oidc.NewDiscoveryResolver(cfg.OIDC.AuthorityURL, deps.HTTPClient, deps.Cache)
	keys := oidc.NewKeySetResolver(deps.HTTPClient, deps.Cache)
	verifier := oidc.NewIDTokenVerifier(cfg.OIDC.ClientID, keys)
	userinfo := oidc.NewUserInfoClient(deps.HTTPClient)

	metrics, err := telemetry.NewAuthMetrics()
	if err != nil {
		log.Printf("WARNING: authentication metrics disabled: %v", err)
	}

	svc := &iamService{
		cfg:          cfg,
		users:        deps.Users,
		teams:        deps.Teams,
		keys:         deps.ApiKeys,
		permissions:  deps.Permissions,
		passwords:    passwords,
		codec:        codec,
		tokens:       tokens,
		passwordAuth: NewPasswordAuthenticator(managed, dirAuth),
		oidcAuth:     NewOIDCAuthenticator(cfg.OIDC, discovery, verifier, userinfo, deps.Users, deps.Teams),
		metrics:      metrics,
	}

	// Request-path priority: the API key header is cheaper to check than
	// a token signature, and machine traffic dominates.
	svc.authenticators = []Authenticator{
		NewAPIKeyAuthenticator(codec, deps.ApiKeys),
		NewBearerAuthenticator(tokens, deps.Users),
	}

	return svc, nil
}

// =========================================================================
// Authentication (Request Path - Performance Critical)
// =========================================================================

// AuthenticateRequest tries all registered authenticators in order.
//
// Algorithm:
//   - Try each authenticator in sequence
//   - If authenticator returns (nil, nil): no credentials, try next
//   - If authenticator returns (nil, error): authentication failed, stop and return error
//   - If authenticator returns (principal, nil): success, stop and return principal
//   - If all authenticators return (nil, nil): return (nil, nil) for unauthenticated request
func (s *iamService) AuthenticateRequest(ctx context.Context, req AuthRequest) (*Principal, error) {
	ctx, span := telemetry.StartSpan(ctx, "palisade/services/iam", "iam.AuthenticateRequest",
		attribute.Int("authenticator_count", len(s.authenticators)),
	)
	defer span.End()

	for i, authenticator := range s.authenticators {
		start := time.Now()
		principal, err := authenticator.Authenticate(ctx, req)
		if err != nil {
			// Authentication failed (invalid credentials)
			s.recordAuth(ctx, authenticator.Name(), start, err)
			telemetry.AddEvent(span, "authentication.failed",
				attribute.String(telemetry.AttrAuthMethod, authenticator.Name()),
				attribute.String(telemetry.AttrAuthCause, string(auth.CauseOf(err))),
				attribute.Int("authenticator_index", i),
			)
			telemetry.RecordError(span, err)
			return nil, err
		}
		if principal != nil {
			// Authentication succeeded
			s.recordAuth(ctx, authenticator.Name(), start, nil)
			span.SetAttributes(
				attribute.String(telemetry.AttrPrincipalName, principal.Name),
				attribute.String(telemetry.AttrPrincipalType, string(principal.Type)),
				attribute.Int("authenticator_index", i),
			)
			telemetry.AddEvent(span, "authentication.succeeded",
				attribute.String(telemetry.AttrAuthMethod, authenticator.Name()),
				attribute.Int("authenticator_index", i),
			)
			return principal, nil
		}
		// principal == nil && err == nil: no credentials for this authenticator, try next
	}

	// No valid credentials found (unauthenticated request)
	telemetry.AddEvent(span, "authentication.no_credentials")
	return nil, nil
}

// =========================================================================
// Interactive Login (Control Plane)
// =========================================================================

// LoginWithPassword authenticates a username/password pair and issues a
// bearer token on success. Managed accounts first, then the directory when
// one is configured; see PasswordAuthenticator for the fall-through rule.
func (s *iamService) LoginWithPassword(ctx context.Context, username, password string) (*LoginResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "palisade/services/iam", "iam.LoginWithPassword",
		attribute.String(telemetry.AttrAuthMethod, "password"),
	)
	defer span.End()

	start := time.Now()
	user, err := s.passwordAuth.Authenticate(ctx, username, password)
	s.recordAuth(ctx, "password", start, err)
	if err != nil {
		telemetry.AddEvent(span, "auth.rejected",
			attribute.String(telemetry.AttrAuthCause, string(auth.CauseOf(err))),
		)
		telemetry.RecordError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String(telemetry.AttrPrincipalName, user.Username))
	return s.loginResult(ctx, user)
}

// LoginWithOIDC authenticates federated tokens and issues a bearer token
// on success. The (nil, nil) return means OIDC did not apply to this
// attempt; no metric is recorded because no credential was judged.
func (s *iamService) LoginWithOIDC(ctx context.Context, creds OIDCCredentials) (*LoginResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "palisade/services/iam", "iam.LoginWithOIDC",
		attribute.String(telemetry.AttrAuthMethod, "oidc"),
	)
	defer span.End()

	start := time.Now()
	user, err := s.oidcAuth.Authenticate(ctx, creds)
	if err != nil {
		s.recordAuth(ctx, "oidc", start, err)
		telemetry.AddEvent(span, "auth.rejected",
			attribute.String(telemetry.AttrAuthCause, string(auth.CauseOf(err))),
		)
		telemetry.RecordError(span, err)
		return nil, err
	}
	if user == nil {
		telemetry.AddEvent(span, "oidc.not_applicable")
		return nil, nil
	}

	s.recordAuth(ctx, "oidc", start, nil)
	span.SetAttributes(attribute.String(telemetry.AttrPrincipalName, user.Username))
	return s.loginResult(ctx, user)
}

// loginResult converts an authenticated account into a LoginResult with a
// freshly issued bearer token. Permissions are resolved once, here; the
// token carries them as informational claims only.
func (s *iamService) loginResult(ctx context.Context, user *models.User) (*LoginResult, error) {
	principal := FromUser(user)
	token, expiresAt, err := s.tokens.Issue(user.Username, principal.Permissions, user.Provider)
	if err != nil {
		return nil, auth.WrapError(auth.CauseOther, "issue bearer token", err)
	}
	s.recordTokenIssued(ctx, user.Provider)
	return &LoginResult{Principal: principal, Token: token, ExpiresAt: expiresAt}, nil
}

// =========================================================================
// Authorization (Request Path - Read-Only)
// =========================================================================

// Authorize checks if the principal holds ANY of the required permissions.
// Pure in-memory check over permissions resolved at authentication time.
func (s *iamService) Authorize(principal *Principal, required ...string) bool {
	if principal == nil {
		return false
	}
	return HasAnyPermission(principal.Permissions, required...)
}

// Capabilities reports which login paths this deployment accepts.
func (s *iamService) Capabilities() Capabilities {
	return Capabilities{
		Managed:   true,
		Directory: s.cfg.LDAP.Configured(),
		OIDC:      s.cfg.OIDC.Enabled && s.cfg.OIDC.AuthorityURL != "",
	}
}

// =========================================================================
// User Management (Admin Operations)
// =========================================================================

// CreateUser creates a new account for the given identity provider.
//
// Managed accounts must carry a password; directory and federated accounts
// must not, because their credentials are verified elsewhere and a stored
// digest would suggest otherwise.
func (s *iamService) CreateUser(ctx context.Context, username, password string, provider models.IdentityProvider, teamNames []string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}

	user := &models.User{
		Username: username,
		Provider: provider,
	}

	switch provider {
	case models.ProviderLocal:
		if password == "" {
			return nil, fmt.Errorf("managed accounts require a password")
		}
		hash, err := s.passwords.Hash(password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = &hash
	case models.ProviderDirectory, models.ProviderOIDC:
		if password != "" {
			return nil, fmt.Errorf("%s accounts authenticate against their provider and cannot carry a password", provider)
		}
	default:
		return nil, fmt.Errorf("unknown identity provider %q", provider)
	}

	// Resolve teams before creating anything so bad input leaves no
	// half-made account behind.
	teams, err := s.resolveTeams(ctx, teamNames)
	if err != nil {
		return nil, err
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if len(teams) > 0 {
		teamIDs := make([]string, len(teams))
		for i := range teams {
			teamIDs[i] = teams[i].ID
		}
		if err := s.users.AddToTeams(ctx, user.ID, teamIDs); err != nil {
			return nil, fmt.Errorf("add user to teams: %w", err)
		}
		for i := range teams {
			user.Teams = append(user.Teams, &teams[i])
		}
	}

	return user, nil
}

// ChangePassword rotates a managed account's password after verifying the
// current one.
//
// The forced-change flag does not block this path; rotating the password
// is how the flag gets cleared. Suspension still does. Unknown usernames
// burn a decoy comparison so they cost the same as a wrong password.
func (s *iamService) ChangePassword(ctx context.Context, username, currentPassword, newPassword string) error {
	if newPassword == "" {
		return auth.NewError(auth.CauseInvalidCredentials, "new password is required")
	}

	user, err := s.users.GetManagedByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.passwords.VerifyDecoy(currentPassword)
			return auth.NewError(auth.CauseInvalidCredentials, "invalid username or password")
		}
		return auth.WrapError(auth.CauseOther, "look up managed account", err)
	}

	if user.PasswordHash == nil {
		s.passwords.VerifyDecoy(currentPassword)
		return auth.NewError(auth.CauseInvalidCredentials, "invalid username or password")
	}
	if !s.passwords.Verify(currentPassword, *user.PasswordHash) {
		return auth.NewError(auth.CauseInvalidCredentials, "invalid username or password")
	}
	if user.Suspended {
		return auth.NewError(auth.CauseSuspended, "account is suspended")
	}

	hash, err := s.passwords.Hash(newPassword)
	if err != nil {
		return auth.WrapError(auth.CauseOther, "hash password", err)
	}
	// Also clears the forced-change flag in the same statement.
	if err := s.users.SetPasswordHash(ctx, user.ID, hash); err != nil {
		return auth.WrapError(auth.CauseOther, "store password", err)
	}
	return nil
}

// SetUserSuspended suspends or reinstates an account.
func (s *iamService) SetUserSuspended(ctx context.Context, username string, provider models.IdentityProvider, suspended bool) error {
	user, err := s.getUser(ctx, username, provider)
	if err != nil {
		return err
	}
	if user.Suspended == suspended {
		return nil
	}
	user.Suspended = suspended
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}

// RequirePasswordChange flags a managed account so its next password login
// is rejected until the password is rotated. Only managed accounts carry
// passwords, so no provider parameter is needed.
func (s *iamService) RequirePasswordChange(ctx context.Context, username string) error {
	user, err := s.users.GetManagedByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("no managed account named %q", username)
		}
		return fmt.Errorf("look up managed account: %w", err)
	}
	if user.ForcePasswordChange {
		return nil
	}
	user.ForcePasswordChange = true
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}

// ListUsers returns all accounts with team memberships preloaded.
func (s *iamService) ListUsers(ctx context.Context) ([]models.User, error) {
	return s.users.List(ctx)
}

// getUser resolves the (username, provider) pair that uniquely keys an
// account.
func (s *iamService) getUser(ctx context.Context, username string, provider models.IdentityProvider) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	switch provider {
	case models.ProviderLocal:
		user, err = s.users.GetManagedByUsername(ctx, username)
	case models.ProviderDirectory:
		user, err = s.users.GetDirectoryByUsername(ctx, username)
	case models.ProviderOIDC:
		user, err = s.users.GetOidcByUsername(ctx, username)
	default:
		return nil, fmt.Errorf("unknown identity provider %q", provider)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("no %s account named %q", provider, username)
		}
		return nil, fmt.Errorf("look up account: %w", err)
	}
	return user, nil
}

// =========================================================================
// API Key Management (Admin Operations)
// =========================================================================

// CreateApiKey mints a new API key owned by the named teams. Only the
// secret's digest is stored; the returned raw key cannot be recovered.
func (s *iamService) CreateApiKey(ctx context.Context, comment string, teamNames []string) (*models.ApiKey, string, error) {
	if len(teamNames) == 0 {
		return nil, "", fmt.Errorf("api keys require at least one team")
	}
	teams, err := s.resolveTeams(ctx, teamNames)
	if err != nil {
		return nil, "", err
	}

	generated, err := s.codec.Generate()
	if err != nil {
		return nil, "", fmt.Errorf("generate api key: %w", err)
	}

	publicID := generated.PublicID
	key := &models.ApiKey{
		PublicID:   &publicID,
		SecretHash: generated.SecretHash(),
		Comment:    comment,
	}
	teamIDs := make([]string, len(teams))
	for i := range teams {
		teamIDs[i] = teams[i].ID
	}
	if err := s.keys.Create(ctx, key, teamIDs); err != nil {
		return nil, "", fmt.Errorf("create api key: %w", err)
	}
	for i := range teams {
		key.Teams = append(key.Teams, &teams[i])
	}

	return key, generated.String(), nil
}

// RotateApiKey replaces the key material for an existing key. The previous
// key string stops authenticating the moment the rotation is stored.
func (s *iamService) RotateApiKey(ctx context.Context, publicID string) (*models.ApiKey, string, error) {
	key, err := s.keys.GetByPublicID(ctx, publicID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", fmt.Errorf("no api key with public id %q", publicID)
		}
		return nil, "", fmt.Errorf("look up api key: %w", err)
	}

	generated, err := s.codec.Generate()
	if err != nil {
		return nil, "", fmt.Errorf("generate api key: %w", err)
	}
	if err := s.keys.Rotate(ctx, key.ID, generated.PublicID, generated.SecretHash()); err != nil {
		return nil, "", fmt.Errorf("rotate api key: %w", err)
	}

	newPublicID := generated.PublicID
	key.PublicID = &newPublicID
	key.SecretHash = generated.SecretHash()
	key.Legacy = false
	return key, generated.String(), nil
}

// ListApiKeys returns all keys with owning teams preloaded.
func (s *iamService) ListApiKeys(ctx context.Context) ([]models.ApiKey, error) {
	return s.keys.List(ctx)
}

// =========================================================================
// Team & Permission Management (Admin Operations)
// =========================================================================

// CreateTeam creates a named team.
func (s *iamService) CreateTeam(ctx context.Context, name string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("team name is required")
	}
	team := &models.Team{Name: name}
	if err := s.teams.Create(ctx, team); err != nil {
		return nil, fmt.Errorf("create team: %w", err)
	}
	return team, nil
}

// MapGroup maps an external IdP group name onto a team for OIDC team sync.
func (s *iamService) MapGroup(ctx context.Context, groupName, teamName string) error {
	groupName = strings.TrimSpace(groupName)
	if groupName == "" {
		return fmt.Errorf("group name is required")
	}
	team, err := s.teams.GetByName(ctx, teamName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("unknown team %q", teamName)
		}
		return fmt.Errorf("look up team: %w", err)
	}
	if err := s.teams.MapGroup(ctx, groupName, team.ID); err != nil {
		return fmt.Errorf("map group: %w", err)
	}
	return nil
}

// ListTeams returns all teams with permissions preloaded.
func (s *iamService) ListTeams(ctx context.Context) ([]models.Team, error) {
	return s.teams.List(ctx)
}

// CreatePermission registers a named capability.
func (s *iamService) CreatePermission(ctx context.Context, name, description string) (*models.Permission, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("permission name is required")
	}
	permission := &models.Permission{Name: name, Description: description}
	if err := s.permissions.Create(ctx, permission); err != nil {
		return nil, fmt.Errorf("create permission: %w", err)
	}
	return permission, nil
}

// GrantTeamPermission grants a permission to a team.
func (s *iamService) GrantTeamPermission(ctx context.Context, teamName, permissionName string) error {
	team, err := s.teams.GetByName(ctx, teamName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("unknown team %q", teamName)
		}
		return fmt.Errorf("look up team: %w", err)
	}
	permission, err := s.permissions.GetByName(ctx, permissionName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("unknown permission %q", permissionName)
		}
		return fmt.Errorf("look up permission: %w", err)
	}
	if err := s.teams.AddPermission(ctx, team.ID, permission.ID); err != nil {
		return fmt.Errorf("grant team permission: %w", err)
	}
	return nil
}

// GrantUserPermission grants a permission directly to one account.
func (s *iamService) GrantUserPermission(ctx context.Context, username string, provider models.IdentityProvider, permissionName string) error {
	user, err := s.getUser(ctx, username, provider)
	if err != nil {
		return err
	}
	permission, err := s.permissions.GetByName(ctx, permissionName)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("unknown permission %q", permissionName)
		}
		return fmt.Errorf("look up permission: %w", err)
	}
	if err := s.users.GrantPermission(ctx, user.ID, permission.ID); err != nil {
		return fmt.Errorf("grant user permission: %w", err)
	}
	return nil
}

// ListPermissions returns all registered permissions.
func (s *iamService) ListPermissions(ctx context.Context) ([]models.Permission, error) {
	return s.permissions.List(ctx)
}

// resolveTeams maps team names to records, reporting every invalid name at
// once so callers can fix their input in one round trip.
func (s *iamService) resolveTeams(ctx context.Context, teamNames []string) ([]models.Team, error) {
	if len(teamNames) == 0 {
		return nil, nil
	}
	teams, err := s.teams.GetByNames(ctx, teamNames)
	if err != nil {
		return nil, fmt.Errorf("resolve teams: %w", err)
	}

	found := make(map[string]struct{}, len(teams))
	for i := range teams {
		found[teams[i].Name] = struct{}{}
	}
	var invalid []string
	for _, name := range teamNames {
		if _, ok := found[name]; !ok {
			invalid = append(invalid, name)
		}
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("unknown teams: %s", strings.Join(invalid, ", "))
	}
	return teams, nil
}

// =========================================================================
// Metrics helpers
// =========================================================================

func (s *iamService) recordAuth(ctx context.Context, method string, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	cause := ""
	if err != nil {
		cause = string(auth.CauseOf(err))
	}
	durationMs := float64(time.Since(start).Microseconds()) / 1000.0
	s.metrics.RecordAuth(ctx, method, cause, durationMs)
}

func (s *iamService) recordTokenIssued(ctx context.Context, provider models.IdentityProvider) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordTokenIssued(ctx, string(provider))
}
