package iam

import (
	"context"
	"errors"
	"log"

	zoidc "github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/palisadehq/palisade/internal/auth"
	"github.com/palisadehq/palisade/internal/config"
	"github.com/palisadehq/palisade/internal/db/bunx"
	"github.com/palisadehq/palisade/internal/db/models"
	"github.com/palisadehq/palisade/internal/oidc"
	"github.com/palisadehq/palisade/internal/repository"
)

// OIDCCredentials carries the tokens a client obtained from its IdP. Either
// field may be empty; both empty means OIDC was not attempted.
type OIDCCredentials struct {
	IDToken     string
	AccessToken string
}

// Present reports whether any credential material was supplied.
func (c OIDCCredentials) Present() bool {
	return c.IDToken != "" || c.AccessToken != ""
}

// OIDCAuthenticator produces a local user from IdP-issued tokens. It
// assembles a transient profile from the ID token and/or the UserInfo
// endpoint, then resolves, provisions, and synchronizes the local account.
type OIDCAuthenticator struct {
	cfg       config.OIDCConfig
	discovery *oidc.DiscoveryResolver
	verifier  *oidc.IDTokenVerifier
	userinfo  *oidc.UserInfoClient
	users     repository.UserRepository
	teams     repository.TeamRepository
}

// NewOIDCAuthenticator builds the federated login authenticator.
func NewOIDCAuthenticator(
	cfg config.OIDCConfig,
	discovery *oidc.DiscoveryResolver,
	verifier *oidc.IDTokenVerifier,
	userinfo *oidc.UserInfoClient,
	users repository.UserRepository,
	teams repository.TeamRepository,
) *OIDCAuthenticator {
	return &OIDCAuthenticator{
		cfg:       cfg,
		discovery: discovery,
		verifier:  verifier,
		userinfo:  userinfo,
		users:     users,
		teams:     teams,
	}
}

// Authenticate resolves creds to a local user.
//
// Returns (nil, nil) when OIDC does not apply to this attempt: disabled, no
// token material, or no resolvable provider configuration. Only a
// presented-but-rejected credential produces an error.
func (a *OIDCAuthenticator) Authenticate(ctx context.Context, creds OIDCCredentials) (*models.User, error) {
	if !a.cfg.Enabled || !creds.Present() {
		return nil, nil
	}

	mapping, err := a.claimMapping()
	if err != nil {
		return nil, err
	}

	provider := a.discovery.Resolve(ctx)
	if provider == nil {
		return nil, nil
	}

	profile, err := a.assembleProfile(ctx, creds, provider, mapping)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, auth.NewError(auth.CauseOther, "no complete profile from identity provider")
	}

	return a.resolveUser(ctx, profile, mapping)
}

// claimMapping validates the claim configuration eagerly, before any
// network call.
func (a *OIDCAuthenticator) claimMapping() (oidc.ClaimMapping, error) {
	if a.cfg.UsernameClaim == "" {
		return oidc.ClaimMapping{}, auth.NewError(auth.CauseOther, "username claim is not configured")
	}
	if a.cfg.TeamSyncEnabled && a.cfg.TeamsClaim == "" {
		return oidc.ClaimMapping{}, auth.NewError(auth.CauseOther, "team sync enabled without a teams claim")
	}
	return oidc.ClaimMapping{
		Username:  a.cfg.UsernameClaim,
		Teams:     a.cfg.TeamsClaim,
		TeamsPath: a.cfg.TeamsClaimPath,
		Email:     a.cfg.EmailClaim,
		SyncTeams: a.cfg.TeamSyncEnabled,
	}, nil
}

// assembleProfile builds a profile from each credential present and picks
// the first complete one. Every presented token is validated; a defect in
// either fails the attempt even when the other alone would have sufficed.
func (a *OIDCAuthenticator) assembleProfile(ctx context.Context, creds OIDCCredentials, provider *zoidc.DiscoveryConfiguration, mapping oidc.ClaimMapping) (*oidc.Profile, error) {
	var idTokenProfile, userInfoProfile *oidc.Profile

	if creds.IDToken != "" {
		claims, err := a.verifier.Verify(ctx, creds.IDToken, provider)
		if err != nil {
			return nil, err
		}
		idTokenProfile = mapping.ProfileFrom(claims)
	}

	if creds.AccessToken != "" {
		claims, err := a.userinfo.Fetch(ctx, provider.UserinfoEndpoint, creds.AccessToken)
		if err != nil {
			return nil, err
		}
		userInfoProfile = mapping.ProfileFrom(claims)
	}

	return oidc.SelectProfile(idTokenProfile, userInfoProfile, mapping.SyncTeams), nil
}

// resolveUser maps the profile onto a local account: refresh an existing
// one or provision a new one.
func (a *OIDCAuthenticator) resolveUser(ctx context.Context, profile *oidc.Profile, mapping oidc.ClaimMapping) (*models.User, error) {
	user, err := a.users.GetOidcByUsername(ctx, profile.Username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			if !a.cfg.ProvisioningEnabled {
				return nil, auth.NewError(auth.CauseUnmappedAccount, "no account mapped to identity and provisioning is disabled")
			}
			return a.provision(ctx, profile, mapping)
		}
		return nil, auth.WrapError(auth.CauseOther, "look up federated account", err)
	}

	return a.refreshExisting(ctx, user, profile, mapping)
}

// refreshExisting re-validates the subject binding and brings team
// membership and the transient email view up to date.
func (a *OIDCAuthenticator) refreshExisting(ctx context.Context, user *models.User, profile *oidc.Profile, mapping oidc.ClaimMapping) (*models.User, error) {
	bound := user.Subject != nil && *user.Subject != ""

	if bound && !auth.SecureCompare(*user.Subject, profile.Subject) {
		// Subjects never change once bound. A different subject under a
		// reused username is an account-takeover attempt, not a refresh.
		return nil, auth.NewError(auth.CauseInvalidCredentials, "subject does not match the bound identity")
	}

	if user.Suspended {
		return nil, auth.NewError(auth.CauseSuspended, "account is suspended")
	}

	if !bound {
		subject := profile.Subject
		user.Subject = &subject
		if err := a.users.Update(ctx, user); err != nil {
			return nil, auth.WrapError(auth.CauseOther, "bind subject identifier", err)
		}
	}

	// Email is refreshed on the returned view only, never persisted here.
	if profile.Email != "" {
		email := profile.Email
		user.Email = &email
	}

	if mapping.SyncTeams {
		if err := a.syncTeams(ctx, user, profile.Teams); err != nil {
			return nil, err
		}
	}

	return user, nil
}

// provision creates the local account on first login.
func (a *OIDCAuthenticator) provision(ctx context.Context, profile *oidc.Profile, mapping oidc.ClaimMapping) (*models.User, error) {
	subject := profile.Subject
	user := &models.User{
		ID:       bunx.NewUUIDv7(),
		Username: profile.Username,
		Provider: models.ProviderOIDC,
		Subject:  &subject,
	}
	if profile.Email != "" {
		email := profile.Email
		user.Email = &email
	}

	if err := a.users.Create(ctx, user); err != nil {
		return nil, auth.WrapError(auth.CauseOther, "provision federated account", err)
	}

	if mapping.SyncTeams {
		if err := a.syncTeams(ctx, user, profile.Teams); err != nil {
			return nil, err
		}
	}

	if len(a.cfg.DefaultTeams) > 0 {
		if err := a.addDefaultTeams(ctx, user); err != nil {
			return nil, err
		}
	}

	return user, nil
}

// syncTeams reconciles the user's memberships to exactly the teams mapped
// from the asserted external groups. Memberships in unmapped teams are
// removed; this is a full rewrite, not a patch.
func (a *OIDCAuthenticator) syncTeams(ctx context.Context, user *models.User, groups []string) error {
	if groups == nil {
		return auth.NewError(auth.CauseOther, "team sync requires a teams claim in the profile")
	}

	desired, err := a.teams.GetByMappedGroups(ctx, groups)
	if err != nil {
		return auth.WrapError(auth.CauseOther, "resolve mapped teams", err)
	}

	teamIDs := make([]string, 0, len(desired))
	for i := range desired {
		teamIDs = append(teamIDs, desired[i].ID)
	}
	if err := a.users.ReplaceTeams(ctx, user.ID, teamIDs); err != nil {
		return auth.WrapError(auth.CauseOther, "synchronize team membership", err)
	}

	user.Teams = make([]*models.Team, 0, len(desired))
	for i := range desired {
		user.Teams = append(user.Teams, &desired[i])
	}
	return nil
}

// addDefaultTeams joins a newly provisioned account to the configured
// default teams, on top of whatever synchronization established.
func (a *OIDCAuthenticator) addDefaultTeams(ctx context.Context, user *models.User) error {
	defaults, err := a.teams.GetByNames(ctx, a.cfg.DefaultTeams)
	if err != nil {
		return auth.WrapError(auth.CauseOther, "resolve default teams", err)
	}
	if len(defaults) < len(a.cfg.DefaultTeams) {
		log.Printf("WARNING: %d of %d configured default teams do not exist",
			len(a.cfg.DefaultTeams)-len(defaults), len(a.cfg.DefaultTeams))
	}
	if len(defaults) == 0 {
		return nil
	}

	teamIDs := make([]string, 0, len(defaults))
	for i := range defaults {
		teamIDs = append(teamIDs, defaults[i].ID)
	}
	if err := a.users.AddToTeams(ctx, user.ID, teamIDs); err != nil {
		return auth.WrapError(auth.CauseOther, "join default teams", err)
	}

	have := make(map[string]struct{}, len(user.Teams))
	for _, team := range user.Teams {
		have[team.ID] = struct{}{}
	}
	for i := range defaults {
		if _, ok := have[defaults[i].ID]; ok {
			continue
		}
		user.Teams = append(user.Teams, &defaults[i])
	}
	return nil
}
