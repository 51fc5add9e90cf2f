package iam

import (
	"github.com/palisadehq/palisade/internal/db/models"
)

// Principal represents an authenticated identity with pre-resolved
// permissions.
//
// This struct is IMMUTABLE after construction. Effective permissions are
// computed once at authentication time and never modified, so concurrent
// authorization checks share no mutable state.
//
// The Principal is stored in request context and used by authorization
// middleware to make access decisions.
type Principal struct {
	// ID references the backing database record (users.id or api_keys.id).
	ID string

	// Name is the login username for users, or the comment or public
	// identifier for API keys. Never contains key material.
	Name string

	// Email is optional and only set for users that carry one.
	Email string

	// Provider says which authority vouched for the credentials. API keys
	// are always LOCAL.
	Provider models.IdentityProvider

	// Type differentiates users and API keys.
	Type PrincipalType

	// Teams lists the names of the teams the principal belongs to.
	Teams []string

	// Permissions lists the effective permission names: direct grants plus
	// every owning team's grants, deduplicated and sorted.
	//
	// This is the SOURCE OF TRUTH for authorization decisions.
	Permissions []string
}

// PrincipalType identifies whether this is a user or an API key.
type PrincipalType string

const (
	// PrincipalTypeUser represents an account (managed, directory, or OIDC).
	PrincipalTypeUser PrincipalType = "user"

	// PrincipalTypeAPIKey represents a machine credential bound to teams.
	PrincipalTypeAPIKey PrincipalType = "api_key"
)

// FromUser builds the immutable principal view of a user. Teams and
// permissions must be preloaded on the model; the repository username
// lookups do this.
func FromUser(user *models.User) *Principal {
	p := &Principal{
		ID:          user.ID,
		Name:        user.Username,
		Provider:    user.Provider,
		Type:        PrincipalTypeUser,
		Teams:       teamNames(user.PrincipalTeams()),
		Permissions: EffectivePermissions(user),
	}
	if user.Email != nil {
		p.Email = *user.Email
	}
	return p
}

// FromApiKey builds the immutable principal view of an API key. Keys carry
// no external identity, so they authenticate as LOCAL principals.
func FromApiKey(key *models.ApiKey) *Principal {
	return &Principal{
		ID:          key.ID,
		Name:        key.PrincipalName(),
		Provider:    models.ProviderLocal,
		Type:        PrincipalTypeAPIKey,
		Teams:       teamNames(key.PrincipalTeams()),
		Permissions: EffectivePermissions(key),
	}
}

func teamNames(teams []*models.Team) []string {
	names := make([]string, 0, len(teams))
	for _, team := range teams {
		names = append(names, team.Name)
	}
	return names
}
