package iam

import (
	"context"
	"errors"
	"strings"

	zoidc "github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/palisadehq/palisade/internal/auth"
	"github.com/palisadehq/palisade/internal/db/models"
	"github.com/palisadehq/palisade/internal/repository"
)

// BearerAuthenticator validates Authorization: Bearer tokens minted by the
// token service and resolves their subject to a live account.
//
// Permissions embedded in the token are informational; the effective set is
// recomputed from the store on every request so grant changes and
// suspensions take effect without waiting out the token.
type BearerAuthenticator struct {
	tokens *TokenService
	users  repository.UserRepository
}

// NewBearerAuthenticator builds the bearer token request authenticator.
func NewBearerAuthenticator(tokens *TokenService, users repository.UserRepository) *BearerAuthenticator {
	return &BearerAuthenticator{tokens: tokens, users: users}
}

// Name implements Authenticator.
func (a *BearerAuthenticator) Name() string { return "bearer" }

// Authenticate resolves the Authorization header to a user principal.
func (a *BearerAuthenticator) Authenticate(ctx context.Context, req AuthRequest) (*Principal, error) {
	header := req.Headers.Get("Authorization")
	if header == "" {
		return nil, nil
	}
	rawToken, ok := strings.CutPrefix(header, zoidc.PrefixBearer)
	if !ok {
		// Some other scheme; not ours to judge.
		return nil, nil
	}

	ident, err := a.tokens.Validate(rawToken)
	if err != nil {
		return nil, err
	}

	user, err := a.lookupSubject(ctx, ident)
	if err != nil {
		return nil, err
	}

	if user.Suspended {
		return nil, auth.NewError(auth.CauseSuspended, "account is suspended")
	}

	return FromUser(user), nil
}

// lookupSubject resolves the token subject in the account store matching
// its provider tag. Usernames are unique per provider, not globally, so
// the tag is part of the identity.
func (a *BearerAuthenticator) lookupSubject(ctx context.Context, ident *TokenIdentity) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	switch ident.Provider {
	case models.ProviderDirectory:
		user, err = a.users.GetDirectoryByUsername(ctx, ident.Subject)
	case models.ProviderOIDC:
		user, err = a.users.GetOidcByUsername(ctx, ident.Subject)
	default:
		user, err = a.users.GetManagedByUsername(ctx, ident.Subject)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, auth.NewError(auth.CauseInvalidCredentials, "token subject no longer exists")
		}
		return nil, auth.WrapError(auth.CauseOther, "look up token subject", err)
	}
	return user, nil
}
