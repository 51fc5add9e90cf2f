package iam

import (
	"context"
	"errors"

	"github.com/palisadehq/palisade/internal/auth"
	"github.com/palisadehq/palisade/internal/db/models"
	"github.com/palisadehq/palisade/internal/repository"
)

// binder validates a username/password pair against an external
// authority. *directory.Directory satisfies it.
type binder interface {
	Authenticate(username, password string) error
}

// DirectoryAuthenticator validates username/password pairs by binding
// against the configured directory server, then maps the directory
// identity onto a local account.
//
// The directory is the credential authority; the local row only carries
// team membership, grants, and the suspension flag. A successful bind with
// no local row is UNMAPPED_ACCOUNT, not INVALID_CREDENTIALS: the caller
// proved who they are, we just do not know them.
type DirectoryAuthenticator struct {
	dir   binder
	users repository.UserRepository
}

// NewDirectoryAuthenticator builds a directory-backed password
// authenticator.
func NewDirectoryAuthenticator(dir binder, users repository.UserRepository) *DirectoryAuthenticator {
	return &DirectoryAuthenticator{dir: dir, users: users}
}

// Authenticate binds username/password against the directory and resolves
// the mapped local account.
func (a *DirectoryAuthenticator) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	if err := a.dir.Authenticate(username, password); err != nil {
		return nil, err
	}

	user, err := a.users.GetDirectoryByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, auth.NewError(auth.CauseUnmappedAccount, "no account mapped to directory identity")
		}
		return nil, auth.WrapError(auth.CauseOther, "look up directory account", err)
	}

	if user.Suspended {
		return nil, auth.NewError(auth.CauseSuspended, "account is suspended")
	}

	return user, nil
}
