package iam

import (
	"context"
	"errors"

	"github.com/palisadehq/palisade/internal/auth"
	"github.com/palisadehq/palisade/internal/db/models"
	"github.com/palisadehq/palisade/internal/repository"
)

// ManagedAuthenticator validates username/password pairs against the
// managed account store.
//
// Rejections burn a bcrypt comparison even when the account does not exist
// or stores no digest, so response timing does not reveal which usernames
// are real.
type ManagedAuthenticator struct {
	users     repository.UserRepository
	passwords *auth.PasswordService
}

// NewManagedAuthenticator builds a managed-store password authenticator.
func NewManagedAuthenticator(users repository.UserRepository, passwords *auth.PasswordService) *ManagedAuthenticator {
	return &ManagedAuthenticator{users: users, passwords: passwords}
}

// Authenticate checks password for the managed account named username.
// Account-state checks run only after the password verifies, so probing a
// suspended account reveals nothing without the right password.
func (a *ManagedAuthenticator) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := a.users.GetManagedByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			a.passwords.VerifyDecoy(password)
			return nil, auth.NewError(auth.CauseInvalidCredentials, "invalid username or password")
		}
		return nil, auth.WrapError(auth.CauseOther, "look up managed account", err)
	}

	if user.PasswordHash == nil {
		// An account without a digest cannot be used with a password.
		a.passwords.VerifyDecoy(password)
		return nil, auth.NewError(auth.CauseInvalidCredentials, "invalid username or password")
	}

	if !a.passwords.Verify(password, *user.PasswordHash) {
		return nil, auth.NewError(auth.CauseInvalidCredentials, "invalid username or password")
	}

	if user.Suspended {
		return nil, auth.NewError(auth.CauseSuspended, "account is suspended")
	}
	if user.ForcePasswordChange {
		return nil, auth.NewError(auth.CauseForcePasswordChange, "password change required before login")
	}

	return user, nil
}
