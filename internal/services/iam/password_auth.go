package iam

import (
	"context"

	"github.com/palisadehq/palisade/internal/auth"
	"github.com/palisadehq/palisade/internal/db/models"
)

// PasswordAuthenticator orchestrates the interactive login order: the
// managed store first, then the directory.
//
// Fall-through happens ONLY when the managed store rejects the pair as
// INVALID_CREDENTIALS and a directory is configured. Every other cause
// (suspended, forced change, infrastructure fault) is a definitive answer
// about a real managed account and must not be masked by a directory
// attempt under the same username.
type PasswordAuthenticator struct {
	managed *ManagedAuthenticator

	// directory is nil when no directory server is configured.
	directory *DirectoryAuthenticator
}

// NewPasswordAuthenticator builds the login orchestrator. Pass a nil
// directory to run managed-only.
func NewPasswordAuthenticator(managed *ManagedAuthenticator, dir *DirectoryAuthenticator) *PasswordAuthenticator {
	return &PasswordAuthenticator{managed: managed, directory: dir}
}

// Authenticate resolves username/password to a user via the managed store,
// falling through to the directory when the managed store does not know
// the pair.
func (a *PasswordAuthenticator) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := a.managed.Authenticate(ctx, username, password)
	if err == nil {
		return user, nil
	}

	if auth.CauseOf(err) != auth.CauseInvalidCredentials || a.directory == nil {
		return nil, err
	}

	return a.directory.Authenticate(ctx, username, password)
}
