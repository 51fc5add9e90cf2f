package iam

import (
	"context"
	"errors"

	"github.com/palisadehq/palisade/internal/auth"
	"github.com/palisadehq/palisade/internal/db/models"
	"github.com/palisadehq/palisade/internal/repository"
)

// APIKeyAuthenticator validates the X-Api-Key header against the key store.
//
// New-format keys resolve by public identifier; legacy keys resolve by
// full-key digest. Both paths finish with the same constant-time digest
// comparison, so a lookup hit never behaves differently from a lookup miss
// with a forged digest.
type APIKeyAuthenticator struct {
	codec *auth.APIKeyCodec
	keys  repository.ApiKeyRepository
}

// NewAPIKeyAuthenticator builds the API key request authenticator.
func NewAPIKeyAuthenticator(codec *auth.APIKeyCodec, keys repository.ApiKeyRepository) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{codec: codec, keys: keys}
}

// Name implements Authenticator.
func (a *APIKeyAuthenticator) Name() string { return "api_key" }

// Authenticate resolves the X-Api-Key header to a key principal.
func (a *APIKeyAuthenticator) Authenticate(ctx context.Context, req AuthRequest) (*Principal, error) {
	rawKey := req.Headers.Get(HeaderAPIKey)
	if rawKey == "" {
		return nil, nil
	}

	decoded, err := a.codec.Decode(rawKey)
	if err != nil {
		return nil, auth.WrapError(auth.CauseInvalidCredentials, "malformed api key", err)
	}

	var key *models.ApiKey
	if decoded.Legacy {
		key, err = a.keys.GetLegacyByDigest(ctx, decoded.SecretHash)
	} else {
		key, err = a.keys.GetByPublicID(ctx, decoded.PublicID)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, auth.NewError(auth.CauseInvalidCredentials, "unknown api key")
		}
		return nil, auth.WrapError(auth.CauseOther, "look up api key", err)
	}

	if !auth.DigestMatches(decoded.SecretHash, key.SecretHash) {
		return nil, auth.NewError(auth.CauseInvalidCredentials, "unknown api key")
	}

	_ = a.keys.UpdateLastUsed(ctx, key.ID)

	return FromApiKey(key), nil
}
