package oidc

import (
	"context"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/go-jose/go-jose/v4/jwt"
	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/palisadehq/palisade/internal/auth"
)

// signatureAlgorithms lists the asymmetric algorithms accepted on ID
// tokens. Symmetric algorithms are deliberately absent: an IdP shares no
// secret with us.
var signatureAlgorithms = []jose.SignatureAlgorithm{
	jose.RS256, jose.RS384, jose.RS512,
	jose.ES256, jose.ES384, jose.ES512,
	jose.PS256, jose.PS384, jose.PS512,
}

// IDTokenVerifier validates ID tokens against a provider's published keys.
// Failures split along the taxonomy: anything the IdP or the token itself
// is responsible for (unknown key, bad signature, wrong issuer or audience,
// expiry) is INVALID_CREDENTIALS; infrastructure faults (unparsable token,
// unreachable JWKS endpoint) are OTHER.
type IDTokenVerifier struct {
	clientID string
	keys     *KeySetResolver
}

// NewIDTokenVerifier builds a verifier for tokens minted to clientID.
func NewIDTokenVerifier(clientID string, keys *KeySetResolver) *IDTokenVerifier {
	return &IDTokenVerifier{clientID: clientID, keys: keys}
}

// Verify checks rawToken against the provider described by cfg and returns
// the full claim set on success.
func (v *IDTokenVerifier) Verify(ctx context.Context, rawToken string, cfg *oidc.DiscoveryConfiguration) (map[string]any, error) {
	tok, err := jwt.ParseSigned(rawToken, signatureAlgorithms)
	if err != nil {
		return nil, auth.WrapError(auth.CauseOther, "parse id token", err)
	}

	keySet, err := v.keys.Resolve(ctx, cfg.JwksURI)
	if err != nil {
		return nil, err
	}

	key := selectKey(keySet, tok.Headers)
	if key == nil {
		// The kid may belong to a key published after our cached copy.
		// Refetch once before rejecting.
		v.keys.Invalidate(cfg.JwksURI)
		keySet, err = v.keys.Resolve(ctx, cfg.JwksURI)
		if err != nil {
			return nil, err
		}
		if key = selectKey(keySet, tok.Headers); key == nil {
			return nil, auth.NewError(auth.CauseInvalidCredentials, "id token signed with unknown key")
		}
	}

	var std jwt.Claims
	claims := map[string]any{}
	if err := tok.Claims(key.Key, &std, &claims); err != nil {
		return nil, auth.WrapError(auth.CauseInvalidCredentials, "verify id token signature", err)
	}

	if std.Expiry == nil {
		return nil, auth.NewError(auth.CauseInvalidCredentials, "id token missing expiration")
	}
	err = std.Validate(jwt.Expected{
		Issuer:      cfg.Issuer,
		AnyAudience: jwt.Audience{v.clientID},
		Time:        time.Now(),
	})
	if err != nil {
		return nil, auth.WrapError(auth.CauseInvalidCredentials, "validate id token claims", err)
	}

	return claims, nil
}

// selectKey finds a verification key matching the token's key id and, when
// the key declares one, its algorithm.
func selectKey(keySet *jose.JSONWebKeySet, headers []jose.Header) *jose.JSONWebKey {
	for _, header := range headers {
		for _, key := range keySet.Key(header.KeyID) {
			if key.Algorithm != "" && key.Algorithm != header.Algorithm {
				continue
			}
			if key.Use != "" && key.Use != "sig" {
				continue
			}
			return &key
		}
	}
	return nil
}
