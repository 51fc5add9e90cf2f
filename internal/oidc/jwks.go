package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	jose "github.com/go-jose/go-jose/v4"

	"github.com/palisadehq/palisade/internal/auth"
	"github.com/palisadehq/palisade/internal/cache"
)

const jwksNamespace = "oidc:jwks"

// KeySetResolver fetches and caches the signing keys published at a JWKS
// URI. Unlike discovery, a fetch failure here is an authentication error: a
// resolved provider configuration whose keys cannot be obtained must not
// silently skip signature validation.
type KeySetResolver struct {
	client *http.Client
	store  cache.Service
}

// NewKeySetResolver builds a key-set resolver over the shared cache.
func NewKeySetResolver(client *http.Client, store cache.Service) *KeySetResolver {
	return &KeySetResolver{client: client, store: store}
}

// Resolve returns the key set for jwksURI, fetching it on a cache miss.
func (r *KeySetResolver) Resolve(ctx context.Context, jwksURI string) (*jose.JSONWebKeySet, error) {
	if cached, ok := r.store.Get(jwksNamespace, jwksURI); ok {
		if keySet, ok := cached.(*jose.JSONWebKeySet); ok {
			return keySet, nil
		}
	}

	keySet, err := r.fetch(ctx, jwksURI)
	if err != nil {
		return nil, auth.WrapError(auth.CauseOther, "resolve signing keys", err)
	}

	r.store.Put(jwksNamespace, jwksURI, keySet)
	return keySet, nil
}

// Invalidate drops the cached key set for jwksURI. Called when the provider
// rotates keys and a kid can no longer be matched.
func (r *KeySetResolver) Invalidate(jwksURI string) {
	r.store.Remove(jwksNamespace, jwksURI)
}

func (r *KeySetResolver) fetch(ctx context.Context, jwksURI string) (*jose.JSONWebKeySet, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, jwksURI, nil)
	if err != nil {
		return nil, fmt.Errorf("build jwks request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("jwks endpoint returned status %d", resp.StatusCode)
	}

	var keySet jose.JSONWebKeySet
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxMetadataBytes)).Decode(&keySet); err != nil {
		return nil, fmt.Errorf("decode jwks: %w", err)
	}

	return &keySet, nil
}
