package oidc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"

	"github.com/zitadel/oidc/v3/pkg/oidc"

	"github.com/palisadehq/palisade/internal/cache"
)

const (
	discoveryNamespace = "oidc:discovery"
	discoveryKey       = "configuration"

	// maxMetadataBytes bounds discovery, JWKS and UserInfo response bodies.
	maxMetadataBytes = 1 << 20
)

// DiscoveryResolver fetches and caches the provider metadata published at
// {authority}/.well-known/openid-configuration. The document is fetched at
// most once per process lifetime unless explicitly invalidated; concurrent
// cold-cache fetches may race, which costs a duplicate request and nothing
// else.
type DiscoveryResolver struct {
	authority string
	client    *http.Client
	store     cache.Service
}

// NewDiscoveryResolver builds a resolver for the given authority. An empty
// authority is valid and makes Resolve permanently return nil.
func NewDiscoveryResolver(authority string, client *http.Client, store cache.Service) *DiscoveryResolver {
	return &DiscoveryResolver{authority: authority, client: client, store: store}
}

// Resolve returns the provider metadata, or nil when no authority is
// configured or the document cannot be fetched or parsed. A nil result is
// not an authentication failure: it tells the caller OIDC is unavailable
// right now, and the next attempt will retry the fetch.
func (r *DiscoveryResolver) Resolve(ctx context.Context) *oidc.DiscoveryConfiguration {
	if r.authority == "" {
		return nil
	}

	if cached, ok := r.store.Get(discoveryNamespace, discoveryKey); ok {
		if cfg, ok := cached.(*oidc.DiscoveryConfiguration); ok {
			return cfg
		}
	}

	cfg, err := r.fetch(ctx)
	if err != nil {
		log.Printf("WARNING: OIDC discovery against %s failed: %v", r.authority, err)
		return nil
	}

	r.store.Put(discoveryNamespace, discoveryKey, cfg)
	return cfg
}

// Invalidate drops the cached document so the next Resolve refetches it.
func (r *DiscoveryResolver) Invalidate() {
	r.store.Remove(discoveryNamespace, discoveryKey)
}

func (r *DiscoveryResolver) fetch(ctx context.Context) (*oidc.DiscoveryConfiguration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.authority+oidc.DiscoveryEndpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build discovery request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("discovery endpoint returned status %d", resp.StatusCode)
	}

	var cfg oidc.DiscoveryConfiguration
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxMetadataBytes)).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode discovery document: %w", err)
	}

	if cfg.Issuer == "" || cfg.JwksURI == "" {
		return nil, fmt.Errorf("discovery document missing issuer or jwks_uri")
	}
	if cfg.Issuer != r.authority {
		return nil, fmt.Errorf("issuer mismatch: configured %s, discovered %s", r.authority, cfg.Issuer)
	}

	return &cfg, nil
}
