package oidc

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscoveryResolverFetchesAndCaches(t *testing.T) {
	idp := newFakeIdP(t)
	resolver := NewDiscoveryResolver(idp.srv.URL, idp.srv.Client(), newTestCache(t))
	ctx := context.Background()

	cfg := resolver.Resolve(ctx)
	require.NotNil(t, cfg)
	assert.Equal(t, idp.srv.URL, cfg.Issuer)
	assert.Equal(t, idp.srv.URL+"/keys", cfg.JwksURI)
	assert.Equal(t, idp.srv.URL+"/userinfo", cfg.UserinfoEndpoint)

	resolver.Resolve(ctx)
	assert.Equal(t, 1, idp.discoveryHits, "second resolve should hit the cache")

	resolver.Invalidate()
	resolver.Resolve(ctx)
	assert.Equal(t, 2, idp.discoveryHits, "invalidate should force a refetch")
}

func TestDiscoveryResolverNoAuthority(t *testing.T) {
	idp := newFakeIdP(t)
	resolver := NewDiscoveryResolver("", idp.srv.Client(), newTestCache(t))

	assert.Nil(t, resolver.Resolve(context.Background()))
	assert.Zero(t, idp.discoveryHits, "no authority must mean no network call")
}

func TestDiscoveryResolverDegradesToNil(t *testing.T) {
	tests := []struct {
		name  string
		setup func(idp *fakeIdP)
	}{
		{"server error", func(idp *fakeIdP) { idp.discoveryStatus = 500 }},
		{"not found", func(idp *fakeIdP) { idp.discoveryStatus = 404 }},
		{"unparsable body", func(idp *fakeIdP) { idp.discoveryBody = "<html>not json</html>" }},
		{"missing jwks_uri", func(idp *fakeIdP) { idp.discoveryBody = `{"issuer":"x"}` }},
		{"issuer mismatch", func(idp *fakeIdP) { idp.issuer = "https://elsewhere.example" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			idp := newFakeIdP(t)
			tt.setup(idp)
			resolver := NewDiscoveryResolver(idp.srv.URL, idp.srv.Client(), newTestCache(t))

			assert.Nil(t, resolver.Resolve(context.Background()))
		})
	}
}

func TestDiscoveryResolverRetriesAfterFailure(t *testing.T) {
	idp := newFakeIdP(t)
	idp.discoveryStatus = 503
	resolver := NewDiscoveryResolver(idp.srv.URL, idp.srv.Client(), newTestCache(t))
	ctx := context.Background()

	require.Nil(t, resolver.Resolve(ctx))

	// Failures are not cached: once the provider recovers, resolution works.
	idp.discoveryStatus = 0
	cfg := resolver.Resolve(ctx)
	require.NotNil(t, cfg)
	assert.Equal(t, 2, idp.discoveryHits)
}
