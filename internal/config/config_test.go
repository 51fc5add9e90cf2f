package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.ServerAddr)
	assert.Equal(t, "Palisade", cfg.AppName)
	assert.Equal(t, "palisade_", cfg.APIKeyPrefix)
	assert.False(t, cfg.RequireKeyPrefix)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.Equal(t, 10, cfg.HTTPTimeoutSeconds)

	assert.False(t, cfg.OIDC.Enabled)
	assert.Equal(t, "preferred_username", cfg.OIDC.UsernameClaim)
	assert.Equal(t, "groups", cfg.OIDC.TeamsClaim)
	assert.Equal(t, "email", cfg.OIDC.EmailClaim)

	assert.False(t, cfg.LDAP.Enabled)
	assert.Equal(t, "(objectClass=group)", cfg.LDAP.GroupsFilter)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("APP_NAME", "Gatehouse")
	t.Setenv("API_KEY_REQUIRE_PREFIX", "true")
	t.Setenv("OIDC_ENABLED", "1")
	t.Setenv("OIDC_AUTHORITY", "https://idp.example.com/")
	t.Setenv("OIDC_CLIENT_ID", "gatehouse")
	t.Setenv("OIDC_DEFAULT_TEAMS", "engineering, , security")
	t.Setenv("PROXY_PORT", "3128")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "Gatehouse", cfg.AppName)
	assert.True(t, cfg.RequireKeyPrefix)
	assert.True(t, cfg.OIDC.Enabled)
	// Trailing slash is normalized so discovery URLs join cleanly.
	assert.Equal(t, "https://idp.example.com", cfg.OIDC.AuthorityURL)
	assert.Equal(t, []string{"engineering", "security"}, cfg.OIDC.DefaultTeams)
	assert.Equal(t, 3128, cfg.Proxy.Port)
}

func TestLoadRejectsAuthorityWithoutClientID(t *testing.T) {
	t.Setenv("OIDC_ENABLED", "true")
	t.Setenv("OIDC_AUTHORITY", "https://idp.example.com")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "OIDC_CLIENT_ID")
}

func TestLoadToleratesEnabledOIDCWithoutAuthority(t *testing.T) {
	t.Setenv("OIDC_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.OIDC.Enabled)
	assert.Empty(t, cfg.OIDC.AuthorityURL)
}

func TestLoadRejectsBadFormatTemplate(t *testing.T) {
	t.Setenv("LDAP_FORMAT_TEMPLATE", "uid=USERNAME,ou=people")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LDAP_FORMAT_TEMPLATE")
}

func TestLDAPConfigured(t *testing.T) {
	cases := []struct {
		name string
		cfg  LDAPConfig
		want bool
	}{
		{"disabled", LDAPConfig{Enabled: false, ServerURL: "ldap://d"}, false},
		{"enabled without server", LDAPConfig{Enabled: true}, false},
		{"enabled with server", LDAPConfig{Enabled: true, ServerURL: "ldap://d"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.cfg.Configured())
		})
	}
}
