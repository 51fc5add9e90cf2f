package oidc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProfileComplete(t *testing.T) {
	tests := []struct {
		name      string
		profile   *Profile
		syncTeams bool
		want      bool
	}{
		{"nil profile", nil, false, false},
		{"missing subject", &Profile{Username: "alice"}, false, false},
		{"missing username", &Profile{Subject: "subject"}, false, false},
		{"subject and username, sync off", &Profile{Subject: "subject", Username: "alice"}, false, true},
		{"nil teams, sync on", &Profile{Subject: "subject", Username: "alice"}, true, false},
		{"empty teams, sync on", &Profile{Subject: "subject", Username: "alice", Teams: []string{}}, true, true},
		{"teams, sync on", &Profile{Subject: "subject", Username: "alice", Teams: []string{"group1"}}, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.profile.Complete(tt.syncTeams))
		})
	}
}

func TestMergePrefersFirstSource(t *testing.T) {
	idToken := &Profile{Subject: "subject", Email: ""}
	userInfo := &Profile{Subject: "other", Username: "alice", Teams: []string{"group1"}, Email: "alice@example.com"}

	merged := Merge(idToken, userInfo)
	assert.Equal(t, "subject", merged.Subject, "first source wins when set")
	assert.Equal(t, "alice", merged.Username, "second source fills gaps")
	assert.Equal(t, []string{"group1"}, merged.Teams)
	assert.Equal(t, "alice@example.com", merged.Email)
}

func TestMergeTreatsEmptyTeamsAsPresent(t *testing.T) {
	idToken := &Profile{Subject: "subject", Username: "alice", Teams: []string{}}
	userInfo := &Profile{Teams: []string{"group1"}}

	merged := Merge(idToken, userInfo)
	assert.NotNil(t, merged.Teams)
	assert.Empty(t, merged.Teams, "a present-but-empty list is a value, not a gap")
}

func TestMergeNilSources(t *testing.T) {
	p := &Profile{Subject: "subject"}
	assert.Equal(t, p, Merge(nil, p))
	assert.Equal(t, p, Merge(p, nil))
	assert.Nil(t, Merge(nil, nil))
}

func TestSelectProfile(t *testing.T) {
	complete := &Profile{Subject: "subject", Username: "alice"}
	subjectOnly := &Profile{Subject: "subject"}
	usernameOnly := &Profile{Username: "alice"}

	tests := []struct {
		name      string
		idToken   *Profile
		userInfo  *Profile
		syncTeams bool
		want      *Profile
	}{
		{"id token wins when complete", complete, &Profile{Subject: "x", Username: "y"}, false, complete},
		{"falls back to userinfo", subjectOnly, complete, false, complete},
		{"merged view as last resort", subjectOnly, usernameOnly, false, &Profile{Subject: "subject", Username: "alice"}},
		{"nothing complete", subjectOnly, nil, false, nil},
		{"sync demands teams", complete, nil, true, nil},
		{
			"merged teams satisfy sync",
			subjectOnly,
			&Profile{Username: "alice", Teams: []string{"group1"}},
			true,
			&Profile{Subject: "subject", Username: "alice", Teams: []string{"group1"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SelectProfile(tt.idToken, tt.userInfo, tt.syncTeams))
		})
	}
}

func TestProfileFromClaims(t *testing.T) {
	mapping := ClaimMapping{Username: "preferred_username", Teams: "groups", Email: "email", SyncTeams: true}

	claims := map[string]any{
		"sub":                "subject",
		"preferred_username": "alice",
		"groups":             []any{"group1", "group2"},
		"email":              "alice@example.com",
	}

	p := mapping.ProfileFrom(claims)
	assert.Equal(t, "subject", p.Subject)
	assert.Equal(t, "alice", p.Username)
	assert.Equal(t, []string{"group1", "group2"}, p.Teams)
	assert.Equal(t, "alice@example.com", p.Email)
}

func TestProfileFromClaimsEmptyGroups(t *testing.T) {
	mapping := ClaimMapping{Username: "preferred_username", Teams: "groups", SyncTeams: true}

	p := mapping.ProfileFrom(map[string]any{
		"sub":                "subject",
		"preferred_username": "alice",
		"groups":             []any{},
	})
	assert.NotNil(t, p.Teams, "present empty claim must yield an empty list, not nil")
	assert.Empty(t, p.Teams)
}

func TestProfileFromClaimsAbsentGroups(t *testing.T) {
	mapping := ClaimMapping{Username: "preferred_username", Teams: "groups", SyncTeams: true}

	p := mapping.ProfileFrom(map[string]any{
		"sub":                "subject",
		"preferred_username": "alice",
	})
	assert.Nil(t, p.Teams)
}

func TestProfileFromClaimsSyncDisabledIgnoresGroups(t *testing.T) {
	mapping := ClaimMapping{Username: "preferred_username", Teams: "groups", SyncTeams: false}

	p := mapping.ProfileFrom(map[string]any{
		"sub":                "subject",
		"preferred_username": "alice",
		"groups":             []any{"group1"},
	})
	assert.Nil(t, p.Teams, "teams are not extracted when sync is off")
}

func TestProfileFromClaimsNestedGroups(t *testing.T) {
	mapping := ClaimMapping{Username: "preferred_username", Teams: "groups", TeamsPath: "name", SyncTeams: true}

	p := mapping.ProfileFrom(map[string]any{
		"sub":                "subject",
		"preferred_username": "alice",
		"groups": []any{
			map[string]any{"name": "group1", "type": "team"},
			map[string]any{"name": "group2", "type": "team"},
		},
	})
	assert.Equal(t, []string{"group1", "group2"}, p.Teams)
}
