// Package oidc implements the relying-party side of OpenID Connect login:
// discovery and key-set resolution with caching, ID-token verification,
// UserInfo retrieval, and assembly of the transient profile the
// authenticator consumes.
package oidc

import (
	"github.com/palisadehq/palisade/internal/auth"
)

// claimSubject is the registered subject claim, common to ID tokens and
// UserInfo responses.
const claimSubject = "sub"

// Profile is the transient claim set assembled per authentication attempt.
// It is never persisted; the authenticator reads it once and discards it.
//
// Teams is nil when the source carried no readable teams claim. A present
// but empty claim yields an empty non-nil slice, which membership
// synchronization treats as "remove everything".
type Profile struct {
	Subject  string
	Username string
	Teams    []string
	Email    string
}

// Complete reports whether the profile can authenticate a user on its own:
// subject and username must be present, and the teams list may stay nil
// only when team synchronization is off.
func (p *Profile) Complete(syncTeams bool) bool {
	if p == nil {
		return false
	}
	if p.Subject == "" || p.Username == "" {
		return false
	}
	return !syncTeams || p.Teams != nil
}

// ClaimMapping names the claims a deployment's IdP uses for each profile
// field. Username and Email address top-level string claims; Teams may
// address a flat string array or, with TeamsPath set, an array of objects
// holding the name under that key.
type ClaimMapping struct {
	Username  string
	Teams     string
	TeamsPath string
	Email     string
	SyncTeams bool
}

// ProfileFrom assembles a profile from one claim source. Absent fields stay
// zero; completeness is judged later, once every source has been consulted.
// Teams are only extracted when synchronization is enabled, so a disabled
// deployment never acts on group claims.
func (m ClaimMapping) ProfileFrom(claims map[string]any) *Profile {
	p := &Profile{
		Subject:  auth.OptionalStringClaim(claims, claimSubject),
		Username: auth.OptionalStringClaim(claims, m.Username),
		Email:    auth.OptionalStringClaim(claims, m.Email),
	}
	if m.SyncTeams {
		if teams, ok := auth.TeamNamesClaim(claims, m.Teams, m.TeamsPath); ok {
			p.Teams = teams
		}
	}
	return p
}

// Merge combines two profiles field by field, preferring a. Teams merge by
// presence, not emptiness: a present-but-empty list in a wins over anything
// in b.
func Merge(a, b *Profile) *Profile {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	merged := &Profile{
		Subject:  a.Subject,
		Username: a.Username,
		Teams:    a.Teams,
		Email:    a.Email,
	}
	if merged.Subject == "" {
		merged.Subject = b.Subject
	}
	if merged.Username == "" {
		merged.Username = b.Username
	}
	if merged.Teams == nil {
		merged.Teams = b.Teams
	}
	if merged.Email == "" {
		merged.Email = b.Email
	}
	return merged
}

// SelectProfile picks the profile that authenticates this attempt: the
// first complete one of {ID-token profile, UserInfo profile, merged view},
// in that order. Returns nil when even the merged view is incomplete.
func SelectProfile(idToken, userInfo *Profile, syncTeams bool) *Profile {
	if idToken.Complete(syncTeams) {
		return idToken
	}
	if userInfo.Complete(syncTeams) {
		return userInfo
	}
	if merged := Merge(idToken, userInfo); merged.Complete(syncTeams) {
		return merged
	}
	return nil
}
