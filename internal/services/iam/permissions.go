package iam

import (
	"sort"

	"github.com/palisadehq/palisade/internal/db/models"
)

// EffectivePermissions computes the permission names a principal holds:
// direct grants plus every owning team's grants, deduplicated and sorted.
//
// This is a PURE FUNCTION over the preloaded model graph. It issues no
// queries, so callers must load Teams with their Permissions (the
// repository username and key lookups do).
func EffectivePermissions(p models.Principal) []string {
	set := make(map[string]struct{})

	for _, perm := range p.PrincipalPermissions() {
		set[perm.Name] = struct{}{}
	}
	for _, team := range p.PrincipalTeams() {
		for _, perm := range team.Permissions {
			set[perm.Name] = struct{}{}
		}
	}

	names := make([]string, 0, len(set))
	for name := range set {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// HasAnyPermission reports whether effective contains at least one of the
// required names. An empty required set never matches: routes must name
// what they demand.
func HasAnyPermission(effective []string, required ...string) bool {
	if len(required) == 0 {
		return false
	}
	for _, want := range required {
		for _, have := range effective {
			if have == want {
				return true
			}
		}
	}
	return false
}
