package auth

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// StringClaim extracts a required string claim by field name.
func StringClaim(claims map[string]any, claimField string) (string, error) {
	rawValue, ok := claims[claimField]
	if !ok {
		return "", fmt.Errorf("claim field %s not found", claimField)
	}

	value, ok := rawValue.(string)
	if !ok {
		return "", fmt.Errorf("claim field %s is not a string", claimField)
	}

	if value == "" {
		return "", fmt.Errorf("claim field %s is empty", claimField)
	}

	return value, nil
}

// OptionalStringClaim extracts a string claim, returning "" when the claim
// is absent, empty, or not a string.
func OptionalStringClaim(claims map[string]any, claimField string) string {
	value, _ := claims[claimField].(string)
	return value
}

// TeamNamesClaim extracts a list of team/group names from a claim. The
// second return distinguishes an absent or undecodable claim (nil, false)
// from a present one; a present empty list returns ([], true), which is
// meaningful to membership synchronization.
//
// Supports:
//   - Flat arrays: ["dev-team", "contractors"]
//   - Nested objects: [{"name": "dev-team", "type": "team"}] with claimPath="name"
func TeamNamesClaim(claims map[string]any, claimField string, claimPath string) ([]string, bool) {
	rawValue, ok := claims[claimField]
	if !ok {
		return nil, false
	}

	if claimPath != "" {
		names, err := nestedTeamNames(rawValue, claimPath)
		if err != nil {
			return nil, false
		}
		return names, true
	}

	items, ok := rawValue.([]any)
	if !ok {
		return nil, false
	}
	result := make([]string, 0, len(items))
	for _, item := range items {
		if str, ok := item.(string); ok {
			result = append(result, str)
		}
	}
	return result, true
}

// nestedTeamNames uses mapstructure to pull a single-level field out of an
// array of objects, e.g. [{"name": "dev-team"}] with path "name".
func nestedTeamNames(rawValue any, path string) ([]string, error) {
	var objects []map[string]any
	if err := mapstructure.Decode(rawValue, &objects); err != nil {
		return nil, fmt.Errorf("decode nested team names: %w", err)
	}

	result := make([]string, 0, len(objects))
	for _, obj := range objects {
		if val, ok := obj[path].(string); ok {
			result = append(result, val)
		}
	}
	return result, nil
}
