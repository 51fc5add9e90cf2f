package iam

import (
	"reflect"
	"testing"

	"github.com/palisadehq/palisade/internal/db/models"
)

// TestFromUser tests the user-to-principal projection
func TestFromUser(t *testing.T) {
	email := "alice@example.com"
	user := &models.User{
		ID:       "user-1",
		Username: "alice",
		Provider: models.ProviderOIDC,
		Email:    &email,
		Permissions: []*models.Permission{
			{ID: "perm-deploy", Name: "deploy"},
		},
		Teams: []*models.Team{
			newTeam("team-1", "platform", "states:read"),
		},
	}

	p := FromUser(user)

	if p.ID != "user-1" {
		t.Errorf("Expected ID user-1, got %s", p.ID)
	}
	if p.Name != "alice" {
		t.Errorf("Expected name alice, got %s", p.Name)
	}
	if p.Email != email {
		t.Errorf("Expected email %s, got %s", email, p.Email)
	}
	if p.Provider != models.ProviderOIDC {
		t.Errorf("Expected provider %s, got %s", models.ProviderOIDC, p.Provider)
	}
	if p.Type != PrincipalTypeUser {
		t.Errorf("Expected type %s, got %s", PrincipalTypeUser, p.Type)
	}
	if !reflect.DeepEqual(p.Teams, []string{"platform"}) {
		t.Errorf("Expected teams [platform], got %v", p.Teams)
	}
	if !reflect.DeepEqual(p.Permissions, []string{"deploy", "states:read"}) {
		t.Errorf("Expected permissions [deploy states:read], got %v", p.Permissions)
	}
}

// TestFromUser_NoEmail tests that a missing email stays empty
func TestFromUser_NoEmail(t *testing.T) {
	p := FromUser(&models.User{ID: "user-2", Username: "bob", Provider: models.ProviderLocal})
	if p.Email != "" {
		t.Errorf("Expected empty email, got %s", p.Email)
	}
}

// TestFromApiKey tests the key-to-principal projection and the name
// fallback chain: comment, then public id, then the legacy marker
func TestFromApiKey(t *testing.T) {
	publicID := "pub12345"
	key := &models.ApiKey{
		ID:       "key-1",
		PublicID: &publicID,
		Comment:  "ci deployer",
		Teams: []*models.Team{
			newTeam("team-1", "platform", "states:write"),
		},
	}

	p := FromApiKey(key)

	if p.Name != "ci deployer" {
		t.Errorf("Expected comment as name, got %s", p.Name)
	}
	if p.Type != PrincipalTypeAPIKey {
		t.Errorf("Expected type %s, got %s", PrincipalTypeAPIKey, p.Type)
	}
	if p.Provider != models.ProviderLocal {
		t.Errorf("Expected provider %s, got %s", models.ProviderLocal, p.Provider)
	}
	if !reflect.DeepEqual(p.Permissions, []string{"states:write"}) {
		t.Errorf("Expected permissions [states:write], got %v", p.Permissions)
	}

	key.Comment = ""
	if p := FromApiKey(key); p.Name != publicID {
		t.Errorf("Expected public id as name, got %s", p.Name)
	}

	key.PublicID = nil
	if p := FromApiKey(key); p.Name != "legacy-api-key" {
		t.Errorf("Expected legacy marker as name, got %s", p.Name)
	}
}
