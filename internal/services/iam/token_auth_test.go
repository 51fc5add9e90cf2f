package iam

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"testing"
	"time"

	"github.com/palisadehq/palisade/internal/auth"
	"github.com/palisadehq/palisade/internal/db/models"
)

func bearerRequest(header string) AuthRequest {
	headers := http.Header{}
	if header != "" {
		headers.Set("Authorization", header)
	}
	return AuthRequest{Headers: headers}
}

// TestBearerAuthenticator_NoHeader tests the no-credential result
func TestBearerAuthenticator_NoHeader(t *testing.T) {
	tokens := NewTokenService("", testSigningKey)
	authn := NewBearerAuthenticator(tokens, newMockUserRepository())

	principal, err := authn.Authenticate(context.Background(), bearerRequest(""))
	if err != nil {
		t.Fatalf("Expected no error without a header, got: %v", err)
	}
	if principal != nil {
		t.Error("Expected no principal without a header")
	}
}

// TestBearerAuthenticator_OtherScheme tests that non-Bearer Authorization
// headers are left for other authenticators
func TestBearerAuthenticator_OtherScheme(t *testing.T) {
	tokens := NewTokenService("", testSigningKey)
	authn := NewBearerAuthenticator(tokens, newMockUserRepository())

	// The scheme match is exact; a lowercase "bearer" is not ours either.
	for _, header := range []string{"Basic YWxpY2U6cGFzcw==", "bearer abc.def.ghi"} {
		principal, err := authn.Authenticate(context.Background(), bearerRequest(header))
		if err != nil {
			t.Fatalf("Expected no error for %q, got: %v", header, err)
		}
		if principal != nil {
			t.Errorf("Expected no principal for %q", header)
		}
	}
}

// TestBearerAuthenticator_ValidToken tests that a valid token resolves its
// subject and recomputes permissions from the store
func TestBearerAuthenticator_ValidToken(t *testing.T) {
	tokens := NewTokenService("", testSigningKey)
	// The token was minted when alice still held a stale grant.
	rawToken, _, err := tokens.Issue("alice", []string{"stale:grant"}, models.ProviderLocal)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	users := newMockUserRepository(&models.User{
		ID:       "user-1",
		Username: "alice",
		Provider: models.ProviderLocal,
		Teams:    []*models.Team{newTeam("team-1", "platform", "deploy", "states:read")},
	})
	authn := NewBearerAuthenticator(tokens, users)

	principal, err := authn.Authenticate(context.Background(), bearerRequest("Bearer "+rawToken))
	if err != nil {
		t.Fatalf("Expected success, got: %v", err)
	}
	if principal.Name != "alice" {
		t.Errorf("Expected alice, got %s", principal.Name)
	}
	if principal.Type != PrincipalTypeUser {
		t.Errorf("Expected type %s, got %s", PrincipalTypeUser, principal.Type)
	}
	// The stale embedded grant must not survive; the store is the truth.
	if want := []string{"deploy", "states:read"}; !reflect.DeepEqual(principal.Permissions, want) {
		t.Errorf("Expected permissions %v, got %v", want, principal.Permissions)
	}
}

// TestBearerAuthenticator_ExpiredToken tests expiry through a pinned clock
func TestBearerAuthenticator_ExpiredToken(t *testing.T) {
	issued := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tokens := pinnedTokenService(testSigningKey, issued)
	rawToken, _, err := tokens.Issue("alice", nil, models.ProviderLocal)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	users := newMockUserRepository(&models.User{
		ID:       "user-1",
		Username: "alice",
		Provider: models.ProviderLocal,
	})
	authn := NewBearerAuthenticator(tokens, users)

	tokens.now = func() time.Time { return issued.Add(TokenValidity + time.Second) }
	_, err = authn.Authenticate(context.Background(), bearerRequest("Bearer "+rawToken))
	if auth.CauseOf(err) != auth.CauseExpiredCredentials {
		t.Errorf("Expected cause %s, got %v", auth.CauseExpiredCredentials, err)
	}
}

// TestBearerAuthenticator_TamperedToken tests signature failures
func TestBearerAuthenticator_TamperedToken(t *testing.T) {
	tokens := NewTokenService("", testSigningKey)
	rawToken, _, err := tokens.Issue("alice", nil, models.ProviderLocal)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	tampered := rawToken[:len(rawToken)-2] + "xx"

	authn := NewBearerAuthenticator(tokens, newMockUserRepository())
	_, err = authn.Authenticate(context.Background(), bearerRequest("Bearer "+tampered))
	if auth.CauseOf(err) != auth.CauseInvalidCredentials {
		t.Errorf("Expected cause %s, got %v", auth.CauseInvalidCredentials, err)
	}
}

// TestBearerAuthenticator_DeletedSubject tests tokens whose account was
// removed after issuance
func TestBearerAuthenticator_DeletedSubject(t *testing.T) {
	tokens := NewTokenService("", testSigningKey)
	rawToken, _, err := tokens.Issue("alice", nil, models.ProviderLocal)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	authn := NewBearerAuthenticator(tokens, newMockUserRepository())
	_, err = authn.Authenticate(context.Background(), bearerRequest("Bearer "+rawToken))
	if auth.CauseOf(err) != auth.CauseInvalidCredentials {
		t.Errorf("Expected cause %s, got %v", auth.CauseInvalidCredentials, err)
	}
}

// TestBearerAuthenticator_SuspendedSubject tests that suspension cuts off
// live tokens immediately
func TestBearerAuthenticator_SuspendedSubject(t *testing.T) {
	tokens := NewTokenService("", testSigningKey)
	rawToken, _, err := tokens.Issue("alice", nil, models.ProviderLocal)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	users := newMockUserRepository(&models.User{
		ID:        "user-1",
		Username:  "alice",
		Provider:  models.ProviderLocal,
		Suspended: true,
	})
	authn := NewBearerAuthenticator(tokens, users)

	_, err = authn.Authenticate(context.Background(), bearerRequest("Bearer "+rawToken))
	if auth.CauseOf(err) != auth.CauseSuspended {
		t.Errorf("Expected cause %s, got %v", auth.CauseSuspended, err)
	}
}

// TestBearerAuthenticator_ProviderScopedLookup tests that the subject is
// resolved in the store matching the token's provider tag
func TestBearerAuthenticator_ProviderScopedLookup(t *testing.T) {
	tokens := NewTokenService("", testSigningKey)
	rawToken, _, err := tokens.Issue("alice", nil, models.ProviderOIDC)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// A managed account under the same username must not satisfy an OIDC
	// token.
	users := newMockUserRepository(&models.User{
		ID:       "user-1",
		Username: "alice",
		Provider: models.ProviderLocal,
	})
	authn := NewBearerAuthenticator(tokens, users)

	_, err = authn.Authenticate(context.Background(), bearerRequest("Bearer "+rawToken))
	if auth.CauseOf(err) != auth.CauseInvalidCredentials {
		t.Fatalf("Expected cause %s, got %v", auth.CauseInvalidCredentials, err)
	}

	oidcUser := &models.User{ID: "user-2", Username: "alice", Provider: models.ProviderOIDC}
	authn = NewBearerAuthenticator(tokens, newMockUserRepository(oidcUser))
	principal, err := authn.Authenticate(context.Background(), bearerRequest("Bearer "+rawToken))
	if err != nil {
		t.Fatalf("Expected success against the OIDC store, got: %v", err)
	}
	if principal.ID != "user-2" {
		t.Errorf("Expected user-2, got %s", principal.ID)
	}
}

// TestBearerAuthenticator_StoreFailure tests infrastructure errors map to
// OTHER
func TestBearerAuthenticator_StoreFailure(t *testing.T) {
	tokens := NewTokenService("", testSigningKey)
	rawToken, _, err := tokens.Issue("alice", nil, models.ProviderLocal)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	users := newMockUserRepository()
	users.err = errors.New("connection refused")
	authn := NewBearerAuthenticator(tokens, users)

	_, err = authn.Authenticate(context.Background(), bearerRequest("Bearer "+rawToken))
	if auth.CauseOf(err) != auth.CauseOther {
		t.Errorf("Expected cause %s, got %v", auth.CauseOther, err)
	}
}
