package iam

import (
	"context"
	"net/http"
)

// HeaderAPIKey is the request header carrying an API key credential.
const HeaderAPIKey = "X-Api-Key"

// Authenticator validates request credentials and returns a Principal with
// resolved permissions.
//
// Implementations:
//   - APIKeyAuthenticator: validates X-Api-Key headers
//   - BearerAuthenticator: validates Authorization: Bearer tokens
//
// Return values:
//   - (principal, nil): authentication successful
//   - (nil, nil): credentials not present (not an error, try next authenticator)
//   - (nil, error): authentication failed
//
// The authenticator is responsible for:
//  1. Extracting credentials from the request
//  2. Validating credentials (digest, signature, expiry)
//  3. Resolving identity (user or API key)
//  4. Computing effective permissions (direct ∪ team grants)
//  5. Constructing the immutable Principal struct
type Authenticator interface {
	// Name identifies the strategy in logs and metrics.
	Name() string

	// Authenticate validates credentials and returns a Principal with
	// resolved permissions.
	Authenticate(ctx context.Context, req AuthRequest) (*Principal, error)
}

// AuthRequest wraps HTTP request data for authenticator implementations.
// The abstraction keeps authenticators testable without a full
// *http.Request.
type AuthRequest struct {
	// Headers contains HTTP headers (including Authorization and X-Api-Key).
	Headers http.Header
}

// AuthRequestFrom extracts the authenticator-relevant parts of r.
func AuthRequestFrom(r *http.Request) AuthRequest {
	return AuthRequest{Headers: r.Header}
}
