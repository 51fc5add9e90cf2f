package middleware

import (
	"context"
	"log"
	"net/http"

	"github.com/palisadehq/palisade/internal/auth"
	"github.com/palisadehq/palisade/internal/services/iam"
)

// RequestAuthenticator is the slice of the IAM service the authentication
// middleware needs. iam.Service satisfies it.
type RequestAuthenticator interface {
	AuthenticateRequest(ctx context.Context, req iam.AuthRequest) (*iam.Principal, error)
}

// Authentication resolves request credentials into a Principal.
//
// The middleware:
//  1. Extracts headers from the HTTP request
//  2. Calls iamService.AuthenticateRequest(), which tries all authenticators
//  3. Stores the Principal in context when authentication succeeds
//  4. Continues to the next handler
//
// Requests without credentials pass through unauthenticated; the
// authorization guard decides whether the route tolerates that. Only a
// presented-but-rejected credential stops the request here: a caller
// holding a bad credential must not fall back to anonymous access.
func Authentication(iamService RequestAuthenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			principal, err := iamService.AuthenticateRequest(ctx, iam.AuthRequestFrom(r))
			if err != nil {
				log.Printf("WARNING: authentication failed for %s %s: %v", r.Method, r.URL.Path, err)
				writeAuthFailure(w, auth.CauseOf(err))
				return
			}

			if principal != nil {
				ctx = iam.ContextWithPrincipal(ctx, principal)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
