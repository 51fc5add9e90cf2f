package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/palisadehq/palisade/internal/auth"
	"github.com/palisadehq/palisade/internal/services/iam"
)

// Authorizer is the slice of the IAM service the authorization guard
// needs. iam.Service satisfies it.
type Authorizer interface {
	Authorize(principal *iam.Principal, required ...string) bool
}

// RequirePermission guards a route with an ANY-of permission check: the
// authenticated principal must hold at least one of the named permissions.
//
// The check is pure and in-memory: the effective permission set was
// resolved when the credential was validated, so no repository access
// happens per request here. Unauthenticated requests get 401, principals
// without a matching permission get 403.
func RequirePermission(iamService Authorizer, required ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, ok := iam.PrincipalFromContext(r.Context())
			if !ok {
				writeAuthFailure(w, auth.CauseInvalidCredentials)
				return
			}

			if !iamService.Authorize(principal, required...) {
				writeJSONError(w, http.StatusForbidden, "forbidden", "")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAuthenticated guards a route that needs an identity but no
// particular permission, such as whoami.
func RequireAuthenticated() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := iam.PrincipalFromContext(r.Context()); !ok {
				writeAuthFailure(w, auth.CauseInvalidCredentials)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// writeAuthFailure maps an authentication cause onto the transport.
// Everything collapses to 401 except FORCE_PASSWORD_CHANGE, which clients
// need to distinguish to redirect into a password-change flow, and OTHER,
// which is an infrastructure fault rather than a credential judgment.
func writeAuthFailure(w http.ResponseWriter, cause auth.CauseType) {
	switch cause {
	case auth.CauseForcePasswordChange:
		writeJSONError(w, http.StatusForbidden, "password change required", string(cause))
	case auth.CauseOther:
		writeJSONError(w, http.StatusInternalServerError, "authentication unavailable", string(cause))
	default:
		writeJSONError(w, http.StatusUnauthorized, "not authenticated", string(cause))
	}
}

func writeJSONError(w http.ResponseWriter, status int, message, cause string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	body := map[string]string{"error": message}
	if cause != "" {
		body["cause"] = cause
	}
	_ = json.NewEncoder(w).Encode(body)
}
