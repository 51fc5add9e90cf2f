package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/palisadehq/palisade/internal/auth"
	"github.com/palisadehq/palisade/internal/services/iam"
)

// stubIAM implements RequestAuthenticator and Authorizer with canned
// behavior per test case.
type stubIAM struct {
	principal *iam.Principal
	authErr   error
}

func (s *stubIAM) AuthenticateRequest(_ context.Context, _ iam.AuthRequest) (*iam.Principal, error) {
	return s.principal, s.authErr
}

func (s *stubIAM) Authorize(principal *iam.Principal, required ...string) bool {
	if principal == nil {
		return false
	}
	return iam.HasAnyPermission(principal.Permissions, required...)
}

func okHandler(t *testing.T, sawPrincipal *bool) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := iam.PrincipalFromContext(r.Context()); ok && sawPrincipal != nil {
			*sawPrincipal = true
		}
		w.WriteHeader(http.StatusOK)
	})
}

// TestAuthentication_NoCredentials tests that requests without credentials
// continue unauthenticated instead of being rejected
func TestAuthentication_NoCredentials(t *testing.T) {
	svc := &stubIAM{}
	sawPrincipal := false
	handler := Authentication(svc)(okHandler(t, &sawPrincipal))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if sawPrincipal {
		t.Error("Expected no principal in context for anonymous request")
	}
}

// TestAuthentication_Success tests that a resolved principal lands in the
// request context
func TestAuthentication_Success(t *testing.T) {
	svc := &stubIAM{principal: &iam.Principal{Name: "alice", Permissions: []string{"deploy"}}}
	sawPrincipal := false
	handler := Authentication(svc)(okHandler(t, &sawPrincipal))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if !sawPrincipal {
		t.Error("Expected principal in context")
	}
}

// TestAuthentication_FailureMapping tests the cause-to-status mapping for
// rejected credentials
func TestAuthentication_FailureMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCause  string
	}{
		{"invalid credentials", auth.NewError(auth.CauseInvalidCredentials, "bad key"), http.StatusUnauthorized, "INVALID_CREDENTIALS"},
		{"expired token", auth.NewError(auth.CauseExpiredCredentials, "token expired"), http.StatusUnauthorized, "EXPIRED_CREDENTIALS"},
		{"suspended", auth.NewError(auth.CauseSuspended, "account is suspended"), http.StatusUnauthorized, "SUSPENDED"},
		{"force password change", auth.NewError(auth.CauseForcePasswordChange, "rotate password"), http.StatusForbidden, "FORCE_PASSWORD_CHANGE"},
		{"infrastructure fault", auth.NewError(auth.CauseOther, "repository down"), http.StatusInternalServerError, "OTHER"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			handler := Authentication(&stubIAM{authErr: tc.err})(okHandler(t, nil))
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("X-Api-Key", "whatever")
			handler.ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("Expected status %d, got %d", tc.wantStatus, rec.Code)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["cause"] != tc.wantCause {
				t.Errorf("Expected cause %q, got %q", tc.wantCause, body["cause"])
			}
		})
	}
}

// TestRequirePermission tests the ANY-of guard over context principals
func TestRequirePermission(t *testing.T) {
	svc := &stubIAM{}
	guard := RequirePermission(svc, "states:read", "states:write")

	tests := []struct {
		name       string
		principal  *iam.Principal
		wantStatus int
	}{
		{"unauthenticated", nil, http.StatusUnauthorized},
		{"holds one required permission", &iam.Principal{Name: "alice", Permissions: []string{"states:read"}}, http.StatusOK},
		{"holds only unrelated permission", &iam.Principal{Name: "bob", Permissions: []string{"alerts:ack"}}, http.StatusForbidden},
		{"holds no permissions", &iam.Principal{Name: "carol"}, http.StatusForbidden},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/admin/users", nil)
			if tc.principal != nil {
				req = req.WithContext(iam.ContextWithPrincipal(req.Context(), tc.principal))
			}
			guard(okHandler(t, nil)).ServeHTTP(rec, req)

			if rec.Code != tc.wantStatus {
				t.Errorf("Expected status %d, got %d", tc.wantStatus, rec.Code)
			}
		})
	}
}

// TestRequireAuthenticated tests the identity-only guard
func TestRequireAuthenticated(t *testing.T) {
	guard := RequireAuthenticated()

	rec := httptest.NewRecorder()
	guard(okHandler(t, nil)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/auth/whoami", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 without principal, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/auth/whoami", nil)
	req = req.WithContext(iam.ContextWithPrincipal(req.Context(), &iam.Principal{Name: "alice"}))
	guard(okHandler(t, nil)).ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200 with principal, got %d", rec.Code)
	}
}
